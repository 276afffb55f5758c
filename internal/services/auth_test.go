package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyPIN(t *testing.T) {
	svc := NewAuthService("142536", "909090", "secret")

	valid, admin := svc.VerifyPIN("142536")
	assert.True(t, valid)
	assert.False(t, admin)

	valid, admin = svc.VerifyPIN("909090")
	assert.True(t, valid)
	assert.True(t, admin)

	valid, admin = svc.VerifyPIN("000000")
	assert.False(t, valid)
	assert.False(t, admin)

	valid, _ = svc.VerifyPIN("")
	assert.False(t, valid)
}

func TestAdminTokenRoundTrip(t *testing.T) {
	svc := NewAuthService("142536", "909090", "secret")

	token, err := svc.GenerateAdminToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, svc.ValidateAdminToken(token))
}

func TestAdminTokenWrongSecretRejected(t *testing.T) {
	issuer := NewAuthService("142536", "909090", "secret-a")
	verifier := NewAuthService("142536", "909090", "secret-b")

	token, err := issuer.GenerateAdminToken()
	require.NoError(t, err)

	assert.Error(t, verifier.ValidateAdminToken(token))
}

func TestAdminTokenGarbageRejected(t *testing.T) {
	svc := NewAuthService("142536", "909090", "secret")
	assert.Error(t, svc.ValidateAdminToken("not.a.token"))
}
