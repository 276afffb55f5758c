package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const adminTokenTTL = 24 * time.Hour

// AuthService verifies the shared access PINs and issues admin session
// tokens. PINs authorize voting but never identify a voter; many devices
// share one PIN.
type AuthService struct {
	userPIN   string
	adminPIN  string
	jwtSecret string
}

// NewAuthService creates a new auth service
func NewAuthService(userPIN, adminPIN, jwtSecret string) *AuthService {
	return &AuthService{
		userPIN:   userPIN,
		adminPIN:  adminPIN,
		jwtSecret: jwtSecret,
	}
}

// VerifyPIN reports whether the PIN is a known access PIN and whether it is
// the admin PIN.
func (s *AuthService) VerifyPIN(pin string) (valid bool, admin bool) {
	switch pin {
	case s.adminPIN:
		return true, true
	case s.userPIN:
		return true, false
	}
	return false, false
}

// GenerateAdminToken issues a signed session token after a successful admin
// PIN login.
func (s *AuthService) GenerateAdminToken() (string, error) {
	claims := jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(adminTokenTTL).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateAdminToken checks an admin session token.
func (s *AuthService) ValidateAdminToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("invalid token claims")
	}
	if role, _ := claims["role"].(string); role != "admin" {
		return fmt.Errorf("not an admin token")
	}

	return nil
}
