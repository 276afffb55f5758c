package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crown-voting-backend/internal/middleware"
	"crown-voting-backend/internal/models"
	"crown-voting-backend/internal/repository"
	"crown-voting-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserPIN  = "142536"
	testAdminPIN = "909090"
)

type testServer struct {
	router *chi.Mux
	store  repository.Store
}

// newTestServer wires the public and admin surfaces over the in-memory store,
// mirroring the production router.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := repository.NewMemoryStore()
	cache := services.NewResultCache(time.Minute)
	t.Cleanup(cache.Stop)

	votingService := services.NewVotingService(store, cache)
	resultService := services.NewResultService(store, cache)
	candidateService := services.NewCandidateService(store, cache)
	authService := services.NewAuthService(testUserPIN, testAdminPIN, "test-secret")
	limiter := services.NewRateLimiter(5, time.Minute, 5*time.Minute)
	hub := services.NewResultsHub(resultService)

	authHandler := NewAuthHandler(authService, votingService, limiter)
	votingHandler := NewVotingHandler(votingService, hub)
	resultHandler := NewResultHandler(resultService)
	candidateHandler := NewCandidateHandler(candidateService)
	adminHandler := NewAdminHandler(candidateService, resultService, nil, limiter)

	r := chi.NewRouter()
	r.Use(middleware.DeviceID)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/verify-pin", authHandler.VerifyPin)
		r.Post("/auth/admin/login", authHandler.AdminLogin)
		r.Post("/voting/vote", votingHandler.SubmitVote)
		r.Post("/voting/bulk-vote", votingHandler.SubmitBulkVotes)
		r.Get("/voting/has-voted", votingHandler.HasVoted)
		r.Get("/voting/device-has-voted", votingHandler.DeviceHasVoted)
		r.Get("/candidates/{category}", candidateHandler.GetByCategory)
		r.Get("/results", resultHandler.GetAll)
		r.Get("/results/{category}", resultHandler.GetByCategory)
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(authService))
			r.Get("/candidates", adminHandler.ListCandidates)
			r.Post("/candidates", adminHandler.CreateCandidate)
			r.Get("/candidates/{id}", adminHandler.GetCandidate)
			r.Put("/candidates/{id}", adminHandler.UpdateCandidate)
			r.Delete("/candidates/{id}", adminHandler.DeleteCandidate)
			r.Get("/results", adminHandler.GetResults)
			r.Get("/results/detailed", adminHandler.GetDetailedResults)
			r.Get("/ratelimit/{key}", adminHandler.GetRateLimit)
			r.Delete("/ratelimit/{key}", adminHandler.ClearRateLimit)
		})
	})

	ts := &testServer{router: r, store: store}
	ts.seedCandidates(t)
	return ts
}

func (ts *testServer) seedCandidates(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, c := range []*models.Candidate{
		{Category: models.CategoryKing, CandidateNumber: 1, Name: "Aidas"},
		{Category: models.CategoryKing, CandidateNumber: 2, Name: "Tomas"},
		{Category: models.CategoryQueen, CandidateNumber: 1, Name: "Greta"},
	} {
		require.NoError(t, ts.store.Candidates().Create(ctx, c))
	}
}

func (ts *testServer) do(t *testing.T, method, path, deviceID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if deviceID != "" {
		req.AddCookie(&http.Cookie{Name: middleware.DeviceCookieName, Value: deviceID})
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth/admin/login", "admin-device", map[string]string{"pin": testAdminPIN})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp AdminLoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (ts *testServer) doAdmin(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestVerifyPin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/verify-pin", "device-1", map[string]string{"pin": testUserPIN})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VerifyPinResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Valid)
	assert.False(t, resp.AlreadyVoted)

	rec = ts.do(t, http.MethodPost, "/api/auth/verify-pin", "device-1", map[string]string{"pin": "000000"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/verify-pin", "device-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyPinRateLimited(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 5; i++ {
		rec := ts.do(t, http.MethodPost, "/api/auth/verify-pin", "device-1", map[string]string{"pin": "000000"})
		require.Equal(t, http.StatusNotFound, rec.Code, "attempt %d", i+1)
	}

	rec := ts.do(t, http.MethodPost, "/api/auth/verify-pin", "device-1", map[string]string{"pin": testUserPIN})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(300), resp.RetryAfterSeconds)
}

func TestVerifyPinReportsAlreadyVoted(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/voting/vote", "device-1", VoteRequest{
		PIN: testUserPIN, Category: "KING", CandidateNumber: 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/verify-pin", "device-1", map[string]string{"pin": testUserPIN})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp VerifyPinResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.AlreadyVoted)
}

func TestSubmitVote(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/voting/vote", "device-1", VoteRequest{
		PIN: testUserPIN, Category: "king", CandidateNumber: 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VoteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)

	// Second vote from the same device is a conflict.
	rec = ts.do(t, http.MethodPost, "/api/voting/vote", "device-1", VoteRequest{
		PIN: testUserPIN, Category: "KING", CandidateNumber: 2,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Another device is unaffected.
	rec = ts.do(t, http.MethodPost, "/api/voting/vote", "device-2", VoteRequest{
		PIN: testUserPIN, Category: "KING", CandidateNumber: 2,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitVoteValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/voting/vote", "device-1", VoteRequest{
		PIN: testUserPIN, Category: "EMPEROR", CandidateNumber: 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/voting/vote", "device-1", VoteRequest{
		Category: "KING", CandidateNumber: 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/voting/vote", "device-1", VoteRequest{
		PIN: testUserPIN, Category: "KING", CandidateNumber: 42,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitBulkVotes(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]any{
		"pin": testUserPIN,
		"votes": []map[string]any{
			{"category": "KING", "candidate_number": 1},
			{"category": "QUEEN", "candidate_number": 1},
		},
	}
	rec := ts.do(t, http.MethodPost, "/api/voting/bulk-vote", "device-1", body)
	require.Equal(t, http.StatusOK, rec.Code)

	// Whole batch is rejected once the device has voted.
	rec = ts.do(t, http.MethodPost, "/api/voting/bulk-vote", "device-1", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHasVotedEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/voting/device-has-voted", "device-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "false\n", rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/voting/vote", "device-1", VoteRequest{
		PIN: testUserPIN, Category: "KING", CandidateNumber: 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/voting/device-has-voted", "device-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true\n", rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/voting/has-voted?pin="+testUserPIN+"&category=KING", "device-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true\n", rec.Body.String())
}

func TestResultsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/voting/vote", "device-1", VoteRequest{
		PIN: testUserPIN, Category: "KING", CandidateNumber: 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/results/king", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result services.CategoryResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, models.CategoryKing, result.Category)
	assert.Equal(t, int64(1), result.TotalVotes)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, 100.0, result.Candidates[0].Percentage)

	rec = ts.do(t, http.MethodGet, "/api/results", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []services.CategoryResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	assert.Len(t, all, len(models.Categories))

	rec = ts.do(t, http.MethodGet, "/api/results/emperor", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCandidatesEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/candidates/king", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var candidates []models.Candidate
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&candidates))
	require.Len(t, candidates, 2)
	assert.Equal(t, "Aidas", candidates[0].Name)

	rec = ts.do(t, http.MethodGet, "/api/candidates/unknown", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.doAdmin(t, http.MethodGet, "/api/admin/candidates", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.doAdmin(t, http.MethodGet, "/api/admin/candidates", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLoginRejectsUserPIN(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/admin/login", "device-1", map[string]string{"pin": testUserPIN})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminCandidateCRUD(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)

	rec := ts.doAdmin(t, http.MethodPost, "/api/admin/candidates", token, map[string]any{
		"category":         "PRINCE",
		"candidate_number": 1,
		"name":             "Lukas",
		"department":       "Informatics",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var created models.Candidate
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotZero(t, created.ID)
	assert.Equal(t, models.CategoryPrince, created.Category)

	path := fmt.Sprintf("/api/admin/candidates/%d", created.ID)

	rec = ts.doAdmin(t, http.MethodPut, path, token, map[string]any{"name": "Lukas M."})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Candidate
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, "Lukas M.", updated.Name)
	assert.Equal(t, "Informatics", updated.Department, "partial update must keep other fields")

	rec = ts.doAdmin(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.doAdmin(t, http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRateLimitInspection(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)

	// The failed attempts are keyed by the client IP httptest assigns.
	for i := 0; i < 3; i++ {
		ts.do(t, http.MethodPost, "/api/auth/verify-pin", "device-1", map[string]string{"pin": "000000"})
	}

	rec := ts.doAdmin(t, http.MethodGet, "/api/admin/ratelimit/192.0.2.1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info services.RateLimitInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, 3, info.Attempts)

	rec = ts.doAdmin(t, http.MethodDelete, "/api/admin/ratelimit/192.0.2.1", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.doAdmin(t, http.MethodGet, "/api/admin/ratelimit/192.0.2.1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, 0, info.Attempts)
}
