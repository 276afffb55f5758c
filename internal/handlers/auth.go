package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"crown-voting-backend/internal/middleware"
	"crown-voting-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AuthHandler handles PIN verification and admin login, both behind the
// per-client rate limiter.
type AuthHandler struct {
	authService   *services.AuthService
	votingService *services.VotingService
	limiter       *services.RateLimiter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, votingService *services.VotingService, limiter *services.RateLimiter) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		votingService: votingService,
		limiter:       limiter,
	}
}

// PinRequest represents a PIN verification request body
type PinRequest struct {
	PIN string `json:"pin"`
}

// VerifyPinResponse represents a successful PIN verification
type VerifyPinResponse struct {
	Valid             bool `json:"valid"`
	AlreadyVoted      bool `json:"already_voted"`
	RemainingAttempts int  `json:"remaining_attempts"`
}

// VerifyPin handles POST /api/auth/verify-pin
func (h *AuthHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := middleware.ClientIP(r)

	limit := h.limiter.Check(key)
	if !limit.Allowed {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", limit.RetryAfterSeconds))
		respondJSON(w, ErrorResponse{
			Error:             "Too many attempts, try again later",
			RetryAfterSeconds: limit.RetryAfterSeconds,
		}, http.StatusTooManyRequests)
		return
	}

	var req PinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PIN == "" {
		respondError(w, "pin is required", http.StatusBadRequest)
		return
	}

	valid, _ := h.authService.VerifyPIN(req.PIN)
	h.limiter.RecordAttempt(key, valid)

	if !valid {
		log.Info().Str("client", key).Msg("PIN verification failed")
		respondError(w, "Pin not found", http.StatusNotFound)
		return
	}

	alreadyVoted := false
	if deviceID := middleware.GetDeviceID(ctx); deviceID != "" {
		voted, err := h.votingService.DeviceHasVoted(ctx, deviceID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to check device vote status")
		} else {
			alreadyVoted = voted
		}
	}

	respondJSON(w, VerifyPinResponse{
		Valid:             true,
		AlreadyVoted:      alreadyVoted,
		RemainingAttempts: limit.RemainingAttempts,
	}, http.StatusOK)
}

// AdminLoginResponse carries the admin session token
type AdminLoginResponse struct {
	Token string `json:"token"`
}

// AdminLogin handles POST /api/auth/admin/login
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	key := middleware.ClientIP(r)

	limit := h.limiter.Check(key)
	if !limit.Allowed {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", limit.RetryAfterSeconds))
		respondJSON(w, ErrorResponse{
			Error:             "Too many attempts, try again later",
			RetryAfterSeconds: limit.RetryAfterSeconds,
		}, http.StatusTooManyRequests)
		return
	}

	var req PinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PIN == "" {
		respondError(w, "pin is required", http.StatusBadRequest)
		return
	}

	_, admin := h.authService.VerifyPIN(req.PIN)
	h.limiter.RecordAttempt(key, admin)

	if !admin {
		log.Info().Str("client", key).Msg("Admin login failed")
		respondError(w, "Forbidden", http.StatusForbidden)
		return
	}

	token, err := h.authService.GenerateAdminToken()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate admin token")
		respondError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	respondJSON(w, AdminLoginResponse{Token: token}, http.StatusOK)
}
