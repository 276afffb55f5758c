package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"crown-voting-backend/internal/middleware"
	"crown-voting-backend/internal/models"
	"crown-voting-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// VotingHandler handles vote submission HTTP requests
type VotingHandler struct {
	votingService *services.VotingService
	hub           *services.ResultsHub
}

// NewVotingHandler creates a new voting handler
func NewVotingHandler(votingService *services.VotingService, hub *services.ResultsHub) *VotingHandler {
	return &VotingHandler{
		votingService: votingService,
		hub:           hub,
	}
}

// VoteRequest represents a single vote submission
type VoteRequest struct {
	DeviceID        string `json:"device_id,omitempty"`
	PIN             string `json:"pin"`
	Category        string `json:"category"`
	CandidateNumber int    `json:"candidate_number"`
}

// BulkVoteRequest represents a bulk vote submission
type BulkVoteRequest struct {
	DeviceID string `json:"device_id,omitempty"`
	PIN      string `json:"pin"`
	Votes    []struct {
		Category        string `json:"category"`
		CandidateNumber int    `json:"candidate_number"`
	} `json:"votes"`
}

// VoteResponse represents the outcome of a vote submission
type VoteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SubmitVote handles POST /api/voting/vote
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PIN == "" {
		respondError(w, "pin is required", http.StatusBadRequest)
		return
	}

	category, err := models.ParseCategory(req.Category)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Prefer the server-resolved device id over anything the client sent.
	deviceID := middleware.GetDeviceID(ctx)
	if deviceID == "" {
		deviceID = req.DeviceID
	}
	if deviceID == "" {
		respondError(w, "device_id is required", http.StatusBadRequest)
		return
	}

	if err := h.votingService.SubmitVote(ctx, deviceID, req.PIN, category, req.CandidateNumber); err != nil {
		h.respondVoteError(w, err, deviceID)
		return
	}

	log.Info().
		Str("device_id", deviceID).
		Str("category", string(category)).
		Int("candidate_number", req.CandidateNumber).
		Msg("Vote submitted")

	h.hub.BroadcastCategories(ctx, category)

	respondJSON(w, VoteResponse{Success: true, Message: "Vote submitted successfully"}, http.StatusOK)
}

// SubmitBulkVotes handles POST /api/voting/bulk-vote
func (h *VotingHandler) SubmitBulkVotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BulkVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PIN == "" {
		respondError(w, "pin is required", http.StatusBadRequest)
		return
	}
	if len(req.Votes) == 0 {
		respondError(w, "votes are required", http.StatusBadRequest)
		return
	}

	items := make([]services.VoteItem, 0, len(req.Votes))
	categories := make([]models.Category, 0, len(req.Votes))
	for _, v := range req.Votes {
		category, err := models.ParseCategory(v.Category)
		if err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		items = append(items, services.VoteItem{Category: category, CandidateNumber: v.CandidateNumber})
		categories = append(categories, category)
	}

	deviceID := middleware.GetDeviceID(ctx)
	if deviceID == "" {
		deviceID = req.DeviceID
	}
	if deviceID == "" {
		respondError(w, "device_id is required", http.StatusBadRequest)
		return
	}

	if err := h.votingService.SubmitBulkVotes(ctx, deviceID, req.PIN, items); err != nil {
		h.respondVoteError(w, err, deviceID)
		return
	}

	log.Info().
		Str("device_id", deviceID).
		Int("votes", len(items)).
		Msg("Bulk votes submitted")

	h.hub.BroadcastCategories(ctx, categories...)

	respondJSON(w, VoteResponse{Success: true, Message: "All votes submitted successfully"}, http.StatusOK)
}

// respondVoteError maps submission outcomes to status codes. Conflicts are
// expected under contention and logged at info level only.
func (h *VotingHandler) respondVoteError(w http.ResponseWriter, err error, deviceID string) {
	switch {
	case errors.Is(err, services.ErrAlreadyVoted), errors.Is(err, services.ErrDuplicateVote):
		log.Info().Str("device_id", deviceID).Msg("Vote rejected: duplicate")
		respondJSON(w, VoteResponse{Success: false, Message: err.Error()}, http.StatusConflict)
	case errors.Is(err, services.ErrCandidateNotFound):
		respondJSON(w, VoteResponse{Success: false, Message: err.Error()}, http.StatusNotFound)
	case errors.Is(err, services.ErrVoterConflict):
		respondJSON(w, VoteResponse{Success: false, Message: err.Error()}, http.StatusServiceUnavailable)
	default:
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to submit vote")
		respondJSON(w, VoteResponse{Success: false, Message: "An error occurred while processing your vote"}, http.StatusInternalServerError)
	}
}

// HasVoted handles GET /api/voting/has-voted?pin=...&category=...
func (h *VotingHandler) HasVoted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pin := r.URL.Query().Get("pin")
	category, err := models.ParseCategory(r.URL.Query().Get("category"))
	if pin == "" || err != nil {
		respondError(w, "pin and category are required", http.StatusBadRequest)
		return
	}

	voted, err := h.votingService.HasVoted(ctx, pin, category)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check vote status")
		respondError(w, "Failed to check vote status", http.StatusInternalServerError)
		return
	}

	respondJSON(w, voted, http.StatusOK)
}

// DeviceHasVoted handles GET /api/voting/device-has-voted
func (h *VotingHandler) DeviceHasVoted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		deviceID = middleware.GetDeviceID(ctx)
	}
	if deviceID == "" {
		respondError(w, "device_id is required", http.StatusBadRequest)
		return
	}

	voted, err := h.votingService.DeviceHasVoted(ctx, deviceID)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to check device vote status")
		respondError(w, "Failed to check vote status", http.StatusInternalServerError)
		return
	}

	respondJSON(w, voted, http.StatusOK)
}
