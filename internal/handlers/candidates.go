package handlers

import (
	"net/http"

	"crown-voting-backend/internal/models"
	"crown-voting-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// CandidateHandler serves public candidate listings
type CandidateHandler struct {
	candidateService *services.CandidateService
}

// NewCandidateHandler creates a new candidate handler
func NewCandidateHandler(candidateService *services.CandidateService) *CandidateHandler {
	return &CandidateHandler{candidateService: candidateService}
}

// GetByCategory handles GET /api/candidates/{category}
func (h *CandidateHandler) GetByCategory(w http.ResponseWriter, r *http.Request) {
	category, err := models.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	candidates, err := h.candidateService.CandidatesForCategory(r.Context(), category)
	if err != nil {
		log.Error().Err(err).Str("category", string(category)).Msg("Failed to list candidates")
		respondError(w, "Failed to list candidates", http.StatusInternalServerError)
		return
	}
	if candidates == nil {
		candidates = []*models.Candidate{}
	}

	respondJSON(w, candidates, http.StatusOK)
}
