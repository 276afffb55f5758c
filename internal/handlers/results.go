package handlers

import (
	"net/http"

	"crown-voting-backend/internal/models"
	"crown-voting-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ResultHandler serves aggregated voting results
type ResultHandler struct {
	resultService *services.ResultService
}

// NewResultHandler creates a new result handler
func NewResultHandler(resultService *services.ResultService) *ResultHandler {
	return &ResultHandler{resultService: resultService}
}

// GetByCategory handles GET /api/results/{category}
func (h *ResultHandler) GetByCategory(w http.ResponseWriter, r *http.Request) {
	category, err := models.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.resultService.ResultsForCategory(r.Context(), category)
	if err != nil {
		log.Error().Err(err).Str("category", string(category)).Msg("Failed to load results")
		respondError(w, "Failed to load results", http.StatusInternalServerError)
		return
	}

	respondJSON(w, result, http.StatusOK)
}

// GetAll handles GET /api/results
func (h *ResultHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.resultService.AllResults(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load results")
		respondError(w, "Failed to load results", http.StatusInternalServerError)
		return
	}

	respondJSON(w, results, http.StatusOK)
}
