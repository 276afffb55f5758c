package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"crown-voting-backend/internal/models"
	"crown-voting-backend/internal/repository"
	"crown-voting-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// AdminHandler serves the admin dashboard: live results, candidate CRUD,
// candidate image uploads and rate limiter inspection.
type AdminHandler struct {
	candidateService *services.CandidateService
	resultService    *services.ResultService
	imageService     *services.ImageService
	limiter          *services.RateLimiter
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	candidateService *services.CandidateService,
	resultService *services.ResultService,
	imageService *services.ImageService,
	limiter *services.RateLimiter,
) *AdminHandler {
	return &AdminHandler{
		candidateService: candidateService,
		resultService:    resultService,
		imageService:     imageService,
		limiter:          limiter,
	}
}

// GetResults handles GET /api/admin/results. It returns every candidate
// flattened across categories, sorted by vote count, for dashboard polling.
func (h *AdminHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	all, err := h.resultService.AllResults(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load admin results")
		respondError(w, "Failed to load results", http.StatusInternalServerError)
		return
	}

	var flat []services.CandidateResult
	for _, result := range all {
		flat = append(flat, result.Candidates...)
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i].VoteCount > flat[j].VoteCount })

	respondJSON(w, flat, http.StatusOK)
}

// GetDetailedResults handles GET /api/admin/results/detailed
func (h *AdminHandler) GetDetailedResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.resultService.AllResults(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load detailed results")
		respondError(w, "Failed to load results", http.StatusInternalServerError)
		return
	}

	respondJSON(w, results, http.StatusOK)
}

// ListCandidates handles GET /api/admin/candidates
func (h *AdminHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.candidateService.ListAll(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list candidates")
		respondError(w, "Failed to list candidates", http.StatusInternalServerError)
		return
	}
	if candidates == nil {
		candidates = []*models.Candidate{}
	}

	respondJSON(w, candidates, http.StatusOK)
}

// CandidateRequest is the create/update body for a candidate. Nil fields in
// an update leave the current value untouched.
type CandidateRequest struct {
	Category        *string `json:"category"`
	CandidateNumber *int    `json:"candidate_number"`
	Name            *string `json:"name"`
	Department      *string `json:"department"`
	ImageURL        *string `json:"image_url"`
}

// CreateCandidate handles POST /api/admin/candidates
func (h *AdminHandler) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req CandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Category == nil || req.CandidateNumber == nil || req.Name == nil {
		respondError(w, "category, candidate_number and name are required", http.StatusBadRequest)
		return
	}

	category, err := models.ParseCategory(*req.Category)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	candidate := &models.Candidate{
		Category:        category,
		CandidateNumber: *req.CandidateNumber,
		Name:            *req.Name,
	}
	if req.Department != nil {
		candidate.Department = *req.Department
	}
	if req.ImageURL != nil {
		candidate.ImageURL = *req.ImageURL
	}

	if err := h.candidateService.Create(r.Context(), candidate); err != nil {
		log.Error().Err(err).Msg("Failed to create candidate")
		respondError(w, "Failed to create candidate", http.StatusInternalServerError)
		return
	}

	log.Info().
		Int64("candidate_id", candidate.ID).
		Str("category", string(candidate.Category)).
		Msg("Candidate created")

	respondJSON(w, candidate, http.StatusOK)
}

// GetCandidate handles GET /api/admin/candidates/{id}
func (h *AdminHandler) GetCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, "invalid candidate id", http.StatusBadRequest)
		return
	}

	candidate, err := h.candidateService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, "Candidate not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("candidate_id", id).Msg("Failed to get candidate")
		respondError(w, "Failed to get candidate", http.StatusInternalServerError)
		return
	}

	respondJSON(w, candidate, http.StatusOK)
}

// UpdateCandidate handles PUT /api/admin/candidates/{id}
func (h *AdminHandler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, "invalid candidate id", http.StatusBadRequest)
		return
	}

	var req CandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	candidate, err := h.candidateService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, "Candidate not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("candidate_id", id).Msg("Failed to get candidate")
		respondError(w, "Failed to get candidate", http.StatusInternalServerError)
		return
	}

	if req.Category != nil {
		category, err := models.ParseCategory(*req.Category)
		if err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		candidate.Category = category
	}
	if req.CandidateNumber != nil {
		candidate.CandidateNumber = *req.CandidateNumber
	}
	if req.Name != nil {
		candidate.Name = *req.Name
	}
	if req.Department != nil {
		candidate.Department = *req.Department
	}
	if req.ImageURL != nil {
		candidate.ImageURL = *req.ImageURL
	}

	if err := h.candidateService.Update(r.Context(), candidate); err != nil {
		log.Error().Err(err).Int64("candidate_id", id).Msg("Failed to update candidate")
		respondError(w, "Failed to update candidate", http.StatusInternalServerError)
		return
	}

	respondJSON(w, candidate, http.StatusOK)
}

// DeleteCandidate handles DELETE /api/admin/candidates/{id}
func (h *AdminHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, "invalid candidate id", http.StatusBadRequest)
		return
	}

	if err := h.candidateService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, "Candidate not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("candidate_id", id).Msg("Failed to delete candidate")
		respondError(w, "Failed to delete candidate", http.StatusInternalServerError)
		return
	}

	log.Info().Int64("candidate_id", id).Msg("Candidate deleted")
	w.WriteHeader(http.StatusNoContent)
}

// ImageUploadRequest is the body of a candidate image upload request
type ImageUploadRequest struct {
	ContentType string `json:"content_type"`
}

// PresignCandidateImage handles POST /api/admin/candidates/{id}/image. It
// issues a pre-signed S3 PUT URL and records the image URL on the candidate.
func (h *AdminHandler) PresignCandidateImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, "invalid candidate id", http.StatusBadRequest)
		return
	}

	var req ImageUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContentType == "" {
		req.ContentType = "image/jpeg"
	}

	candidate, err := h.candidateService.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(w, "Candidate not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("candidate_id", id).Msg("Failed to get candidate")
		respondError(w, "Failed to get candidate", http.StatusInternalServerError)
		return
	}

	upload, err := h.imageService.PresignCandidateImage(ctx, candidate.ID, req.ContentType)
	if err != nil {
		log.Error().Err(err).Int64("candidate_id", id).Msg("Failed to generate pre-signed URL")
		respondError(w, "Failed to generate upload URL", http.StatusInternalServerError)
		return
	}

	candidate.ImageURL = upload.ImageURL
	if err := h.candidateService.Update(ctx, candidate); err != nil {
		log.Error().Err(err).Int64("candidate_id", id).Msg("Failed to record image URL")
		respondError(w, "Failed to record image URL", http.StatusInternalServerError)
		return
	}

	log.Info().
		Int64("candidate_id", id).
		Str("image_url", upload.ImageURL).
		Msg("Candidate image upload URL generated")

	respondJSON(w, upload, http.StatusOK)
}

// GetRateLimit handles GET /api/admin/ratelimit/{key}
func (h *AdminHandler) GetRateLimit(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		respondError(w, "key is required", http.StatusBadRequest)
		return
	}

	respondJSON(w, h.limiter.Info(key), http.StatusOK)
}

// ClearRateLimit handles DELETE /api/admin/ratelimit/{key}
func (h *AdminHandler) ClearRateLimit(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		respondError(w, "key is required", http.StatusBadRequest)
		return
	}

	h.limiter.Clear(key)
	log.Info().Str("key", key).Msg("Rate limit cleared")
	w.WriteHeader(http.StatusNoContent)
}
