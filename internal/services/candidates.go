package services

import (
	"context"
	"fmt"

	"crown-voting-backend/internal/models"
	"crown-voting-backend/internal/repository"

	"github.com/jellydator/ttlcache/v3"
)

// CandidateService serves candidate listings (cached) and the admin CRUD
// surface. Candidates are seeded and administered here, outside the voting
// core.
type CandidateService struct {
	store repository.Store
	cache *ResultCache
}

// NewCandidateService creates a new candidate service
func NewCandidateService(store repository.Store, cache *ResultCache) *CandidateService {
	return &CandidateService{
		store: store,
		cache: cache,
	}
}

// CandidatesForCategory returns the candidates of a category ordered by
// number, from cache when fresh.
func (s *CandidateService) CandidatesForCategory(ctx context.Context, category models.Category) ([]*models.Candidate, error) {
	if item := s.cache.candidates.Get(string(category)); item != nil {
		return item.Value(), nil
	}

	candidates, err := s.store.Candidates().ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	s.cache.candidates.Set(string(category), candidates, ttlcache.DefaultTTL)
	return candidates, nil
}

// ListAll returns every candidate, for the admin dashboard.
func (s *CandidateService) ListAll(ctx context.Context) ([]*models.Candidate, error) {
	return s.store.Candidates().ListAll(ctx)
}

// GetByID returns a candidate by id. Returns repository.ErrNotFound when it
// does not exist.
func (s *CandidateService) GetByID(ctx context.Context, id int64) (*models.Candidate, error) {
	return s.store.Candidates().GetByID(ctx, id)
}

// Create adds a new candidate and evicts its category's read caches.
func (s *CandidateService) Create(ctx context.Context, candidate *models.Candidate) error {
	if err := s.store.Candidates().Create(ctx, candidate); err != nil {
		return err
	}
	s.cache.InvalidateCategory(candidate.Category)
	return nil
}

// Update rewrites a candidate's display attributes and evicts the affected
// categories' read caches, the previous category included when the candidate
// moved. The vote counter is not writable through this path.
func (s *CandidateService) Update(ctx context.Context, candidate *models.Candidate) error {
	previous, err := s.store.Candidates().GetByID(ctx, candidate.ID)
	if err != nil {
		return err
	}

	if err := s.store.Candidates().Update(ctx, candidate); err != nil {
		return err
	}
	s.cache.InvalidateCategory(candidate.Category)
	if previous.Category != candidate.Category {
		s.cache.InvalidateCategory(previous.Category)
	}
	return nil
}

// Delete removes a candidate and evicts its category's read caches.
func (s *CandidateService) Delete(ctx context.Context, id int64) error {
	candidate, err := s.store.Candidates().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Candidates().Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateCategory(candidate.Category)
	return nil
}
