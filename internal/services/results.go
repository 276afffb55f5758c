package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"crown-voting-backend/internal/models"
	"crown-voting-backend/internal/repository"

	"github.com/jellydator/ttlcache/v3"
)

// CandidateResult is one candidate's aggregated standing within a category.
type CandidateResult struct {
	ID              int64   `json:"id"`
	CandidateNumber int     `json:"candidate_number"`
	Name            string  `json:"name"`
	Department      string  `json:"department,omitempty"`
	ImageURL        string  `json:"image_url,omitempty"`
	VoteCount       int64   `json:"vote_count"`
	Percentage      float64 `json:"percentage"`
}

// CategoryResult is the aggregated result of one category.
type CategoryResult struct {
	Category   models.Category   `json:"category"`
	TotalVotes int64             `json:"total_votes"`
	Candidates []CandidateResult `json:"candidates"`
}

// ResultCache holds the short-TTL read caches for results and candidate
// listings. Entries expire after the TTL and are refreshed on access; every
// successful vote write evicts everything through InvalidateAll.
type ResultCache struct {
	results    *ttlcache.Cache[string, *CategoryResult]
	candidates *ttlcache.Cache[string, []*models.Candidate]
}

// NewResultCache creates the read caches with the given TTL and starts
// their expiration loops.
func NewResultCache(ttl time.Duration) *ResultCache {
	c := &ResultCache{
		results:    ttlcache.New(ttlcache.WithTTL[string, *CategoryResult](ttl)),
		candidates: ttlcache.New(ttlcache.WithTTL[string, []*models.Candidate](ttl)),
	}
	go c.results.Start()
	go c.candidates.Start()
	return c
}

// InvalidateAll evicts every cached result and candidate listing.
func (c *ResultCache) InvalidateAll() {
	c.results.DeleteAll()
	c.candidates.DeleteAll()
}

// InvalidateCategory evicts the cached results and candidate listing of one
// category. Candidate administration uses this instead of InvalidateAll so
// untouched categories keep serving from cache.
func (c *ResultCache) InvalidateCategory(category models.Category) {
	c.results.Delete(string(category))
	c.candidates.Delete(string(category))
}

// Stop terminates the cache expiration loops.
func (c *ResultCache) Stop() {
	c.results.Stop()
	c.candidates.Stop()
}

// ResultService serves the aggregated read side: vote counts projected into
// per-candidate percentages, cached with a short TTL.
type ResultService struct {
	store repository.Store
	cache *ResultCache
}

// NewResultService creates a new result service
func NewResultService(store repository.Store, cache *ResultCache) *ResultService {
	return &ResultService{
		store: store,
		cache: cache,
	}
}

// ResultsForCategory returns the aggregated results of a category, candidates
// ordered by number. Percentage is voteCount*100/totalVotes rounded to two
// decimals, 0.0 when the category has no votes yet.
func (s *ResultService) ResultsForCategory(ctx context.Context, category models.Category) (*CategoryResult, error) {
	if item := s.cache.results.Get(string(category)); item != nil {
		return item.Value(), nil
	}

	candidates, err := s.store.Candidates().ListByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	totalVotes, err := s.store.Votes().CountByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}

	result := &CategoryResult{
		Category:   category,
		TotalVotes: totalVotes,
		Candidates: make([]CandidateResult, 0, len(candidates)),
	}
	for _, c := range candidates {
		var percentage float64
		if totalVotes > 0 {
			percentage = math.Round(float64(c.VoteCount)*100/float64(totalVotes)*100) / 100
		}
		result.Candidates = append(result.Candidates, CandidateResult{
			ID:              c.ID,
			CandidateNumber: c.CandidateNumber,
			Name:            c.Name,
			Department:      c.Department,
			ImageURL:        c.ImageURL,
			VoteCount:       c.VoteCount,
			Percentage:      percentage,
		})
	}

	s.cache.results.Set(string(category), result, ttlcache.DefaultTTL)
	return result, nil
}

// AllResults returns the aggregated results of every category.
func (s *ResultService) AllResults(ctx context.Context) ([]*CategoryResult, error) {
	results := make([]*CategoryResult, 0, len(models.Categories))
	for _, category := range models.Categories {
		r, err := s.ResultsForCategory(ctx, category)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
