package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"crown-voting-backend/internal/models"
	"crown-voting-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedVoterSeq keeps generated device IDs unique across seedVotes calls.
var seedVoterSeq atomic.Int64

// seedVotes records n votes for the candidate through the same write path the
// voting service uses: one vote row per distinct voter plus a counter bump.
func seedVotes(t *testing.T, store repository.Store, candidate *models.Candidate, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		voter := &models.Voter{
			PIN:       "142536",
			DeviceID:  fmt.Sprintf("seed-%s-%d-%d", candidate.Category, candidate.CandidateNumber, seedVoterSeq.Add(1)),
			CreatedAt: time.Now(),
		}
		require.NoError(t, store.Voters().Create(ctx, voter))
		require.NoError(t, store.Votes().Create(ctx, &models.Vote{
			VoterID:     voter.ID,
			CandidateID: candidate.ID,
			Category:    candidate.Category,
			CreatedAt:   time.Now(),
		}))
		require.NoError(t, store.Candidates().IncrementVoteCount(ctx, candidate.ID))
	}
}

func newResultFixture(t *testing.T) (*ResultService, repository.Store, *ResultCache) {
	t.Helper()
	store := repository.NewMemoryStore()
	cache := NewResultCache(time.Minute)
	t.Cleanup(cache.Stop)
	return NewResultService(store, cache), store, cache
}

func TestResultsForCategoryPercentages(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newResultFixture(t)

	candidates := []*models.Candidate{
		{Category: models.CategoryKing, CandidateNumber: 1, Name: "Aidas"},
		{Category: models.CategoryKing, CandidateNumber: 2, Name: "Tomas"},
		{Category: models.CategoryKing, CandidateNumber: 3, Name: "Jonas"},
	}
	for _, c := range candidates {
		require.NoError(t, store.Candidates().Create(ctx, c))
	}
	seedVotes(t, store, candidates[0], 10)
	seedVotes(t, store, candidates[1], 5)

	result, err := svc.ResultsForCategory(ctx, models.CategoryKing)
	require.NoError(t, err)

	assert.Equal(t, models.CategoryKing, result.Category)
	assert.Equal(t, int64(15), result.TotalVotes)
	require.Len(t, result.Candidates, 3)

	// Ordered by candidate number, percentages rounded to two decimals.
	assert.Equal(t, int64(10), result.Candidates[0].VoteCount)
	assert.Equal(t, 66.67, result.Candidates[0].Percentage)
	assert.Equal(t, int64(5), result.Candidates[1].VoteCount)
	assert.Equal(t, 33.33, result.Candidates[1].Percentage)
	assert.Equal(t, int64(0), result.Candidates[2].VoteCount)
	assert.Equal(t, 0.0, result.Candidates[2].Percentage)
}

func TestResultsForCategoryEmpty(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newResultFixture(t)

	require.NoError(t, store.Candidates().Create(ctx, &models.Candidate{
		Category: models.CategoryQueen, CandidateNumber: 1, Name: "Greta",
	}))

	result, err := svc.ResultsForCategory(ctx, models.CategoryQueen)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.TotalVotes)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, 0.0, result.Candidates[0].Percentage)
}

func TestResultsAreCachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	svc, store, cache := newResultFixture(t)

	candidate := &models.Candidate{Category: models.CategoryKing, CandidateNumber: 1, Name: "Aidas"}
	require.NoError(t, store.Candidates().Create(ctx, candidate))
	seedVotes(t, store, candidate, 2)

	first, err := svc.ResultsForCategory(ctx, models.CategoryKing)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.TotalVotes)

	// New votes are not visible until the cache is evicted.
	seedVotes(t, store, candidate, 3)
	cached, err := svc.ResultsForCategory(ctx, models.CategoryKing)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cached.TotalVotes)

	cache.InvalidateAll()
	fresh, err := svc.ResultsForCategory(ctx, models.CategoryKing)
	require.NoError(t, err)
	assert.Equal(t, int64(5), fresh.TotalVotes)
}

func TestAllResultsCoversEveryCategory(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newResultFixture(t)

	require.NoError(t, store.Candidates().Create(ctx, &models.Candidate{
		Category: models.CategoryKing, CandidateNumber: 1, Name: "Aidas",
	}))

	results, err := svc.AllResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, len(models.Categories))
	for i, category := range models.Categories {
		assert.Equal(t, category, results[i].Category)
	}
}
