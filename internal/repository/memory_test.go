package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"crown-voting-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVoterDeviceUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := &models.Voter{PIN: "142536", DeviceID: "device-1", CreatedAt: time.Now()}
	require.NoError(t, store.Voters().Create(ctx, first))
	require.NotZero(t, first.ID)

	second := &models.Voter{PIN: "142536", DeviceID: "device-1", CreatedAt: time.Now()}
	err := store.Voters().Create(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicateDevice)

	got, err := store.Voters().GetByDeviceID(ctx, "device-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestMemoryVoteUniquenessPerVoterAndCategory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	voter := &models.Voter{PIN: "142536", DeviceID: "device-1", CreatedAt: time.Now()}
	require.NoError(t, store.Voters().Create(ctx, voter))

	vote := &models.Vote{VoterID: voter.ID, CandidateID: 1, Category: models.CategoryKing, CreatedAt: time.Now()}
	require.NoError(t, store.Votes().Create(ctx, vote))

	// Same voter, same category, different candidate.
	dup := &models.Vote{VoterID: voter.ID, CandidateID: 2, Category: models.CategoryKing, CreatedAt: time.Now()}
	err := store.Votes().Create(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateVote)

	// Same voter, another category is fine.
	other := &models.Vote{VoterID: voter.ID, CandidateID: 3, Category: models.CategoryQueen, CreatedAt: time.Now()}
	assert.NoError(t, store.Votes().Create(ctx, other))
}

func TestMemoryWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	candidate := &models.Candidate{Category: models.CategoryKing, CandidateNumber: 1, Name: "Aidas"}
	require.NoError(t, store.Candidates().Create(ctx, candidate))

	voter := &models.Voter{PIN: "142536", DeviceID: "device-1", CreatedAt: time.Now()}
	require.NoError(t, store.Voters().Create(ctx, voter))

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx Store) error {
		if err := tx.Votes().Create(ctx, &models.Vote{
			VoterID: voter.ID, CandidateID: candidate.ID, Category: models.CategoryKing, CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		if err := tx.Candidates().IncrementVoteCount(ctx, candidate.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := store.Votes().ExistsByVoterAndCategory(ctx, voter.ID, models.CategoryKing)
	require.NoError(t, err)
	assert.False(t, exists, "vote must not survive a rolled back transaction")

	got, err := store.Candidates().GetByID(ctx, candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.VoteCount, "counter bump must roll back")
}

func TestMemoryWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	candidate := &models.Candidate{Category: models.CategoryKing, CandidateNumber: 1, Name: "Aidas"}
	require.NoError(t, store.Candidates().Create(ctx, candidate))
	voter := &models.Voter{PIN: "142536", DeviceID: "device-1", CreatedAt: time.Now()}
	require.NoError(t, store.Voters().Create(ctx, voter))

	err := store.WithinTx(ctx, func(tx Store) error {
		if err := tx.Votes().Create(ctx, &models.Vote{
			VoterID: voter.ID, CandidateID: candidate.ID, Category: models.CategoryKing, CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		if err := tx.Candidates().IncrementVoteCount(ctx, candidate.ID); err != nil {
			return err
		}
		return tx.Voters().MarkVoted(ctx, voter.ID, time.Now())
	})
	require.NoError(t, err)

	got, err := store.Candidates().GetByID(ctx, candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.VoteCount)

	v, err := store.Voters().GetByDeviceID(ctx, "device-1")
	require.NoError(t, err)
	assert.True(t, v.HasVoted)
}

func TestMemoryMarkVotedKeepsFirstStamp(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	voter := &models.Voter{PIN: "142536", DeviceID: "device-1", CreatedAt: time.Now()}
	require.NoError(t, store.Voters().Create(ctx, voter))

	first := time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC)
	require.NoError(t, store.Voters().MarkVoted(ctx, voter.ID, first))

	// A second mark, as when two first votes race, must not move the stamp.
	require.NoError(t, store.Voters().MarkVoted(ctx, voter.ID, first.Add(time.Minute)))

	got, err := store.Voters().GetByDeviceID(ctx, "device-1")
	require.NoError(t, err)
	assert.True(t, got.HasVoted)
	require.NotNil(t, got.VotedAt)
	assert.Equal(t, first, *got.VotedAt)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	candidate := &models.Candidate{Category: models.CategoryKing, CandidateNumber: 1, Name: "Aidas"}
	require.NoError(t, store.Candidates().Create(ctx, candidate))

	got, err := store.Candidates().GetByID(ctx, candidate.ID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := store.Candidates().GetByID(ctx, candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aidas", again.Name)
}

func TestMemoryCandidateListing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, c := range []*models.Candidate{
		{Category: models.CategoryKing, CandidateNumber: 3, Name: "C"},
		{Category: models.CategoryKing, CandidateNumber: 1, Name: "A"},
		{Category: models.CategoryQueen, CandidateNumber: 2, Name: "B"},
	} {
		require.NoError(t, store.Candidates().Create(ctx, c))
	}

	kings, err := store.Candidates().ListByCategory(ctx, models.CategoryKing)
	require.NoError(t, err)
	require.Len(t, kings, 2)
	assert.Equal(t, 1, kings[0].CandidateNumber)
	assert.Equal(t, 3, kings[1].CandidateNumber)

	all, err := store.Candidates().ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryCandidateDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	candidate := &models.Candidate{Category: models.CategoryKing, CandidateNumber: 1, Name: "Aidas"}
	require.NoError(t, store.Candidates().Create(ctx, candidate))
	require.NoError(t, store.Candidates().Delete(ctx, candidate.ID))

	_, err := store.Candidates().GetByID(ctx, candidate.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Candidates().Delete(ctx, candidate.ID), ErrNotFound)
}
