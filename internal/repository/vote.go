package repository

import (
	"context"
	"fmt"

	"crown-voting-backend/internal/models"
)

// VoteRepository handles database operations for votes
type VoteRepository struct {
	db Querier
}

// Create inserts a vote. The uk_voter_category unique constraint is the
// authoritative duplicate guard: under concurrent submissions for the same
// (voter, category) exactly one insert succeeds and the rest surface
// ErrDuplicateVote.
func (r *VoteRepository) Create(ctx context.Context, vote *models.Vote) error {
	query := `
		INSERT INTO votes (voter_id, candidate_id, category, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, vote.VoterID, vote.CandidateID, vote.Category, vote.CreatedAt).Scan(&vote.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateVote
		}
		return fmt.Errorf("failed to create vote: %w", err)
	}
	return nil
}

// ExistsByVoterAndCategory is a plain existence check with no locking. It is
// a pre-filter only; the unique constraint remains the safety mechanism.
func (r *VoteRepository) ExistsByVoterAndCategory(ctx context.Context, voterID int64, category models.Category) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM votes WHERE voter_id = $1 AND category = $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, voterID, category).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check vote existence: %w", err)
	}
	return exists, nil
}

// CountByCategory counts the votes cast in a category
func (r *VoteRepository) CountByCategory(ctx context.Context, category models.Category) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM votes WHERE category = $1`, category).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes by category: %w", err)
	}
	return count, nil
}

// CountByCandidate counts the votes cast for a candidate
func (r *VoteRepository) CountByCandidate(ctx context.Context, candidateID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM votes WHERE candidate_id = $1`, candidateID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes by candidate: %w", err)
	}
	return count, nil
}
