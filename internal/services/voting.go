package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crown-voting-backend/internal/models"
	"crown-voting-backend/internal/repository"
)

// ResultInvalidator evicts cached read-side data after successful writes so
// readers never see stale counts beyond one write's latency.
type ResultInvalidator interface {
	InvalidateAll()
}

// VoteItem is one (category, candidate number) pair of a bulk submission.
type VoteItem struct {
	Category        models.Category `json:"category"`
	CandidateNumber int             `json:"candidate_number"`
}

// VotingService orchestrates vote submission. It performs fast non-locking
// prechecks and relies on the storage uniqueness constraints as the
// authoritative guard: under concurrent submissions for one (device,
// category) exactly one commit wins and the rest get a conflict.
type VotingService struct {
	store repository.Store
	cache ResultInvalidator
}

// NewVotingService creates a new voting service
func NewVotingService(store repository.Store, cache ResultInvalidator) *VotingService {
	return &VotingService{
		store: store,
		cache: cache,
	}
}

// SubmitVote submits a single vote for a category.
// Returns ErrAlreadyVoted, ErrDuplicateVote, ErrCandidateNotFound or
// ErrVoterConflict for the expected rejection paths.
func (s *VotingService) SubmitVote(ctx context.Context, deviceID, pin string, category models.Category, candidateNumber int) error {
	// Device precheck: fast short-circuit, not the safety mechanism.
	voter, err := s.store.Voters().GetByDeviceID(ctx, deviceID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up voter: %w", err)
	}
	if voter != nil {
		if voter.HasVoted {
			return ErrAlreadyVoted
		}
		voted, err := s.store.Votes().ExistsByVoterAndCategory(ctx, voter.ID, category)
		if err != nil {
			return fmt.Errorf("failed to check existing vote: %w", err)
		}
		if voted {
			return ErrAlreadyVoted
		}
	}

	voter, err = s.getOrCreateVoter(ctx, pin, deviceID)
	if err != nil {
		return err
	}

	// Category precheck against the now-resolved voter.
	voted, err := s.store.Votes().ExistsByVoterAndCategory(ctx, voter.ID, category)
	if err != nil {
		return fmt.Errorf("failed to check existing vote: %w", err)
	}
	if voted {
		return ErrAlreadyVoted
	}

	candidate, err := s.store.Candidates().GetByCategoryAndNumber(ctx, category, candidateNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCandidateNotFound
		}
		return fmt.Errorf("failed to resolve candidate: %w", err)
	}

	// One unit of work: vote insert, atomic counter bump, has-voted flag.
	now := time.Now()
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		vote := &models.Vote{
			VoterID:     voter.ID,
			CandidateID: candidate.ID,
			Category:    category,
			CreatedAt:   now,
		}
		if err := tx.Votes().Create(ctx, vote); err != nil {
			return err
		}
		if err := tx.Candidates().IncrementVoteCount(ctx, candidate.ID); err != nil {
			return err
		}
		if !voter.HasVoted {
			if err := tx.Voters().MarkVoted(ctx, voter.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateVote) {
			// Another submission won the constraint race; the transaction
			// rolled back. Expected outcome under contention.
			return ErrDuplicateVote
		}
		return fmt.Errorf("failed to persist vote: %w", err)
	}

	s.cache.InvalidateAll()
	return nil
}

// SubmitBulkVotes submits votes for several categories as one atomic unit of
// work. Every item is validated before anything is written; any failure,
// including a uniqueness violation on a single item, rolls the whole batch
// back.
func (s *VotingService) SubmitBulkVotes(ctx context.Context, deviceID, pin string, items []VoteItem) error {
	if len(items) == 0 {
		return fmt.Errorf("no votes provided")
	}
	seen := make(map[models.Category]bool, len(items))
	for _, item := range items {
		if seen[item.Category] {
			return ErrDuplicateVote
		}
		seen[item.Category] = true
	}

	// Device precheck across all requested categories.
	voter, err := s.store.Voters().GetByDeviceID(ctx, deviceID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up voter: %w", err)
	}
	if voter != nil {
		if voter.HasVoted {
			return ErrAlreadyVoted
		}
		for _, item := range items {
			voted, err := s.store.Votes().ExistsByVoterAndCategory(ctx, voter.ID, item.Category)
			if err != nil {
				return fmt.Errorf("failed to check existing vote: %w", err)
			}
			if voted {
				return ErrAlreadyVoted
			}
		}
	}

	voter, err = s.getOrCreateVoter(ctx, pin, deviceID)
	if err != nil {
		return err
	}

	// Validate every pair before writing anything: fail fast, no partial
	// writes attempted.
	candidates := make([]*models.Candidate, len(items))
	for i, item := range items {
		voted, err := s.store.Votes().ExistsByVoterAndCategory(ctx, voter.ID, item.Category)
		if err != nil {
			return fmt.Errorf("failed to check existing vote: %w", err)
		}
		if voted {
			return ErrAlreadyVoted
		}

		candidate, err := s.store.Candidates().GetByCategoryAndNumber(ctx, item.Category, item.CandidateNumber)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCandidateNotFound
			}
			return fmt.Errorf("failed to resolve candidate: %w", err)
		}
		candidates[i] = candidate
	}

	now := time.Now()
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		for i, item := range items {
			vote := &models.Vote{
				VoterID:     voter.ID,
				CandidateID: candidates[i].ID,
				Category:    item.Category,
				CreatedAt:   now,
			}
			if err := tx.Votes().Create(ctx, vote); err != nil {
				return err
			}
			if err := tx.Candidates().IncrementVoteCount(ctx, candidates[i].ID); err != nil {
				return err
			}
		}
		if !voter.HasVoted {
			if err := tx.Voters().MarkVoted(ctx, voter.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateVote) {
			return ErrDuplicateVote
		}
		return fmt.Errorf("failed to persist bulk votes: %w", err)
	}

	s.cache.InvalidateAll()
	return nil
}

// getOrCreateVoter resolves the voter for a device, creating it on first
// contact. Losing the creation race to a concurrent request is expected
// contention: the winner's row is re-read and returned. An existing voter's
// PIN is never overwritten.
func (s *VotingService) getOrCreateVoter(ctx context.Context, pin, deviceID string) (*models.Voter, error) {
	voter, err := s.store.Voters().GetByDeviceID(ctx, deviceID)
	if err == nil {
		return voter, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up voter: %w", err)
	}

	newVoter := &models.Voter{
		PIN:       pin,
		DeviceID:  deviceID,
		CreatedAt: time.Now(),
	}
	err = s.store.Voters().Create(ctx, newVoter)
	if err == nil {
		return newVoter, nil
	}
	if !errors.Is(err, repository.ErrDuplicateDevice) {
		return nil, fmt.Errorf("failed to create voter: %w", err)
	}

	voter, err = s.store.Voters().GetByDeviceID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVoterConflict
		}
		return nil, fmt.Errorf("failed to re-read voter after conflict: %w", err)
	}
	return voter, nil
}

// HasVoted reports whether any voter created with the given PIN has voted in
// the category. PINs are shared, so this is informational only.
func (s *VotingService) HasVoted(ctx context.Context, pin string, category models.Category) (bool, error) {
	voter, err := s.store.Voters().GetByPIN(ctx, pin)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up voter by pin: %w", err)
	}
	return s.store.Votes().ExistsByVoterAndCategory(ctx, voter.ID, category)
}

// DeviceHasVoted reports whether the device has cast any vote.
func (s *VotingService) DeviceHasVoted(ctx context.Context, deviceID string) (bool, error) {
	voter, err := s.store.Voters().GetByDeviceID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up voter: %w", err)
	}
	return voter.HasVoted, nil
}
