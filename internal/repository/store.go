package repository

import (
	"context"
	"errors"
	"time"

	"crown-voting-backend/internal/models"
)

// Storage-level outcomes the services care about. Unique-constraint
// violations are translated into these here and never leak out as raw
// driver errors.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateVote indicates the (voter, category) unique constraint
	// rejected a vote insert. This is the authoritative duplicate guard.
	ErrDuplicateVote = errors.New("duplicate vote")
	// ErrDuplicateDevice indicates another writer already created a voter
	// row for the same device id.
	ErrDuplicateDevice = errors.New("duplicate device")
)

// VoterStore handles persistence for voters (one row per device).
type VoterStore interface {
	// GetByDeviceID looks a voter up by its device identifier.
	GetByDeviceID(ctx context.Context, deviceID string) (*models.Voter, error)
	// GetByPIN returns any voter created with the given PIN. PINs are
	// shared, so this is a convenience lookup, not an identity lookup.
	GetByPIN(ctx context.Context, pin string) (*models.Voter, error)
	// Create inserts a new voter and fills in its ID. Returns
	// ErrDuplicateDevice when the device id already exists.
	Create(ctx context.Context, voter *models.Voter) error
	// MarkVoted sets the has-voted flag and stamps the first-vote time.
	MarkVoted(ctx context.Context, voterID int64, votedAt time.Time) error
}

// CandidateStore handles persistence for candidates.
type CandidateStore interface {
	GetByID(ctx context.Context, id int64) (*models.Candidate, error)
	GetByCategoryAndNumber(ctx context.Context, category models.Category, number int) (*models.Candidate, error)
	ListByCategory(ctx context.Context, category models.Category) ([]*models.Candidate, error)
	ListAll(ctx context.Context) ([]*models.Candidate, error)
	Create(ctx context.Context, candidate *models.Candidate) error
	Update(ctx context.Context, candidate *models.Candidate) error
	Delete(ctx context.Context, id int64) error
	// IncrementVoteCount bumps the counter server-side (vote_count =
	// vote_count + 1) so concurrent increments never lose updates.
	IncrementVoteCount(ctx context.Context, candidateID int64) error
}

// VoteStore handles persistence for votes.
type VoteStore interface {
	// Create inserts a vote and fills in its ID. Returns ErrDuplicateVote
	// when the (voter, category) unique constraint is violated.
	Create(ctx context.Context, vote *models.Vote) error
	ExistsByVoterAndCategory(ctx context.Context, voterID int64, category models.Category) (bool, error)
	CountByCategory(ctx context.Context, category models.Category) (int64, error)
	CountByCandidate(ctx context.Context, candidateID int64) (int64, error)
}

// Store bundles the per-table stores and provides atomic units of work.
type Store interface {
	Voters() VoterStore
	Candidates() CandidateStore
	Votes() VoteStore
	// WithinTx runs fn against transaction-scoped stores. The transaction
	// commits when fn returns nil and rolls back otherwise; partial effects
	// are never observable.
	WithinTx(ctx context.Context, fn func(Store) error) error
}
