package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crown-voting-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

// VoterRepository handles database operations for voters
type VoterRepository struct {
	db Querier
}

// GetByDeviceID retrieves a voter by device identifier
func (r *VoterRepository) GetByDeviceID(ctx context.Context, deviceID string) (*models.Voter, error) {
	query := `
		SELECT id, pin, device_id, has_voted, created_at, voted_at
		FROM voters
		WHERE device_id = $1
	`
	var voter models.Voter
	err := r.db.QueryRow(ctx, query, deviceID).Scan(
		&voter.ID, &voter.PIN, &voter.DeviceID, &voter.HasVoted, &voter.CreatedAt, &voter.VotedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get voter by device id: %w", err)
	}
	return &voter, nil
}

// GetByPIN retrieves any voter created with the given PIN. PINs are shared,
// so the first match is returned.
func (r *VoterRepository) GetByPIN(ctx context.Context, pin string) (*models.Voter, error) {
	query := `
		SELECT id, pin, device_id, has_voted, created_at, voted_at
		FROM voters
		WHERE pin = $1
		LIMIT 1
	`
	var voter models.Voter
	err := r.db.QueryRow(ctx, query, pin).Scan(
		&voter.ID, &voter.PIN, &voter.DeviceID, &voter.HasVoted, &voter.CreatedAt, &voter.VotedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get voter by pin: %w", err)
	}
	return &voter, nil
}

// Create creates a new voter. The device_id unique constraint turns a lost
// creation race into ErrDuplicateDevice.
func (r *VoterRepository) Create(ctx context.Context, voter *models.Voter) error {
	query := `
		INSERT INTO voters (pin, device_id, has_voted, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, voter.PIN, voter.DeviceID, voter.HasVoted, voter.CreatedAt).Scan(&voter.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateDevice
		}
		return fmt.Errorf("failed to create voter: %w", err)
	}
	return nil
}

// MarkVoted sets the has-voted flag and stamps the first vote time. The
// COALESCE keeps an already-set stamp when two first votes commit
// concurrently.
func (r *VoterRepository) MarkVoted(ctx context.Context, voterID int64, votedAt time.Time) error {
	query := `UPDATE voters SET has_voted = true, voted_at = COALESCE(voted_at, $2) WHERE id = $1`
	result, err := r.db.Exec(ctx, query, voterID, votedAt)
	if err != nil {
		return fmt.Errorf("failed to mark voter as voted: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
