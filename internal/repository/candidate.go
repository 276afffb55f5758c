package repository

import (
	"context"
	"errors"
	"fmt"

	"crown-voting-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

// CandidateRepository handles database operations for candidates
type CandidateRepository struct {
	db Querier
}

const candidateColumns = `id, category, candidate_number, name, department, image_url, vote_count`

// GetByID retrieves a candidate by ID
func (r *CandidateRepository) GetByID(ctx context.Context, id int64) (*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

// GetByCategoryAndNumber retrieves a candidate by its category and
// per-category number
func (r *CandidateRepository) GetByCategoryAndNumber(ctx context.Context, category models.Category, number int) (*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE category = $1 AND candidate_number = $2`
	return r.scanOne(r.db.QueryRow(ctx, query, category, number))
}

// ListByCategory retrieves the candidates of a category ordered by number
func (r *CandidateRepository) ListByCategory(ctx context.Context, category models.Category) ([]*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE category = $1 ORDER BY candidate_number`
	rows, err := r.db.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return r.scanMany(rows)
}

// ListAll retrieves every candidate ordered by category and number
func (r *CandidateRepository) ListAll(ctx context.Context) ([]*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates ORDER BY category, candidate_number`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return r.scanMany(rows)
}

// Create creates a new candidate
func (r *CandidateRepository) Create(ctx context.Context, candidate *models.Candidate) error {
	query := `
		INSERT INTO candidates (category, candidate_number, name, department, image_url, vote_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		candidate.Category, candidate.CandidateNumber, candidate.Name,
		candidate.Department, candidate.ImageURL, candidate.VoteCount,
	).Scan(&candidate.ID)
	if err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	return nil
}

// Update updates a candidate's attributes. The vote counter is not touched
// here; it only moves through IncrementVoteCount.
func (r *CandidateRepository) Update(ctx context.Context, candidate *models.Candidate) error {
	query := `
		UPDATE candidates
		SET category = $2, candidate_number = $3, name = $4, department = $5, image_url = $6
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		candidate.ID, candidate.Category, candidate.CandidateNumber,
		candidate.Name, candidate.Department, candidate.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update candidate: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a candidate by ID
func (r *CandidateRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementVoteCount bumps the vote counter in a single server-side update.
// The addition happens in the database, so concurrent increments for the
// same candidate never lose updates.
func (r *CandidateRepository) IncrementVoteCount(ctx context.Context, candidateID int64) error {
	query := `UPDATE candidates SET vote_count = vote_count + 1 WHERE id = $1`
	result, err := r.db.Exec(ctx, query, candidateID)
	if err != nil {
		return fmt.Errorf("failed to increment vote count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CandidateRepository) scanOne(row pgx.Row) (*models.Candidate, error) {
	var c models.Candidate
	err := row.Scan(
		&c.ID, &c.Category, &c.CandidateNumber, &c.Name,
		&c.Department, &c.ImageURL, &c.VoteCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return &c, nil
}

func (r *CandidateRepository) scanMany(rows pgx.Rows) ([]*models.Candidate, error) {
	defer rows.Close()

	var candidates []*models.Candidate
	for rows.Next() {
		var c models.Candidate
		err := rows.Scan(
			&c.ID, &c.Category, &c.CandidateNumber, &c.Name,
			&c.Department, &c.ImageURL, &c.VoteCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}
	return candidates, nil
}
