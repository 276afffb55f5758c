package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is a contest category a device may vote in once.
type Category string

const (
	CategoryKing     Category = "KING"
	CategoryQueen    Category = "QUEEN"
	CategoryPrince   Category = "PRINCE"
	CategoryPrincess Category = "PRINCESS"
	CategoryCouple   Category = "COUPLE"
)

// Categories lists all contest categories in display order.
var Categories = []Category{
	CategoryKing,
	CategoryQueen,
	CategoryPrince,
	CategoryPrincess,
	CategoryCouple,
}

// ParseCategory converts a string into a Category, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CategoryKing, CategoryQueen, CategoryPrince, CategoryPrincess, CategoryCouple:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Candidate represents a contestant within a category. CandidateNumber is
// unique within its category. VoteCount is only ever mutated by an atomic
// server-side increment, never read-modify-write.
type Candidate struct {
	ID              int64    `json:"id"`
	Category        Category `json:"category"`
	CandidateNumber int      `json:"candidate_number"`
	Name            string   `json:"name"`
	Department      string   `json:"department,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	VoteCount       int64    `json:"vote_count"`
}

// Voter represents one physical/network device. DeviceID is the identity key
// and is unique; the PIN is shared across devices and recorded only for
// reference at creation time.
type Voter struct {
	ID        int64      `json:"id"`
	PIN       string     `json:"-"`
	DeviceID  string     `json:"device_id"`
	HasVoted  bool       `json:"has_voted"`
	CreatedAt time.Time  `json:"created_at"`
	VotedAt   *time.Time `json:"voted_at,omitempty"`
}

// Vote links a voter to a candidate in a category. At most one Vote may exist
// per (voter, category); the votes table enforces this with a unique
// constraint. Votes are immutable once created.
type Vote struct {
	ID          int64     `json:"id"`
	VoterID     int64     `json:"voter_id"`
	CandidateID int64     `json:"candidate_id"`
	Category    Category  `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}
