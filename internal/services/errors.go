package services

import "errors"

// Domain outcomes of vote submission. Conflicts and missing candidates are
// expected control flow under contention, so they are explicit error values
// callers must handle, never raw storage errors.
var (
	// ErrAlreadyVoted means the device or voter already voted in the
	// requested category. Detected by a precheck; non-retryable.
	ErrAlreadyVoted = errors.New("already voted in this category")
	// ErrDuplicateVote means the storage-level unique constraint rejected
	// the insert. Same user-facing outcome as ErrAlreadyVoted.
	ErrDuplicateVote = errors.New("duplicate vote detected")
	// ErrCandidateNotFound means no candidate matches the requested
	// (category, number) pair.
	ErrCandidateNotFound = errors.New("candidate not found")
	// ErrVoterConflict means voter creation lost a race and the winning row
	// could not be re-read. Retryable by the caller.
	ErrVoterConflict = errors.New("voter registration conflict, please retry")
)
