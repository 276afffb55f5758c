package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"crown-voting-backend/internal/models"
)

// MemoryStore is an in-memory Store used by tests and local development. It
// enforces the same uniqueness rules as the Postgres schema (device_id on
// voters, (voter_id, category) on votes) so the services behave identically
// against either backend.
type MemoryStore struct {
	state *memState
	inTx  bool
}

type voteKey struct {
	voterID  int64
	category models.Category
}

type memState struct {
	mu sync.Mutex

	voters         map[int64]*models.Voter
	votersByDevice map[string]int64
	candidates     map[int64]*models.Candidate
	votes          map[int64]*models.Vote
	votesByKey     map[voteKey]int64

	nextVoterID     int64
	nextCandidateID int64
	nextVoteID      int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		voters:         make(map[int64]*models.Voter),
		votersByDevice: make(map[string]int64),
		candidates:     make(map[int64]*models.Candidate),
		votes:          make(map[int64]*models.Vote),
		votesByKey:     make(map[voteKey]int64),
	}}
}

func (s *MemoryStore) Voters() VoterStore         { return &memVoters{s} }
func (s *MemoryStore) Candidates() CandidateStore { return &memCandidates{s} }
func (s *MemoryStore) Votes() VoteStore           { return &memVotes{s} }

// WithinTx serializes the unit of work under the store lock and restores a
// snapshot of the state when fn fails, so partial effects are never
// observable.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&MemoryStore{state: s.state, inTx: true}); err != nil {
		s.state.restore(snapshot)
		return err
	}
	return nil
}

// lock acquires the state lock unless already held by an enclosing
// transaction. It returns the matching unlock.
func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.state.mu.Lock()
	return s.state.mu.Unlock
}

func (st *memState) clone() *memState {
	c := &memState{
		voters:          make(map[int64]*models.Voter, len(st.voters)),
		votersByDevice:  make(map[string]int64, len(st.votersByDevice)),
		candidates:      make(map[int64]*models.Candidate, len(st.candidates)),
		votes:           make(map[int64]*models.Vote, len(st.votes)),
		votesByKey:      make(map[voteKey]int64, len(st.votesByKey)),
		nextVoterID:     st.nextVoterID,
		nextCandidateID: st.nextCandidateID,
		nextVoteID:      st.nextVoteID,
	}
	for id, v := range st.voters {
		cp := *v
		c.voters[id] = &cp
	}
	for dev, id := range st.votersByDevice {
		c.votersByDevice[dev] = id
	}
	for id, cd := range st.candidates {
		cp := *cd
		c.candidates[id] = &cp
	}
	for id, v := range st.votes {
		cp := *v
		c.votes[id] = &cp
	}
	for k, id := range st.votesByKey {
		c.votesByKey[k] = id
	}
	return c
}

func (st *memState) restore(snapshot *memState) {
	st.voters = snapshot.voters
	st.votersByDevice = snapshot.votersByDevice
	st.candidates = snapshot.candidates
	st.votes = snapshot.votes
	st.votesByKey = snapshot.votesByKey
	st.nextVoterID = snapshot.nextVoterID
	st.nextCandidateID = snapshot.nextCandidateID
	st.nextVoteID = snapshot.nextVoteID
}

type memVoters struct{ s *MemoryStore }

func (m *memVoters) GetByDeviceID(ctx context.Context, deviceID string) (*models.Voter, error) {
	defer m.s.lock()()
	id, ok := m.s.state.votersByDevice[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.s.state.voters[id]
	return &cp, nil
}

func (m *memVoters) GetByPIN(ctx context.Context, pin string) (*models.Voter, error) {
	defer m.s.lock()()
	var found *models.Voter
	for _, v := range m.s.state.voters {
		if v.PIN == pin && (found == nil || v.ID < found.ID) {
			found = v
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (m *memVoters) Create(ctx context.Context, voter *models.Voter) error {
	defer m.s.lock()()
	st := m.s.state
	if _, exists := st.votersByDevice[voter.DeviceID]; exists {
		return ErrDuplicateDevice
	}
	st.nextVoterID++
	voter.ID = st.nextVoterID
	cp := *voter
	st.voters[voter.ID] = &cp
	st.votersByDevice[voter.DeviceID] = voter.ID
	return nil
}

func (m *memVoters) MarkVoted(ctx context.Context, voterID int64, votedAt time.Time) error {
	defer m.s.lock()()
	v, ok := m.s.state.voters[voterID]
	if !ok {
		return ErrNotFound
	}
	v.HasVoted = true
	if v.VotedAt == nil {
		t := votedAt
		v.VotedAt = &t
	}
	return nil
}

type memCandidates struct{ s *MemoryStore }

func (m *memCandidates) GetByID(ctx context.Context, id int64) (*models.Candidate, error) {
	defer m.s.lock()()
	c, ok := m.s.state.candidates[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCandidates) GetByCategoryAndNumber(ctx context.Context, category models.Category, number int) (*models.Candidate, error) {
	defer m.s.lock()()
	for _, c := range m.s.state.candidates {
		if c.Category == category && c.CandidateNumber == number {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memCandidates) ListByCategory(ctx context.Context, category models.Category) ([]*models.Candidate, error) {
	defer m.s.lock()()
	var out []*models.Candidate
	for _, c := range m.s.state.candidates {
		if c.Category == category {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CandidateNumber < out[j].CandidateNumber })
	return out, nil
}

func (m *memCandidates) ListAll(ctx context.Context) ([]*models.Candidate, error) {
	defer m.s.lock()()
	var out []*models.Candidate
	for _, c := range m.s.state.candidates {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].CandidateNumber < out[j].CandidateNumber
	})
	return out, nil
}

func (m *memCandidates) Create(ctx context.Context, candidate *models.Candidate) error {
	defer m.s.lock()()
	st := m.s.state
	st.nextCandidateID++
	candidate.ID = st.nextCandidateID
	cp := *candidate
	st.candidates[candidate.ID] = &cp
	return nil
}

func (m *memCandidates) Update(ctx context.Context, candidate *models.Candidate) error {
	defer m.s.lock()()
	existing, ok := m.s.state.candidates[candidate.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Category = candidate.Category
	existing.CandidateNumber = candidate.CandidateNumber
	existing.Name = candidate.Name
	existing.Department = candidate.Department
	existing.ImageURL = candidate.ImageURL
	return nil
}

func (m *memCandidates) Delete(ctx context.Context, id int64) error {
	defer m.s.lock()()
	if _, ok := m.s.state.candidates[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.state.candidates, id)
	return nil
}

func (m *memCandidates) IncrementVoteCount(ctx context.Context, candidateID int64) error {
	defer m.s.lock()()
	c, ok := m.s.state.candidates[candidateID]
	if !ok {
		return ErrNotFound
	}
	c.VoteCount++
	return nil
}

type memVotes struct{ s *MemoryStore }

func (m *memVotes) Create(ctx context.Context, vote *models.Vote) error {
	defer m.s.lock()()
	st := m.s.state
	key := voteKey{voterID: vote.VoterID, category: vote.Category}
	if _, exists := st.votesByKey[key]; exists {
		return ErrDuplicateVote
	}
	st.nextVoteID++
	vote.ID = st.nextVoteID
	cp := *vote
	st.votes[vote.ID] = &cp
	st.votesByKey[key] = vote.ID
	return nil
}

func (m *memVotes) ExistsByVoterAndCategory(ctx context.Context, voterID int64, category models.Category) (bool, error) {
	defer m.s.lock()()
	_, exists := m.s.state.votesByKey[voteKey{voterID: voterID, category: category}]
	return exists, nil
}

func (m *memVotes) CountByCategory(ctx context.Context, category models.Category) (int64, error) {
	defer m.s.lock()()
	var count int64
	for _, v := range m.s.state.votes {
		if v.Category == category {
			count++
		}
	}
	return count, nil
}

func (m *memVotes) CountByCandidate(ctx context.Context, candidateID int64) (int64, error) {
	defer m.s.lock()()
	var count int64
	for _, v := range m.s.state.votes {
		if v.CandidateID == candidateID {
			count++
		}
	}
	return count, nil
}
