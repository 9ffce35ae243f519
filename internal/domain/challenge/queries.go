package challenge

import (
	"fmt"
	"sort"

	"github.com/okian/arena/internal/domain/types"
)

func (e *Engine) lookup(op string, id uint64) (*record, error) {
	r, ok := e.challenges[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	return r, nil
}

// Challenge returns a snapshot of challenge id.
func (e *Engine) Challenge(id uint64) (Challenge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.lookup("challenge.get", id)
	if err != nil {
		return Challenge{}, err
	}
	return r.Challenge, nil
}

// View returns challenge id with its state as of now.
func (e *Engine) View(id uint64) (View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.lookup("challenge.view", id)
	if err != nil {
		return View{}, err
	}
	return View{
		Challenge:        r.Challenge,
		State:            r.StateAt(e.clock.Now()),
		EndTime:          r.EndTime(),
		ParticipantCount: r.board.Len(),
	}, nil
}

// State returns the lifecycle state of challenge id as of now.
func (e *Engine) State(id uint64) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.lookup("challenge.state", id)
	if err != nil {
		return StateOpen, err
	}
	return r.StateAt(e.clock.Now()), nil
}

// ParticipantCount returns the number of entries in challenge id.
func (e *Engine) ParticipantCount(id uint64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.lookup("challenge.participant_count", id)
	if err != nil {
		return 0, err
	}
	return r.board.Len(), nil
}

// Participants returns the accounts of challenge id in entry order.
func (e *Engine) Participants(id uint64) ([]types.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.lookup("challenge.participants", id)
	if err != nil {
		return nil, err
	}
	return r.board.Members(), nil
}

// Leaderboard returns every participant of challenge id by score, highest
// first; equal scores keep entry order.
func (e *Engine) Leaderboard(id uint64) ([]types.Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.lookup("challenge.leaderboard", id)
	if err != nil {
		return nil, err
	}
	all := r.board.All()
	out := make([]types.Entry, len(all))
	for i, s := range all {
		out[i] = types.Entry{Rank: i + 1, Account: s.Account, Score: s.Score}
	}
	return out, nil
}

// Rank returns account's 1-based position in challenge id.
func (e *Engine) Rank(id uint64, account types.Account) (int, error) {
	const op = "challenge.rank"
	e.mu.Lock()
	defer e.mu.Unlock()
	r, err := e.lookup(op, id)
	if err != nil {
		return 0, err
	}
	rank, err := r.board.Rank(account)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	return rank, nil
}

// ChallengeIDCounter returns the id of the most recently created challenge.
func (e *Engine) ChallengeIDCounter() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastID
}

// PendingWithdrawal returns the balance account may withdraw.
func (e *Engine) PendingWithdrawal(account types.Account) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending[account]
}

// TotalPending returns the sum of every pending balance.
func (e *Engine) TotalPending() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var sum int64
	for _, v := range e.pending {
		sum += v
	}
	return sum
}

// Tally returns what the engine has accumulated for account.
func (e *Engine) Tally(account types.Account) Tally {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.tallies[account]; ok {
		return *t
	}
	return Tally{}
}

// Tallied returns every account with a tally, sorted.
func (e *Engine) Tallied() []types.Account {
	e.mu.Lock()
	out := make([]types.Account, 0, len(e.tallies))
	for a := range e.tallies {
		out = append(out, a)
	}
	e.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Escrowed returns the sum of the prize pools of unfinalized challenges.
func (e *Engine) Escrowed() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.escrowed
}

// Treasury reports where settlement residue was credited.
func (e *Engine) Treasury() TreasuryInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	info := TreasuryInfo{Account: e.treasury, Untracked: e.untracked}
	if !e.treasury.IsZero() {
		info.Pending = e.pending[e.treasury]
	}
	return info
}

// Counts returns the number of challenges by state as of now.
func (e *Engine) Counts() map[State]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	out := map[State]int{StateOpen: 0, StateClosed: 0, StateFinalized: 0}
	for _, r := range e.challenges {
		out[r.StateAt(now)]++
	}
	return out
}
