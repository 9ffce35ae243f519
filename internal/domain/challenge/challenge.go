// Package challenge runs the challenge lifecycle: creation, fee escrow,
// monotone score submission, ranked leaderboards, prize settlement and
// pull-payment withdrawal.
package challenge

import (
	"time"

	"github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/domain/types"
)

// Duration bounds in seconds.
const (
	MinDuration int64 = 3600
	MaxDuration int64 = 30 * 24 * 3600

	// DefaultWinnerSharePct is the share of the prize credited to the top
	// account; the creator receives the rest.
	DefaultWinnerSharePct int64 = 70
)

// State is the lifecycle position of a challenge.
type State int

const (
	StateOpen State = iota
	StateClosed
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Challenge is a snapshot of one challenge.
type Challenge struct {
	ID         uint64        `json:"id"`
	Creator    types.Account `json:"creator"`
	EntryFee   int64         `json:"entry_fee"`
	Duration   int64         `json:"duration"`
	StartTime  time.Time     `json:"start_time"`
	TotalPrize int64         `json:"total_prize"`
	Finalized  bool          `json:"finalized"`
	TopAccount types.Account `json:"top_account,omitempty"`
	TopScore   int64         `json:"top_score"`
}

// EndTime is the first instant at which the challenge no longer accepts
// entries or scores.
func (c Challenge) EndTime() time.Time {
	return c.StartTime.Add(time.Duration(c.Duration) * time.Second)
}

// StateAt derives the lifecycle state at now.
func (c Challenge) StateAt(now time.Time) State {
	switch {
	case c.Finalized:
		return StateFinalized
	case !now.Before(c.EndTime()):
		return StateClosed
	default:
		return StateOpen
	}
}

// View is a challenge snapshot with its derived lifecycle fields.
type View struct {
	Challenge
	State            State     `json:"state"`
	EndTime          time.Time `json:"end_time"`
	ParticipantCount int       `json:"participant_count"`
}

// Tally is what the engine has accumulated for one account across every
// challenge. It feeds the reputation sync job.
type Tally struct {
	Wins          int64 `json:"wins"`
	Participation int64 `json:"participation"`
	ArenaPoints   int64 `json:"arena_points"`
}

// TreasuryInfo describes where settlement residue went.
type TreasuryInfo struct {
	Account types.Account `json:"account,omitempty"`
	Pending int64         `json:"pending"`
	// Untracked is residue left in the general balance because no treasury
	// account is configured.
	Untracked int64 `json:"untracked"`
}

// Split divides prize into the winner share, the creator share and the
// residue left by floor rounding. It never overflows for prize >= 0.
func Split(prize, winnerPct int64) (winner, creator, residual int64) {
	creatorPct := 100 - winnerPct
	winner = prize/100*winnerPct + prize%100*winnerPct/100
	creator = prize/100*creatorPct + prize%100*creatorPct/100
	return winner, creator, prize - winner - creator
}

type record struct {
	Challenge
	board *repository.Board
}
