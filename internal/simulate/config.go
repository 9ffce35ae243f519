// Package simulate drives the arena HTTP API through a complete challenge
// round on an in-process server and checks every balance it produces.
package simulate

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/okian/arena/internal/domain/challenge"
	"github.com/okian/arena/internal/domain/types"
)

// Default run parameters.
const (
	DefaultEntryFee int64 = 1_000_000_000_000_000_000
	DefaultDuration int64 = 86400
	DefaultTimeout        = 10 * time.Second

	// maxExtraScore keeps every extra player below the winning score.
	maxExtraScore = 1400
)

// Fixed accounts of the scenario.
var (
	Admin   = types.NewAccount("0xad00000000000000000000000000000000000001")
	Creator = types.NewAccount("0xc000000000000000000000000000000000000001")
	PlayerA = types.NewAccount("0xa000000000000000000000000000000000000001")
	PlayerB = types.NewAccount("0xb000000000000000000000000000000000000001")
)

// Scores submitted by the two named players.
const (
	ScoreA int64 = 1000
	ScoreB int64 = 1500
)

var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds the parameters of one run.
type Config struct {
	EntryFee       int64
	Duration       int64
	ExtraPlayers   int           // players entered concurrently besides A and B
	Workers        int           // concurrent clients for extra players
	WinnerSharePct int64
	Timeout        time.Duration // HTTP request timeout
	JournalPath    string        // optional sqlite event journal
	Verbose        bool
}

// DefaultConfig returns the two-player scenario with a 1e18 entry fee.
func DefaultConfig() Config {
	return Config{
		EntryFee:       DefaultEntryFee,
		Duration:       DefaultDuration,
		Workers:        4,
		WinnerSharePct: challenge.DefaultWinnerSharePct,
		Timeout:        DefaultTimeout,
	}
}

// Validate rejects parameters the service itself would refuse or whose
// prize pool would overflow.
func (c Config) Validate() error {
	switch {
	case c.EntryFee <= 0:
		return fmt.Errorf("%w: entry fee must be positive", ErrInvalidConfig)
	case c.Duration < challenge.MinDuration || c.Duration > challenge.MaxDuration:
		return fmt.Errorf("%w: duration must be in [%d, %d]", ErrInvalidConfig, challenge.MinDuration, challenge.MaxDuration)
	case c.ExtraPlayers < 0:
		return fmt.Errorf("%w: extra players must not be negative", ErrInvalidConfig)
	case c.WinnerSharePct <= 0 || c.WinnerSharePct >= 100:
		return fmt.Errorf("%w: winner share must be in [1, 99]", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if c.EntryFee > math.MaxInt64/int64(c.players()) {
		return fmt.Errorf("%w: prize pool of %d players overflows", ErrInvalidConfig, c.players())
	}
	if w, cr, _ := challenge.Split(c.EntryFee*int64(c.players()), c.WinnerSharePct); w == 0 || cr == 0 {
		return fmt.Errorf("%w: entry fee too small to pay both winner and creator", ErrInvalidConfig)
	}
	return nil
}

func (c Config) players() int { return 2 + c.ExtraPlayers }

func (c Config) workers() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

// Report summarizes a run.
type Report struct {
	ChallengeID  uint64
	Prize        int64
	Participants int
	Leaderboard  []types.Entry
	Balances     map[types.Account]int64
	Reputation   map[types.Account]int64
	Checks       []Check
	StartTime    time.Time
	Duration     time.Duration
}

// Check is one verified expectation.
type Check struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the checks that did not pass.
func (r *Report) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}
