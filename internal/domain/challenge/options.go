package challenge

import (
	"github.com/jonboulle/clockwork"
	"github.com/okian/arena/internal/domain/access"
	"github.com/okian/arena/internal/domain/guard"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/types"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock sets the time source used for every window check.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithGate sets the identity gate for create and enter.
func WithGate(g Gate) Option {
	return func(e *Engine) {
		if g != nil {
			e.gate = g
		}
	}
}

// WithPolicy sets the administrator policy for finalization.
func WithPolicy(p access.Policy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithPayer sets the outgoing transfer collaborator.
func WithPayer(p Payer) Option {
	return func(e *Engine) {
		if p != nil {
			e.payer = p
		}
	}
}

// WithEmitter sets the event sink.
func WithEmitter(em model.Emitter) Option {
	return func(e *Engine) {
		if em != nil {
			e.emitter = em
		}
	}
}

// WithGuard sets the in-flight guard protecting withdrawals.
func WithGuard(g guard.Guard) Option {
	return func(e *Engine) {
		if g != nil {
			e.guard = g
		}
	}
}

// WithDurationBounds narrows the accepted duration range in seconds.
// Invalid ranges are ignored.
func WithDurationBounds(minSec, maxSec int64) Option {
	return func(e *Engine) {
		if minSec > 0 && maxSec >= minSec {
			e.minDuration = minSec
			e.maxDuration = maxSec
		}
	}
}

// WithWinnerSharePct sets the winner's percentage of the prize (0..100).
func WithWinnerSharePct(pct int64) Option {
	return func(e *Engine) {
		if pct >= 0 && pct <= 100 {
			e.winnerPct = pct
		}
	}
}

// WithTreasury credits settlement residue to account's pending balance.
func WithTreasury(account types.Account) Option {
	return func(e *Engine) {
		if !account.IsZero() {
			e.treasury = account
		}
	}
}
