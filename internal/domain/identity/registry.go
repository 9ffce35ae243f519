// Package identity issues and stores the one-per-account, non-transferable
// identity record that gates arena participation.
package identity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/arena/internal/domain/access"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/types"
)

// Record is the identity held by one account.
type Record struct {
	ID            uint64        `json:"id"`
	Owner         types.Account `json:"owner"`
	Reputation    int64         `json:"reputation"`
	ArenaPoints   int64         `json:"arena_points"`
	Wins          int64         `json:"wins"`
	Participation int64         `json:"participation"`
	CreatedAt     time.Time     `json:"created_at"`
	LastUpdated   time.Time     `json:"last_updated"`
}

// Stats are the numeric fields overwritten by UpdateStats.
type Stats struct {
	Reputation    int64 `json:"reputation"`
	ArenaPoints   int64 `json:"arena_points"`
	Wins          int64 `json:"wins"`
	Participation int64 `json:"participation"`
}

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithClock sets the timestamp source.
func WithClock(c clockwork.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithPolicy sets the policy deciding who may update stats.
func WithPolicy(p access.Policy) Option {
	return func(r *Registry) {
		if p != nil {
			r.policy = p
		}
	}
}

// WithEmitter sets the event sink.
func WithEmitter(e model.Emitter) Option {
	return func(r *Registry) {
		if e != nil {
			r.emitter = e
		}
	}
}

// Registry owns every identity record. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	byAccount map[types.Account]*Record
	byID      map[uint64]types.Account
	lastID    uint64

	clock   clockwork.Clock
	policy  access.Policy
	emitter model.Emitter
}

// NewRegistry creates an empty registry. Without WithPolicy nobody may
// update stats.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byAccount: make(map[types.Account]*Record),
		byID:      make(map[uint64]types.Account),
		clock:     clockwork.NewRealClock(),
		policy:    access.DenyAll,
		emitter:   model.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mint creates the identity record for account.
func (r *Registry) Mint(ctx context.Context, account types.Account) (Record, error) {
	const op = "identity.mint"
	if account.IsZero() {
		return Record{}, fmt.Errorf("%s: %w", op, types.ErrInvalidAccount)
	}

	r.mu.Lock()
	if _, ok := r.byAccount[account]; ok {
		r.mu.Unlock()
		return Record{}, fmt.Errorf("%s: %w", op, types.ErrAlreadyRegistered)
	}
	now := r.clock.Now().UTC()
	r.lastID++
	rec := &Record{
		ID:          r.lastID,
		Owner:       account,
		CreatedAt:   now,
		LastUpdated: now,
	}
	r.byAccount[account] = rec
	r.byID[rec.ID] = account
	out := *rec
	r.mu.Unlock()

	e := model.NewEvent(model.KindIdentityMinted, now)
	e.Account = account
	e.IdentityID = out.ID
	r.emitter.Emit(ctx, e)
	return out, nil
}

// Record returns the identity held by account.
func (r *Registry) Record(account types.Account) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byAccount[account]
	if !ok {
		return Record{}, fmt.Errorf("identity.record: %w", types.ErrNotRegistered)
	}
	return *rec, nil
}

// RecordByID returns the identity with the given id.
func (r *Registry) RecordByID(id uint64) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.byID[id]
	if !ok {
		return Record{}, fmt.Errorf("identity.record_by_id: %w", types.ErrNotFound)
	}
	return *r.byAccount[account], nil
}

// Has reports whether account holds an identity.
func (r *Registry) Has(account types.Account) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byAccount[account]
	return ok
}

// Count returns the number of issued identities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAccount)
}

// Accounts returns every registered account ordered by identity id.
func (r *Registry) Accounts() []types.Account {
	r.mu.RLock()
	ids := make([]uint64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]types.Account, len(ids))
	for i, id := range ids {
		out[i] = r.byID[id]
	}
	r.mu.RUnlock()
	return out
}

// UpdateStats overwrites the numeric fields of account's record. Only callers
// admitted by the policy may update stats; reputation is taken as supplied.
func (r *Registry) UpdateStats(ctx context.Context, caller, account types.Account, s Stats) (Record, error) {
	const op = "identity.update_stats"
	if !r.policy.IsAdmin(caller) {
		return Record{}, fmt.Errorf("%s: %w", op, types.ErrUnauthorized)
	}
	if account.IsZero() {
		return Record{}, fmt.Errorf("%s: %w", op, types.ErrInvalidAccount)
	}
	if s.Reputation < 0 || s.ArenaPoints < 0 || s.Wins < 0 || s.Participation < 0 {
		return Record{}, fmt.Errorf("%s: %w", op, types.ErrInvalidStats)
	}

	r.mu.Lock()
	rec, ok := r.byAccount[account]
	if !ok {
		r.mu.Unlock()
		return Record{}, fmt.Errorf("%s: %w", op, types.ErrNotRegistered)
	}
	now := r.clock.Now().UTC()
	rec.Reputation = s.Reputation
	rec.ArenaPoints = s.ArenaPoints
	rec.Wins = s.Wins
	rec.Participation = s.Participation
	rec.LastUpdated = now
	out := *rec
	r.mu.Unlock()

	e := model.NewEvent(model.KindStatsUpdated, now)
	e.Account = account
	e.IdentityID = out.ID
	e.Score = out.Reputation
	r.emitter.Emit(ctx, e)
	return out, nil
}

// Transfer always fails: identity records are bound to their owner.
func (r *Registry) Transfer(_ context.Context, _, _, _ types.Account, _ uint64) error {
	return fmt.Errorf("identity.transfer: %w", types.ErrNonTransferable)
}

// Approve always fails; there is no delegated transfer pathway.
func (r *Registry) Approve(_ context.Context, _, _ types.Account, _ uint64) error {
	return fmt.Errorf("identity.approve: %w", types.ErrNonTransferable)
}

// SetApprovalForAll always fails; there is no bulk transfer pathway.
func (r *Registry) SetApprovalForAll(_ context.Context, _, _ types.Account, _ bool) error {
	return fmt.Errorf("identity.set_approval_for_all: %w", types.ErrNonTransferable)
}
