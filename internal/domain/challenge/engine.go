package challenge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/domain/access"
	"github.com/okian/arena/internal/domain/guard"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/types"
)

// Engine owns every challenge, participant entry and pending balance.
// All mutations are serialized by a single mutex and validate before they
// mutate, so an operation either applies fully or not at all.
type Engine struct {
	mu         sync.Mutex
	challenges map[uint64]*record
	lastID     uint64
	pending    map[types.Account]int64
	tallies    map[types.Account]*Tally
	escrowed   int64
	untracked  int64
	// held is escrow plus pending balances, in-flight withdrawals and
	// untracked residue. It never exceeds math.MaxInt64, which bounds every
	// other balance the engine keeps.
	held int64

	clock       clockwork.Clock
	gate        Gate
	policy      access.Policy
	payer       Payer
	emitter     model.Emitter
	guard       guard.Guard
	minDuration int64
	maxDuration int64
	winnerPct   int64
	treasury    types.Account
}

var denyGate = gateFunc(func(types.Account) bool { return false })

type gateFunc func(types.Account) bool

func (f gateFunc) Has(a types.Account) bool { return f(a) }

var errNoPayer = errors.New("no payer configured")

type noPayer struct{}

func (noPayer) Pay(context.Context, types.Account, int64) error { return errNoPayer }

// NewEngine creates an engine with no challenges. Without WithGate nobody
// may create or enter; without WithPayer every withdrawal fails.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		challenges:  make(map[uint64]*record),
		pending:     make(map[types.Account]int64),
		tallies:     make(map[types.Account]*Tally),
		clock:       clockwork.NewRealClock(),
		gate:        denyGate,
		policy:      access.DenyAll,
		payer:       noPayer{},
		emitter:     model.Discard,
		guard:       guard.New(),
		minDuration: MinDuration,
		maxDuration: MaxDuration,
		winnerPct:   DefaultWinnerSharePct,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) tally(a types.Account) *Tally {
	t, ok := e.tallies[a]
	if !ok {
		t = &Tally{}
		e.tallies[a] = t
	}
	return t
}

// CreateChallenge opens a new challenge owned by caller, starting now.
func (e *Engine) CreateChallenge(ctx context.Context, caller types.Account, entryFee, duration int64) (Challenge, error) {
	const op = "challenge.create"
	if !e.gate.Has(caller) {
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrRequiresIdentity)
	}
	if entryFee <= 0 {
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrInvalidEntryFee)
	}
	if duration < e.minDuration || duration > e.maxDuration {
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrInvalidDuration)
	}

	e.mu.Lock()
	now := e.clock.Now().UTC()
	e.lastID++
	r := &record{
		Challenge: Challenge{
			ID:        e.lastID,
			Creator:   caller,
			EntryFee:  entryFee,
			Duration:  duration,
			StartTime: now,
		},
		board: repository.NewBoard(),
	}
	e.challenges[r.ID] = r
	out := r.Challenge
	e.mu.Unlock()

	ev := model.NewEvent(model.KindChallengeCreated, now)
	ev.ChallengeID = out.ID
	ev.Creator = caller
	ev.EntryFee = entryFee
	ev.Duration = duration
	e.emitter.Emit(ctx, ev)
	return out, nil
}

// EnterChallenge escrows paid into challenge id and enrolls caller with a
// zero score.
func (e *Engine) EnterChallenge(ctx context.Context, caller types.Account, id uint64, paid int64) (Challenge, error) {
	const op = "challenge.enter"

	e.mu.Lock()
	r, ok := e.challenges[id]
	if !ok {
		e.mu.Unlock()
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	if !e.gate.Has(caller) {
		e.mu.Unlock()
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrRequiresIdentity)
	}
	now := e.clock.Now().UTC()
	if r.StateAt(now) != StateOpen {
		e.mu.Unlock()
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrExpired)
	}
	if _, entered := r.board.Get(caller); entered {
		e.mu.Unlock()
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrAlreadyEntered)
	}
	if paid != r.EntryFee {
		e.mu.Unlock()
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrIncorrectFee)
	}

	if paid > math.MaxInt64-e.held {
		e.mu.Unlock()
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrAmountOverflow)
	}

	if _, err := r.board.Add(caller); err != nil {
		e.mu.Unlock()
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrAlreadyEntered)
	}
	r.TotalPrize += paid
	e.escrowed += paid
	e.held += paid
	t := e.tally(caller)
	t.Participation = satAdd(t.Participation, 1)
	out := r.Challenge
	e.mu.Unlock()

	ev := model.NewEvent(model.KindParticipantEntered, now)
	ev.ChallengeID = id
	ev.Account = caller
	ev.Amount = paid
	e.emitter.Emit(ctx, ev)
	return out, nil
}

// SubmitScore records a strictly higher score for caller and returns the
// caller's rank after the update.
func (e *Engine) SubmitScore(ctx context.Context, caller types.Account, id uint64, score int64) (int, error) {
	const op = "challenge.submit_score"

	e.mu.Lock()
	r, ok := e.challenges[id]
	if !ok {
		e.mu.Unlock()
		return 0, fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	if r.Finalized {
		e.mu.Unlock()
		return 0, fmt.Errorf("%s: %w", op, types.ErrFinalized)
	}
	now := e.clock.Now().UTC()
	if r.StateAt(now) != StateOpen {
		e.mu.Unlock()
		return 0, fmt.Errorf("%s: %w", op, types.ErrExpired)
	}
	current, entered := r.board.Get(caller)
	if !entered {
		e.mu.Unlock()
		return 0, fmt.Errorf("%s: %w", op, types.ErrNotParticipant)
	}
	if score <= 0 {
		e.mu.Unlock()
		return 0, fmt.Errorf("%s: %w", op, types.ErrInvalidScore)
	}
	if score <= current.Score {
		e.mu.Unlock()
		return 0, fmt.Errorf("%s: %w", op, types.ErrScoreMustIncrease)
	}

	if _, err := r.board.Set(caller, score); err != nil {
		e.mu.Unlock()
		return 0, fmt.Errorf("%s: %w", op, types.ErrNotParticipant)
	}
	// Strictly greater: the first account to reach the top score keeps it.
	if score > r.TopScore {
		r.TopScore = score
		r.TopAccount = caller
	}
	rank, _ := r.board.Rank(caller)
	e.mu.Unlock()

	ev := model.NewEvent(model.KindScoreSubmitted, now)
	ev.ChallengeID = id
	ev.Account = caller
	ev.Score = score
	ev.Rank = rank
	e.emitter.Emit(ctx, ev)
	return rank, nil
}

// FinalizeChallenge settles a closed challenge: the top account is credited
// the winner share and the creator the remainder. Residue goes to the
// treasury when one is configured.
func (e *Engine) FinalizeChallenge(ctx context.Context, caller types.Account, id uint64) (Challenge, error) {
	const op = "challenge.finalize"

	e.mu.Lock()
	r, ok := e.challenges[id]
	if !ok {
		e.mu.Unlock()
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrNotFound)
	}
	if caller != r.Creator && !e.policy.IsAdmin(caller) {
		e.mu.Unlock()
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrUnauthorized)
	}
	now := e.clock.Now().UTC()
	if now.Before(r.EndTime()) {
		e.mu.Unlock()
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrStillActive)
	}
	if r.Finalized {
		e.mu.Unlock()
		return Challenge{}, fmt.Errorf("%s: %w", op, types.ErrAlreadyFinalized)
	}

	r.Finalized = true
	e.escrowed -= r.TotalPrize

	winnerShare, creatorShare, residual := Split(r.TotalPrize, e.winnerPct)
	if r.TopAccount.IsZero() {
		residual += winnerShare
	} else if winnerShare > 0 {
		e.pending[r.TopAccount] += winnerShare
	}
	if creatorShare > 0 {
		e.pending[r.Creator] += creatorShare
	}
	if residual > 0 {
		if e.treasury.IsZero() {
			e.untracked += residual
		} else {
			e.pending[e.treasury] += residual
		}
	}

	// Credits above cannot overflow: each is bounded by held. Tallies are
	// statistics and saturate instead.
	if !r.TopAccount.IsZero() {
		t := e.tally(r.TopAccount)
		t.Wins = satAdd(t.Wins, 1)
	}
	for _, s := range r.board.All() {
		t := e.tally(s.Account)
		t.ArenaPoints = satAdd(t.ArenaPoints, s.Score)
	}
	out := r.Challenge
	e.mu.Unlock()

	ev := model.NewEvent(model.KindChallengeFinalized, now)
	ev.ChallengeID = id
	ev.Creator = out.Creator
	ev.Winner = out.TopAccount
	ev.Amount = out.TotalPrize
	ev.Score = out.TopScore
	e.emitter.Emit(ctx, ev)
	return out, nil
}

// Withdraw pays caller's whole pending balance. The balance is zeroed before
// the transfer and restored if the transfer fails. A second withdrawal by the
// same caller while one is in flight fails with ErrReentrant.
func (e *Engine) Withdraw(ctx context.Context, caller types.Account) (int64, error) {
	const op = "challenge.withdraw"
	key := "withdraw:" + caller.String()
	if !e.guard.Enter(ctx, key) {
		return 0, fmt.Errorf("%s: %w", op, types.ErrReentrant)
	}
	defer e.guard.Leave(ctx, key)

	e.mu.Lock()
	amount := e.pending[caller]
	if amount <= 0 {
		e.mu.Unlock()
		return 0, fmt.Errorf("%s: %w", op, types.ErrNothingToWithdraw)
	}
	delete(e.pending, caller)
	e.mu.Unlock()

	if err := e.payer.Pay(ctx, caller, amount); err != nil {
		e.mu.Lock()
		e.pending[caller] += amount
		e.mu.Unlock()
		return 0, fmt.Errorf("%s: %w: %w", op, types.ErrTransferFailed, err)
	}
	e.mu.Lock()
	e.held -= amount
	e.mu.Unlock()

	ev := model.NewEvent(model.KindWithdrawalProcessed, e.clock.Now().UTC())
	ev.Account = caller
	ev.Amount = amount
	e.emitter.Emit(ctx, ev)
	return amount, nil
}

// satAdd adds two non-negative values, clamping at math.MaxInt64.
func satAdd(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}
