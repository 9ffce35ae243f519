// Package service wires the identity registry, the challenge engine and the
// event pipeline into the dependency set required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/okian/arena/internal/adapters/journal"
	eventqueue "github.com/okian/arena/internal/adapters/mq/queue"
	workerpool "github.com/okian/arena/internal/adapters/mq/worker"
	"github.com/okian/arena/internal/adapters/wallet"
	"github.com/okian/arena/internal/domain/access"
	"github.com/okian/arena/internal/domain/challenge"
	"github.com/okian/arena/internal/domain/identity"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/types"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/okian/arena/internal/app"

// ErrStopped is returned when starting a service that was already stopped.
var ErrStopped = errors.New("service was stopped")

// Service implements the API dependencies for the arena.
type Service struct {
	mu sync.RWMutex

	registry *identity.Registry
	engine   *challenge.Engine
	policy   access.Policy
	queue    *eventqueue.InMemoryQueue
	pool     *workerpool.Pool
	journal  *journal.Store
	sched    gocron.Scheduler
	payer    challenge.Payer
	clock    clockwork.Clock
	tracer   trace.Tracer

	workerCount  int
	queueSize    int
	admin        types.Account
	treasury     types.Account
	winnerPct    int64
	minDuration  int64
	maxDuration  int64
	journalPath  string
	syncInterval time.Duration

	started bool
	stopped bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. The domain is usable right away; Start brings up
// the event workers, the journal and the sync job.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  2,
		queueSize:    10_000,
		winnerPct:    challenge.DefaultWinnerSharePct,
		minDuration:  challenge.MinDuration,
		maxDuration:  challenge.MaxDuration,
		syncInterval: 5 * time.Minute,
		clock:        clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.payer == nil {
		s.payer = wallet.New()
	}

	if s.admin.IsZero() {
		s.policy = access.DenyAll
	} else {
		s.policy = access.NewStatic(s.admin)
	}
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.registry = identity.NewRegistry(
		identity.WithClock(s.clock),
		identity.WithPolicy(s.policy),
		identity.WithEmitter(s.queue),
	)
	s.engine = challenge.NewEngine(
		challenge.WithClock(s.clock),
		challenge.WithGate(s.registry),
		challenge.WithPolicy(s.policy),
		challenge.WithPayer(s.payer),
		challenge.WithEmitter(s.queue),
		challenge.WithDurationBounds(s.minDuration, s.maxDuration),
		challenge.WithWinnerSharePct(s.winnerPct),
		challenge.WithTreasury(s.treasury),
	)
	return s
}

// Start opens the journal, starts the worker pool and schedules the
// reputation sync job.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting arena service...")

	handlers := []workerpool.Handler{
		workerpool.HandlerFunc(s.logEvent),
		workerpool.HandlerFunc(s.observeEvent),
	}
	if s.journalPath != "" {
		store, err := journal.Open(s.journalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		s.journal = store
		handlers = append(handlers, journalHandler(store))
		s.logger.Info(ctx, "event journal enabled", logger.String("path", s.journalPath))
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.pool = workerpool.NewPool(s.workerCount, s.queue, handlers...)
	s.pool.Start(runCtx)

	if err := s.startScheduler(runCtx); err != nil {
		cancel()
		_ = s.pool.Shutdown(ctx)
		if s.journal != nil {
			_ = s.journal.Close()
			s.journal = nil
		}
		return err
	}

	s.started = true
	s.logger.Info(ctx, "arena service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("journal", s.journal != nil),
		logger.Duration("syncInterval", s.syncInterval),
	)
	return nil
}

func (s *Service) startScheduler(ctx context.Context) error {
	if s.syncInterval <= 0 {
		return nil
	}
	if s.admin.IsZero() {
		s.logger.Warn(ctx, "reputation sync disabled: no admin account configured")
		return nil
	}

	sched, err := gocron.NewScheduler(gocron.WithClock(s.clock))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.syncInterval),
		gocron.NewTask(func() {
			if _, err := s.SyncReputation(ctx, s.admin); err != nil {
				s.logger.Error(ctx, "reputation sync failed", logger.Error(err))
			}
		}),
		gocron.WithName("reputation-sync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule reputation sync: %w", err)
	}
	sched.Start()
	s.sched = sched
	return nil
}

// Stop gracefully shuts down the scheduler, drains the event queue and
// closes the journal.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping arena service...")

	var errs []error
	if s.sched != nil {
		if err := s.sched.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown scheduler: %w", err))
		}
		s.sched = nil
	}
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown workers: %w", err))
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
		s.journal = nil
	}

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "arena service stopped")
	return errors.Join(errs...)
}

// observe opens a span for op and returns the function that closes it with
// the operation outcome.
func (s *Service) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		defer span.End()
		outcome := "ok"
		if err != nil {
			outcome = types.KindOf(err).String()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if types.KindOf(err) == types.KindUnknown || types.KindOf(err) == types.KindExternal {
				s.logger.Error(ctx, "operation failed", logger.String("op", op), logger.Error(err))
			} else {
				s.logger.Debug(ctx, "operation rejected", logger.String("op", op), logger.Error(err))
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
		metrics.RecordOperation(op, outcome, float64(time.Since(start).Microseconds())/1000)
	}
}

func callerAttr(a types.Account) attribute.KeyValue {
	return attribute.String("arena.caller", a.String())
}

func challengeAttr(id uint64) attribute.KeyValue {
	return attribute.Int64("arena.challenge_id", int64(id)) //nolint:gosec // ids are small counters
}

// IsAdmin reports whether caller holds the privileged role.
func (s *Service) IsAdmin(caller types.Account) bool {
	return s.policy.IsAdmin(caller)
}

// MintIdentity issues the identity record for caller.
func (s *Service) MintIdentity(ctx context.Context, caller types.Account) (rec identity.Record, err error) {
	ctx, done := s.observe(ctx, "identity.mint", callerAttr(caller))
	defer func() { done(err) }()
	return s.registry.Mint(ctx, caller)
}

// Identity returns account's record.
func (s *Service) Identity(ctx context.Context, account types.Account) (identity.Record, error) {
	_, span := s.tracer.Start(ctx, "identity.get")
	defer span.End()
	return s.registry.Record(account)
}

// TokenMetadata renders the metadata document of identity id.
func (s *Service) TokenMetadata(ctx context.Context, id uint64) (identity.Metadata, error) {
	_, span := s.tracer.Start(ctx, "identity.metadata")
	defer span.End()
	return s.registry.TokenMetadata(id)
}

// TokenURI returns the metadata document of identity id as a data URI.
func (s *Service) TokenURI(ctx context.Context, id uint64) (string, error) {
	_, span := s.tracer.Start(ctx, "identity.token_uri")
	defer span.End()
	return s.registry.TokenURI(id)
}

// TransferIdentity always fails: identities are bound to their owner.
func (s *Service) TransferIdentity(ctx context.Context, caller, to types.Account, id uint64) (err error) {
	ctx, done := s.observe(ctx, "identity.transfer", callerAttr(caller))
	defer func() { done(err) }()
	return s.registry.Transfer(ctx, caller, caller, to, id)
}

// UpdateStats overwrites account's stats; caller must be the admin.
func (s *Service) UpdateStats(ctx context.Context, caller, account types.Account, st identity.Stats) (rec identity.Record, err error) {
	ctx, done := s.observe(ctx, "identity.update_stats", callerAttr(caller))
	defer func() { done(err) }()
	return s.registry.UpdateStats(ctx, caller, account, st)
}

// CreateChallenge opens a challenge owned by caller.
func (s *Service) CreateChallenge(ctx context.Context, caller types.Account, entryFee, duration int64) (c challenge.Challenge, err error) {
	ctx, done := s.observe(ctx, "challenge.create", callerAttr(caller),
		attribute.Int64("arena.entry_fee", entryFee), attribute.Int64("arena.duration", duration))
	defer func() { done(err) }()
	return s.engine.CreateChallenge(ctx, caller, entryFee, duration)
}

// EnterChallenge enters caller into challenge id with paid escrowed.
func (s *Service) EnterChallenge(ctx context.Context, caller types.Account, id uint64, paid int64) (c challenge.Challenge, err error) {
	ctx, done := s.observe(ctx, "challenge.enter", callerAttr(caller), challengeAttr(id))
	defer func() { done(err) }()
	return s.engine.EnterChallenge(ctx, caller, id, paid)
}

// SubmitScore records caller's score and returns the resulting rank.
func (s *Service) SubmitScore(ctx context.Context, caller types.Account, id uint64, score int64) (rank int, err error) {
	ctx, done := s.observe(ctx, "challenge.submit_score", callerAttr(caller), challengeAttr(id),
		attribute.Int64("arena.score", score))
	defer func() { done(err) }()
	return s.engine.SubmitScore(ctx, caller, id, score)
}

// FinalizeChallenge settles challenge id.
func (s *Service) FinalizeChallenge(ctx context.Context, caller types.Account, id uint64) (c challenge.Challenge, err error) {
	ctx, done := s.observe(ctx, "challenge.finalize", callerAttr(caller), challengeAttr(id))
	defer func() { done(err) }()
	return s.engine.FinalizeChallenge(ctx, caller, id)
}

// Withdraw pays out caller's pending balance.
func (s *Service) Withdraw(ctx context.Context, caller types.Account) (amount int64, err error) {
	ctx, done := s.observe(ctx, "challenge.withdraw", callerAttr(caller))
	defer func() { done(err) }()

	amount, err = s.engine.Withdraw(ctx, caller)
	switch {
	case err == nil:
		metrics.RecordWithdrawal("ok", amount)
	case errors.Is(err, types.ErrTransferFailed):
		metrics.RecordWithdrawal("transfer_failed", 0)
	default:
		metrics.RecordWithdrawal("rejected", 0)
	}
	return amount, err
}

// Challenge returns challenge id with its state at the current time.
func (s *Service) Challenge(ctx context.Context, id uint64) (challenge.View, error) {
	_, span := s.tracer.Start(ctx, "challenge.get", trace.WithAttributes(challengeAttr(id)))
	defer span.End()
	return s.engine.View(id)
}

// Participants returns the entrants of challenge id in entry order.
func (s *Service) Participants(_ context.Context, id uint64) ([]types.Account, error) {
	return s.engine.Participants(id)
}

// Leaderboard returns the ranked standings of challenge id.
func (s *Service) Leaderboard(ctx context.Context, id uint64) ([]types.Entry, error) {
	_, span := s.tracer.Start(ctx, "challenge.leaderboard", trace.WithAttributes(challengeAttr(id)))
	defer span.End()
	return s.engine.Leaderboard(id)
}

// Rank returns account's 1-based position in challenge id.
func (s *Service) Rank(_ context.Context, id uint64, account types.Account) (int, error) {
	return s.engine.Rank(id, account)
}

// ChallengeIDCounter returns the id of the most recently created challenge.
func (s *Service) ChallengeIDCounter(context.Context) uint64 {
	return s.engine.ChallengeIDCounter()
}

// PendingWithdrawal returns account's withdrawable balance.
func (s *Service) PendingWithdrawal(_ context.Context, account types.Account) int64 {
	return s.engine.PendingWithdrawal(account)
}

// Events queries the journal.
func (s *Service) Events(ctx context.Context, f journal.Filter) ([]model.Event, error) {
	s.mu.RLock()
	store := s.journal
	s.mu.RUnlock()
	if store == nil {
		return nil, journal.ErrDisabled
	}
	return store.List(ctx, f)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	counts := s.engine.Counts()
	byState := make(map[string]int, len(counts))
	for st, n := range counts {
		byState[st.String()] = n
	}
	treasury := s.engine.Treasury()

	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"queueLength":    s.queue.Len(ctx),
		"eventsDropped":  s.queue.Dropped(),
		"identities":     s.registry.Count(),
		"challenges":     byState,
		"challengeCount": s.engine.ChallengeIDCounter(),
		"escrowed":       s.engine.Escrowed(),
		"pending":        s.engine.TotalPending(),
		"untracked":      treasury.Untracked,
		"winnerSharePct": s.winnerPct,
		"journal":        s.journal != nil,
	}
	if s.pool != nil && s.started {
		stats["eventsProcessed"] = s.pool.Processed()
		stats["activeWorkers"] = s.pool.Active()
	}
	return stats
}
