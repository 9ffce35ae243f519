package service

import (
	"context"
	"fmt"

	"github.com/okian/arena/internal/domain/identity"
	"github.com/okian/arena/internal/domain/reputation"
	"github.com/okian/arena/internal/domain/types"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SyncReputation copies the engine's tallies onto the identity records of
// every account that has arena activity and recomputes their reputation.
// Accounts without activity keep whatever stats the admin last wrote. It
// returns the number of records updated.
func (s *Service) SyncReputation(ctx context.Context, caller types.Account) (updated int, err error) {
	ctx, done := s.observe(ctx, "reputation.sync", callerAttr(caller))
	defer func() { done(err) }()

	if !s.policy.IsAdmin(caller) {
		metrics.RecordReputationSync("unauthorized", 0, 0)
		return 0, fmt.Errorf("reputation.sync: %w", types.ErrUnauthorized)
	}

	for _, account := range s.engine.Tallied() {
		if err := ctx.Err(); err != nil {
			metrics.RecordReputationSync("canceled", updated, 0)
			return updated, err
		}
		if !s.registry.Has(account) {
			continue
		}
		t := s.engine.Tally(account)
		st := identity.Stats{
			Reputation:    reputation.Calculate(t.Wins, t.Participation, t.ArenaPoints),
			ArenaPoints:   t.ArenaPoints,
			Wins:          t.Wins,
			Participation: t.Participation,
		}
		if _, err := s.registry.UpdateStats(ctx, caller, account, st); err != nil {
			metrics.RecordReputationSync("error", updated, 0)
			return updated, fmt.Errorf("reputation.sync %s: %w", account, err)
		}
		updated++
	}

	metrics.RecordReputationSync("ok", updated, s.clock.Now().Unix())
	s.logger.Info(ctx, "reputation synced", logger.Int("accounts", updated))
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("arena.accounts", updated))
	return updated, nil
}
