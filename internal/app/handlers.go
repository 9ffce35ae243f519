package service

import (
	"context"

	"github.com/okian/arena/internal/adapters/journal"
	workerpool "github.com/okian/arena/internal/adapters/mq/worker"
	"github.com/okian/arena/internal/domain/challenge"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// logEvent writes every event at debug level.
func (s *Service) logEvent(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: Event is passed by value through the queue
	s.logger.Debug(ctx, "event",
		logger.String("id", e.ID),
		logger.String("kind", string(e.Kind)),
		logger.String("account", e.Account.String()),
		logger.Uint64("challenge_id", e.ChallengeID),
		logger.Int64("amount", e.Amount),
	)
	return nil
}

// observeEvent refreshes the state gauges and counts settlement payouts.
func (s *Service) observeEvent(_ context.Context, e model.Event) error { //nolint:gocritic // hugeParam
	switch e.Kind {
	case model.KindIdentityMinted:
		metrics.UpdateIdentities(s.registry.Count())
	case model.KindChallengeFinalized:
		winner, creator, residual := challenge.Split(e.Amount, s.winnerPct)
		if e.Winner.IsZero() {
			residual += winner
			winner = 0
		}
		metrics.RecordPayout("winner", winner)
		metrics.RecordPayout("creator", creator)
		metrics.RecordPayout("residual", residual)
	}

	counts := s.engine.Counts()
	for _, st := range []challenge.State{challenge.StateOpen, challenge.StateClosed, challenge.StateFinalized} {
		metrics.UpdateChallenges(st.String(), counts[st])
	}
	metrics.UpdateEscrowed(s.engine.Escrowed())
	metrics.UpdatePendingBalances(s.engine.TotalPending())
	return nil
}

// journalHandler appends every event to store.
func journalHandler(store *journal.Store) workerpool.HandlerFunc {
	return func(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam
		if err := store.Handle(ctx, e); err != nil {
			metrics.RecordJournalWrite("error")
			return err
		}
		metrics.RecordJournalWrite("ok")
		return nil
	}
}
