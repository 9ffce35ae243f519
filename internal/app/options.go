package service

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/arena/internal/domain/challenge"
	"github.com/okian/arena/internal/domain/types"
	"github.com/okian/arena/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of event workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAdmin grants account the privileged role.
func WithAdmin(account string) Option {
	return func(s *Service) {
		if a := types.NewAccount(account); !a.IsZero() {
			s.admin = a
		}
	}
}

// WithTreasury routes settlement residue to account.
func WithTreasury(account string) Option {
	return func(s *Service) {
		s.treasury = types.NewAccount(account)
	}
}

// WithWinnerSharePct sets the prize percentage paid to the top account.
func WithWinnerSharePct(pct int64) Option {
	return func(s *Service) {
		if pct >= 0 && pct <= 100 {
			s.winnerPct = pct
		}
	}
}

// WithDurationBounds sets the accepted challenge duration range in seconds.
func WithDurationBounds(minSec, maxSec int64) Option {
	return func(s *Service) {
		if minSec > 0 && maxSec >= minSec {
			s.minDuration = minSec
			s.maxDuration = maxSec
		}
	}
}

// WithJournalPath enables the SQLite event journal at path.
func WithJournalPath(path string) Option {
	return func(s *Service) {
		s.journalPath = path
	}
}

// WithReputationSync runs the reputation sync job every interval. Zero
// disables the job.
func WithReputationSync(interval time.Duration) Option {
	return func(s *Service) {
		if interval >= 0 {
			s.syncInterval = interval
		}
	}
}

// WithClock sets the time source shared by the domain and the scheduler.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithPayer sets where withdrawals transfer value to.
func WithPayer(p challenge.Payer) Option {
	return func(s *Service) {
		if p != nil {
			s.payer = p
		}
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}
