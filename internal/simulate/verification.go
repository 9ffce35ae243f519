package simulate

import (
	"context"
	"fmt"

	"github.com/okian/arena/internal/domain/types"
	"github.com/okian/arena/pkg/logger"
)

// recorder collects checks into a report and logs each outcome.
type recorder struct {
	report  *Report
	verbose bool
}

func (r *recorder) check(ctx context.Context, name string, passed bool, format string, args ...any) bool {
	detail := fmt.Sprintf(format, args...)
	r.report.Checks = append(r.report.Checks, Check{Name: name, Passed: passed, Detail: detail})
	switch {
	case !passed:
		logger.Get().Error(ctx, "check failed", logger.String("check", name), logger.String("detail", detail))
	case r.verbose:
		logger.Get().Info(ctx, "check passed", logger.String("check", name), logger.String("detail", detail))
	}
	return passed
}

// status checks a reply's status and, for failures, its error code.
func (r *recorder) status(ctx context.Context, name string, resp response, want int, wantCode string) bool {
	if wantCode == "" {
		return r.check(ctx, name, resp.Status == want, "status %d, want %d", resp.Status, want)
	}
	ok := resp.Status == want && resp.Err.Code == wantCode
	return r.check(ctx, name, ok, "status %d code %q, want %d %q", resp.Status, resp.Err.Code, want, wantCode)
}

func (r *recorder) equal(ctx context.Context, name string, got, want int64) bool {
	return r.check(ctx, name, got == want, "got %d, want %d", got, want)
}

// displayReport logs the final balances and check tally.
func displayReport(ctx context.Context, rep *Report) {
	failed := len(rep.Failed())
	logger.Get().Info(ctx, "simulation finished",
		logger.Uint64("challengeID", rep.ChallengeID),
		logger.Int64("prize", rep.Prize),
		logger.Int("participants", rep.Participants),
		logger.Int("checks", len(rep.Checks)),
		logger.Int("failed", failed),
		logger.Duration("duration", rep.Duration))

	for _, e := range rep.Leaderboard {
		if e.Rank > 3 {
			break
		}
		logger.Get().Info(ctx, "leaderboard",
			logger.Int("rank", e.Rank),
			logger.String("account", e.Account.String()),
			logger.Int64("score", e.Score))
	}
	for _, a := range []struct {
		role string
		acc  types.Account
	}{{"creator", Creator}, {"playerA", PlayerA}, {"playerB", PlayerB}} {
		logger.Get().Info(ctx, "balance",
			logger.String("role", a.role),
			logger.String("account", a.acc.String()),
			logger.Int64("received", rep.Balances[a.acc]),
			logger.Int64("reputation", rep.Reputation[a.acc]))
	}
}
