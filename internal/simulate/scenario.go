package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/okian/arena/internal/adapters/http/api"
	"github.com/okian/arena/internal/adapters/wallet"
	service "github.com/okian/arena/internal/app"
	"github.com/okian/arena/internal/domain/challenge"
	"github.com/okian/arena/internal/domain/identity"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/types"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/token"
)

// ErrChecksFailed is returned by Run when at least one expectation failed.
var ErrChecksFailed = errors.New("simulation checks failed")

// journalPollInterval is how often Run polls the journal while waiting for
// asynchronous writes.
const journalPollInterval = 20 * time.Millisecond

// Epoch is the fake clock's starting instant.
var Epoch = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// world is the in-process arena a run talks to.
type world struct {
	clock   *clockwork.FakeClock
	wallets *wallet.Wallets
	svc     *service.Service
	server  *httptest.Server
	client  *client
}

func newWorld(ctx context.Context, cfg Config) (*world, error) {
	issuer, err := token.New(uuid.NewString(), token.WithIssuer("arena-sim"))
	if err != nil {
		return nil, fmt.Errorf("create token issuer: %w", err)
	}

	w := &world{
		clock:   clockwork.NewFakeClockAt(Epoch),
		wallets: wallet.New(),
	}
	opts := []service.Option{
		service.WithClock(w.clock),
		service.WithPayer(w.wallets),
		service.WithAdmin(Admin.String()),
		service.WithWinnerSharePct(cfg.WinnerSharePct),
		service.WithReputationSync(0),
		service.WithWorkerCount(1),
		service.WithLogger(logger.Get().Named("arena")),
	}
	if cfg.JournalPath != "" {
		opts = append(opts, service.WithJournalPath(cfg.JournalPath))
	}
	w.svc = service.New(opts...)
	if err := w.svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("start service: %w", err)
	}

	srv := api.NewServer(w.svc, w.svc, api.WithVerifier(issuer))
	w.server = httptest.NewServer(srv.Routes())
	w.client = newClient(w.server.URL, cfg.Timeout, issuer)
	return w, nil
}

func (w *world) close(ctx context.Context) {
	w.server.Close()
	if err := w.svc.Stop(ctx); err != nil {
		logger.Get().Warn(ctx, "service stop failed", logger.Error(err))
	}
}

// Run plays one challenge round end to end and verifies every outcome.
// It returns the report together with ErrChecksFailed when any check failed.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rep := &Report{
		StartTime:  time.Now(),
		Balances:   make(map[types.Account]int64),
		Reputation: make(map[types.Account]int64),
	}

	logger.Get().Info(ctx, "starting arena simulation",
		logger.Int64("entryFee", cfg.EntryFee),
		logger.Int64("duration", cfg.Duration),
		logger.Int("extraPlayers", cfg.ExtraPlayers),
		logger.Int("workers", cfg.workers()),
		logger.Bool("journal", cfg.JournalPath != ""))

	w, err := newWorld(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer w.close(context.WithoutCancel(ctx))

	s := &scenario{cfg: cfg, w: w, rec: &recorder{report: rep, verbose: cfg.Verbose}, extras: extraAccounts(cfg.ExtraPlayers)}
	if err := s.play(ctx); err != nil {
		return rep, err
	}

	rep.Duration = time.Since(rep.StartTime)
	displayReport(ctx, rep)
	if len(rep.Failed()) > 0 {
		return rep, fmt.Errorf("%w: %d of %d", ErrChecksFailed, len(rep.Failed()), len(rep.Checks))
	}
	return rep, nil
}

type scenario struct {
	cfg    Config
	w      *world
	rec    *recorder
	extras []types.Account
	id     uint64
}

func extraAccounts(n int) []types.Account {
	out := make([]types.Account, n)
	for i := range out {
		out[i] = types.NewAccount(fmt.Sprintf("0xe%039x", i+1))
	}
	return out
}

// play runs the steps in order. Transport errors abort; failed
// expectations are recorded and the run continues.
func (s *scenario) play(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"health", s.health},
		{"register", s.register},
		{"create", s.create},
		{"enter", s.enter},
		{"score", s.score},
		{"finalize", s.finalize},
		{"withdraw", s.withdraw},
		{"reputation", s.reputation},
		{"journal", s.journal},
	}
	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := st.fn(ctx); err != nil {
			return fmt.Errorf("step %s: %w", st.name, err)
		}
	}
	return nil
}

func (s *scenario) health(ctx context.Context) error {
	resp, err := s.w.client.do(ctx, http.MethodGet, "/healthz", "", nil)
	if err != nil {
		return err
	}
	s.rec.status(ctx, "service healthy", resp, http.StatusOK, "")
	return nil
}

func (s *scenario) register(ctx context.Context) error {
	for _, acc := range []types.Account{Creator, PlayerA, PlayerB} {
		var rec identity.Record
		resp, err := s.w.client.call(ctx, http.MethodPost, "/identities", acc, nil, &rec)
		if err != nil {
			return err
		}
		if s.rec.status(ctx, "mint "+acc.String(), resp, http.StatusCreated, "") {
			s.rec.check(ctx, "identity owner "+acc.String(), rec.Owner == acc, "owner %s", rec.Owner)
		}
	}

	resp, err := s.w.client.do(ctx, http.MethodPost, "/identities", PlayerA, nil)
	if err != nil {
		return err
	}
	s.rec.status(ctx, "second mint rejected", resp, http.StatusConflict, types.ErrAlreadyRegistered.Code)

	return s.fanOut(ctx, "mint extra player", func(ctx context.Context, acc types.Account) (response, error) {
		return s.w.client.do(ctx, http.MethodPost, "/identities", acc, nil)
	}, http.StatusCreated)
}

func (s *scenario) create(ctx context.Context) error {
	var c challenge.Challenge
	body := map[string]int64{"entry_fee": s.cfg.EntryFee, "duration": s.cfg.Duration}
	resp, err := s.w.client.call(ctx, http.MethodPost, "/challenges", Creator, body, &c)
	if err != nil {
		return err
	}
	if !s.rec.status(ctx, "create challenge", resp, http.StatusCreated, "") {
		return fmt.Errorf("create challenge: status %d %s", resp.Status, resp.Err.Code)
	}
	s.id = c.ID
	s.rec.report.ChallengeID = c.ID
	s.rec.check(ctx, "challenge escrow empty", c.TotalPrize == 0, "total prize %d", c.TotalPrize)

	var counter struct {
		Counter uint64 `json:"counter"`
	}
	if _, err := s.w.client.call(ctx, http.MethodGet, "/challenges/counter", "", nil, &counter); err != nil {
		return err
	}
	s.rec.check(ctx, "challenge counter", counter.Counter == c.ID, "counter %d, id %d", counter.Counter, c.ID)
	return nil
}

func (s *scenario) path(suffix string) string {
	return "/challenges/" + strconv.FormatUint(s.id, 10) + suffix
}

func (s *scenario) enter(ctx context.Context) error {
	entry := map[string]int64{"paid_amount": s.cfg.EntryFee}

	resp, err := s.w.client.do(ctx, http.MethodPost, s.path("/entries"), PlayerA, map[string]int64{"paid_amount": s.cfg.EntryFee - 1})
	if err != nil {
		return err
	}
	s.rec.status(ctx, "short payment rejected", resp, http.StatusBadRequest, types.ErrIncorrectFee.Code)

	for _, acc := range []types.Account{PlayerA, PlayerB} {
		resp, err := s.w.client.do(ctx, http.MethodPost, s.path("/entries"), acc, entry)
		if err != nil {
			return err
		}
		s.rec.status(ctx, "enter "+acc.String(), resp, http.StatusOK, "")
	}
	resp, err = s.w.client.do(ctx, http.MethodPost, s.path("/entries"), PlayerB, entry)
	if err != nil {
		return err
	}
	s.rec.status(ctx, "second entry rejected", resp, http.StatusConflict, types.ErrAlreadyEntered.Code)

	if err := s.fanOut(ctx, "enter extra player", func(ctx context.Context, acc types.Account) (response, error) {
		return s.w.client.do(ctx, http.MethodPost, s.path("/entries"), acc, entry)
	}, http.StatusOK); err != nil {
		return err
	}

	var v challenge.View
	if _, err := s.w.client.call(ctx, http.MethodGet, s.path(""), "", nil, &v); err != nil {
		return err
	}
	players := int64(s.cfg.players())
	s.rec.report.Participants = v.ParticipantCount
	s.rec.equal(ctx, "participant count", int64(v.ParticipantCount), players)
	s.rec.equal(ctx, "escrowed prize", v.TotalPrize, s.cfg.EntryFee*players)
	s.rec.check(ctx, "challenge open", v.State == challenge.StateOpen, "state %s", v.State)
	return nil
}

func (s *scenario) score(ctx context.Context) error {
	for _, sub := range []struct {
		acc   types.Account
		score int64
	}{{PlayerA, ScoreA}, {PlayerB, ScoreB}} {
		resp, err := s.w.client.do(ctx, http.MethodPost, s.path("/scores"), sub.acc, map[string]int64{"score": sub.score})
		if err != nil {
			return err
		}
		s.rec.status(ctx, "score "+sub.acc.String(), resp, http.StatusOK, "")
	}

	resp, err := s.w.client.do(ctx, http.MethodPost, s.path("/scores"), PlayerA, map[string]int64{"score": ScoreA})
	if err != nil {
		return err
	}
	s.rec.status(ctx, "repeated score rejected", resp, http.StatusConflict, types.ErrScoreMustIncrease.Code)

	var i atomic.Int64
	if err := s.fanOut(ctx, "score extra player", func(ctx context.Context, acc types.Account) (response, error) {
		score := 1 + i.Add(1)%maxExtraScore
		return s.w.client.do(ctx, http.MethodPost, s.path("/scores"), acc, map[string]int64{"score": score})
	}, http.StatusOK); err != nil {
		return err
	}

	var board []types.Entry
	if _, err := s.w.client.call(ctx, http.MethodGet, s.path("/leaderboard"), "", nil, &board); err != nil {
		return err
	}
	s.rec.report.Leaderboard = board
	if s.rec.check(ctx, "leaderboard populated", len(board) == s.cfg.players(), "%d entries", len(board)) {
		s.rec.check(ctx, "leader", board[0].Account == PlayerB && board[0].Score == ScoreB,
			"rank 1 is %s with %d", board[0].Account, board[0].Score)
		for k := 1; k < len(board); k++ {
			if board[k].Score > board[k-1].Score {
				s.rec.check(ctx, "leaderboard order", false, "rank %d outscores rank %d", k+1, k)
				break
			}
		}
	}
	return nil
}

func (s *scenario) finalize(ctx context.Context) error {
	resp, err := s.w.client.do(ctx, http.MethodPost, s.path("/finalize"), Creator, nil)
	if err != nil {
		return err
	}
	s.rec.status(ctx, "early finalize rejected", resp, http.StatusConflict, types.ErrStillActive.Code)

	s.w.clock.Advance(time.Duration(s.cfg.Duration+1) * time.Second)

	resp, err = s.w.client.do(ctx, http.MethodPost, s.path("/finalize"), PlayerA, nil)
	if err != nil {
		return err
	}
	s.rec.status(ctx, "player finalize rejected", resp, http.StatusForbidden, types.ErrUnauthorized.Code)

	var c challenge.Challenge
	resp, err = s.w.client.call(ctx, http.MethodPost, s.path("/finalize"), Creator, nil, &c)
	if err != nil {
		return err
	}
	if s.rec.status(ctx, "finalize", resp, http.StatusOK, "") {
		s.rec.check(ctx, "winner recorded", c.Finalized && c.TopAccount == PlayerB, "finalized %t top %s", c.Finalized, c.TopAccount)
		s.rec.report.Prize = c.TotalPrize
	}

	resp, err = s.w.client.do(ctx, http.MethodPost, s.path("/finalize"), Admin, nil)
	if err != nil {
		return err
	}
	s.rec.status(ctx, "second finalize rejected", resp, http.StatusConflict, types.ErrAlreadyFinalized.Code)
	return nil
}

type balance struct {
	Account types.Account `json:"account"`
	Amount  int64         `json:"amount"`
}

func (s *scenario) withdraw(ctx context.Context) error {
	prize := s.cfg.EntryFee * int64(s.cfg.players())
	winnerShare, creatorShare, _ := challenge.Split(prize, s.cfg.WinnerSharePct)

	for _, want := range []struct {
		acc    types.Account
		amount int64
	}{{PlayerB, winnerShare}, {Creator, creatorShare}} {
		var pending balance
		if _, err := s.w.client.call(ctx, http.MethodGet, "/withdrawals/"+want.acc.String(), "", nil, &pending); err != nil {
			return err
		}
		s.rec.equal(ctx, "pending "+want.acc.String(), pending.Amount, want.amount)

		var paid balance
		resp, err := s.w.client.call(ctx, http.MethodPost, "/withdrawals", want.acc, nil, &paid)
		if err != nil {
			return err
		}
		if s.rec.status(ctx, "withdraw "+want.acc.String(), resp, http.StatusOK, "") {
			s.rec.equal(ctx, "withdrawn "+want.acc.String(), paid.Amount, want.amount)
		}

		resp, err = s.w.client.do(ctx, http.MethodPost, "/withdrawals", want.acc, nil)
		if err != nil {
			return err
		}
		s.rec.status(ctx, "second withdrawal "+want.acc.String(), resp, http.StatusConflict, types.ErrNothingToWithdraw.Code)
	}

	resp, err := s.w.client.do(ctx, http.MethodPost, "/withdrawals", PlayerA, nil)
	if err != nil {
		return err
	}
	s.rec.status(ctx, "loser has nothing", resp, http.StatusConflict, types.ErrNothingToWithdraw.Code)

	for _, acc := range []types.Account{Creator, PlayerA, PlayerB} {
		s.rec.report.Balances[acc] = s.w.wallets.Balance(acc)
	}
	s.rec.equal(ctx, "winner received", s.w.wallets.Balance(PlayerB), winnerShare)
	s.rec.equal(ctx, "creator received", s.w.wallets.Balance(Creator), creatorShare)
	return nil
}

func (s *scenario) reputation(ctx context.Context) error {
	resp, err := s.w.client.do(ctx, http.MethodPost, "/admin/reputation/sync", PlayerA, nil)
	if err != nil {
		return err
	}
	s.rec.status(ctx, "player sync rejected", resp, http.StatusForbidden, types.ErrUnauthorized.Code)

	resp, err = s.w.client.do(ctx, http.MethodPost, "/admin/reputation/sync", Admin, nil)
	if err != nil {
		return err
	}
	s.rec.status(ctx, "admin sync", resp, http.StatusOK, "")

	want := map[types.Account]int64{
		PlayerA: 1*5 + ScoreA/10,
		PlayerB: 1*50 + 1*5 + ScoreB/10,
		Creator: 0,
	}
	for _, acc := range []types.Account{Creator, PlayerA, PlayerB} {
		var rec identity.Record
		if _, err := s.w.client.call(ctx, http.MethodGet, "/identities/"+acc.String(), "", nil, &rec); err != nil {
			return err
		}
		s.rec.report.Reputation[acc] = rec.Reputation
		s.rec.equal(ctx, "reputation "+acc.String(), rec.Reputation, want[acc])
	}
	return nil
}

// journal waits for the asynchronous journal writes of the round and checks
// that each participant's entry was recorded. It is a no-op without a
// journal.
func (s *scenario) journal(ctx context.Context) error {
	if s.cfg.JournalPath == "" {
		return nil
	}
	want := min(s.cfg.players(), 1000)
	query := fmt.Sprintf("/events?kind=%s&challenge_id=%d&limit=%d", model.KindParticipantEntered, s.id, want)

	deadline := time.Now().Add(s.cfg.Timeout)
	var events []model.Event
	for {
		if _, err := s.w.client.call(ctx, http.MethodGet, query, "", nil, &events); err != nil {
			return err
		}
		if len(events) >= want || time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(journalPollInterval):
		}
	}
	s.rec.equal(ctx, "journaled entries", int64(len(events)), int64(want))
	return nil
}

// fanOut runs fn for every extra player on cfg.Workers concurrent clients
// and records one check summarizing the outcomes.
func (s *scenario) fanOut(ctx context.Context, name string, fn func(context.Context, types.Account) (response, error), want int) error {
	if len(s.extras) == 0 {
		return nil
	}
	var (
		ok, bad  atomic.Int64
		firstErr error
		errOnce  sync.Once
		wg       sync.WaitGroup
	)
	ch := make(chan types.Account, s.cfg.workers()*2)
	for range s.cfg.workers() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for acc := range ch {
				resp, err := fn(ctx, acc)
				switch {
				case err != nil:
					errOnce.Do(func() { firstErr = err })
					bad.Add(1)
				case resp.Status == want:
					ok.Add(1)
				default:
					bad.Add(1)
				}
			}
		}()
	}
	go func() {
		defer close(ch)
		for _, acc := range s.extras {
			select {
			case <-ctx.Done():
				return
			case ch <- acc:
			}
		}
	}()
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	s.rec.check(ctx, name, bad.Load() == 0 && ok.Load() == int64(len(s.extras)),
		"%d ok, %d failed", ok.Load(), bad.Load())
	return nil
}
