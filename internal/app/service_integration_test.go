package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/arena/internal/adapters/journal"
	"github.com/okian/arena/internal/adapters/wallet"
	service "github.com/okian/arena/internal/app"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const ether = int64(1_000_000_000_000_000_000)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service with a journal and a wallet ledger", t, func() {
		clock := clockwork.NewFakeClockAt(epoch)
		wallets := wallet.New()
		svc := service.New(
			service.WithClock(clock),
			service.WithPayer(wallets),
			service.WithAdmin(admin.String()),
			service.WithJournalPath(t.TempDir()+"/events.db"),
			service.WithReputationSync(0),
			service.WithWorkerCount(1),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a full challenge is played with an entry fee of one ether", func() {
			id := playRound(ctx, svc, clock, ether)

			Convey("Then the winner and creator split the pot 70/30", func() {
				So(svc.PendingWithdrawal(ctx, bob), ShouldEqual, ether/10*14)
				So(svc.PendingWithdrawal(ctx, creator), ShouldEqual, ether/10*6)
				So(svc.PendingWithdrawal(ctx, alice), ShouldEqual, 0)

				view, err := svc.Challenge(ctx, id)
				So(err, ShouldBeNil)
				So(view.Finalized, ShouldBeTrue)
				So(view.TopAccount, ShouldEqual, bob)
				So(view.State.String(), ShouldEqual, "finalized")
			})

			Convey("And each withdrawal succeeds exactly once", func() {
				for _, a := range []types.Account{bob, creator} {
					_, err := svc.Withdraw(ctx, a)
					So(err, ShouldBeNil)
					_, err = svc.Withdraw(ctx, a)
					So(errors.Is(err, types.ErrNothingToWithdraw), ShouldBeTrue)
				}
				So(wallets.Balance(bob), ShouldEqual, ether/10*14)
				So(wallets.Balance(creator), ShouldEqual, ether/10*6)
				So(wallets.TotalPaid(), ShouldEqual, 2*ether)
			})

			Convey("And the leaderboard is frozen in score order", func() {
				board, err := svc.Leaderboard(ctx, id)
				So(err, ShouldBeNil)
				So(len(board), ShouldEqual, 2)
				So(board[0].Account, ShouldEqual, bob)
				So(board[1].Account, ShouldEqual, alice)

				rank, err := svc.Rank(ctx, id, alice)
				So(err, ShouldBeNil)
				So(rank, ShouldEqual, 2)
			})

			Convey("And every event reaches the journal in order", func() {
				var events []model.Event
				So(waitFor(func() bool {
					var err error
					events, err = svc.Events(ctx, journal.Filter{ChallengeID: id})
					return err == nil && len(events) == 6
				}), ShouldBeTrue)
				So(events[0].Kind, ShouldEqual, model.KindChallengeCreated)
				So(events[len(events)-1].Kind, ShouldEqual, model.KindChallengeFinalized)
				So(events[len(events)-1].Winner, ShouldEqual, bob)
			})
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a challenge with many registered players", t, func() {
		clock := clockwork.NewFakeClockAt(epoch)
		svc := service.New(service.WithClock(clock), service.WithReputationSync(0))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		_, err := svc.MintIdentity(ctx, creator)
		So(err, ShouldBeNil)
		c, err := svc.CreateChallenge(ctx, creator, 3, day)
		So(err, ShouldBeNil)

		const players = 50
		accounts := make([]types.Account, players)
		for i := range accounts {
			accounts[i] = types.NewAccount(fmt.Sprintf("0xp%03d", i))
			_, err := svc.MintIdentity(ctx, accounts[i])
			So(err, ShouldBeNil)
		}

		Convey("When every player enters and submits concurrently, twice", func() {
			var (
				wg       sync.WaitGroup
				entered  atomic.Int64
				rejected atomic.Int64
			)
			for round := 0; round < 2; round++ {
				for i, a := range accounts {
					wg.Add(1)
					go func(i int, a types.Account) {
						defer wg.Done()
						if _, err := svc.EnterChallenge(ctx, a, c.ID, 3); err != nil {
							if errors.Is(err, types.ErrAlreadyEntered) {
								rejected.Add(1)
							}
							return
						}
						entered.Add(1)
						_, _ = svc.SubmitScore(ctx, a, c.ID, int64(i+1))
					}(i, a)
				}
			}
			wg.Wait()

			Convey("Then each player entered exactly once and the prize matches", func() {
				So(entered.Load(), ShouldEqual, players)
				So(rejected.Load(), ShouldEqual, players)

				view, err := svc.Challenge(ctx, c.ID)
				So(err, ShouldBeNil)
				So(view.ParticipantCount, ShouldEqual, players)
				So(view.TotalPrize, ShouldEqual, 3*players)
				So(view.TopAccount, ShouldEqual, accounts[players-1])

				board, err := svc.Leaderboard(ctx, c.ID)
				So(err, ShouldBeNil)
				for i := 1; i < len(board); i++ {
					So(board[i-1].Score, ShouldBeGreaterThanOrEqualTo, board[i].Score)
				}
			})

			Convey("And the stats reflect the escrow", func() {
				stats := svc.GetStats()
				So(stats["identities"], ShouldEqual, players+1)
				So(stats["escrowed"], ShouldEqual, int64(3*players))
			})
		})
	})
}

func TestServiceErrorHandling(t *testing.T) {
	Convey("Given a service", t, func() {
		clock := clockwork.NewFakeClockAt(epoch)
		svc := service.New(service.WithClock(clock), service.WithQueueSize(1))
		ctx := context.Background()

		Convey("When an unregistered account creates a challenge", func() {
			_, err := svc.CreateChallenge(ctx, alice, 1, day)

			Convey("Then it requires an identity", func() {
				So(errors.Is(err, types.ErrRequiresIdentity), ShouldBeTrue)
			})
		})

		Convey("When events overflow the queue before the workers start", func() {
			for _, a := range []types.Account{alice, bob, creator} {
				_, err := svc.MintIdentity(ctx, a)
				So(err, ShouldBeNil)
			}

			Convey("Then the operations still succeed and the drops are counted", func() {
				stats := svc.GetStats()
				So(stats["identities"], ShouldEqual, 3)
				So(stats["eventsDropped"], ShouldEqual, int64(2))
			})
		})

		Convey("When finalizing before the window closes", func() {
			_, err := svc.MintIdentity(ctx, creator)
			So(err, ShouldBeNil)
			c, err := svc.CreateChallenge(ctx, creator, 1, day)
			So(err, ShouldBeNil)
			clock.Advance(time.Hour)
			_, err = svc.FinalizeChallenge(ctx, creator, c.ID)

			Convey("Then it is still active", func() {
				So(errors.Is(err, types.ErrStillActive), ShouldBeTrue)
			})
		})
	})
}
