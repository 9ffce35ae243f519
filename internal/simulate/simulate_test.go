package simulate_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/arena/internal/simulate"
	. "github.com/smartystreets/goconvey/convey"
)

const ether int64 = 1_000_000_000_000_000_000

func TestValidate(t *testing.T) {
	Convey("Given simulation configs", t, func() {
		Convey("The default config is valid", func() {
			So(simulate.DefaultConfig().Validate(), ShouldBeNil)
		})

		cases := []struct {
			name   string
			mutate func(*simulate.Config)
		}{
			{"zero fee", func(c *simulate.Config) { c.EntryFee = 0 }},
			{"short duration", func(c *simulate.Config) { c.Duration = 60 }},
			{"long duration", func(c *simulate.Config) { c.Duration = 31 * 24 * 3600 }},
			{"negative players", func(c *simulate.Config) { c.ExtraPlayers = -1 }},
			{"winner takes all", func(c *simulate.Config) { c.WinnerSharePct = 100 }},
			{"zero timeout", func(c *simulate.Config) { c.Timeout = 0 }},
			{"overflowing pool", func(c *simulate.Config) { c.ExtraPlayers = 10 }},
			{"dust fee", func(c *simulate.Config) { c.EntryFee = 1 }},
		}
		for _, tc := range cases {
			Convey("It rejects "+tc.name, func() {
				cfg := simulate.DefaultConfig()
				tc.mutate(&cfg)
				So(errors.Is(cfg.Validate(), simulate.ErrInvalidConfig), ShouldBeTrue)
			})
		}
	})
}

func TestRun(t *testing.T) {
	Convey("Given the default two-player round", t, func() {
		rep, err := simulate.Run(context.Background(), simulate.DefaultConfig())

		Convey("Every check passes", func() {
			So(err, ShouldBeNil)
			So(rep.Failed(), ShouldBeEmpty)
			So(len(rep.Checks), ShouldBeGreaterThan, 20)
		})

		Convey("The winner and creator are paid 70/30", func() {
			So(rep.Prize, ShouldEqual, 2*ether)
			So(rep.Balances[simulate.PlayerB], ShouldEqual, ether/10*14)
			So(rep.Balances[simulate.Creator], ShouldEqual, ether/10*6)
			So(rep.Balances[simulate.PlayerA], ShouldEqual, 0)
		})

		Convey("Reputation reflects the round", func() {
			So(rep.Reputation[simulate.PlayerB], ShouldEqual, 205)
			So(rep.Reputation[simulate.PlayerA], ShouldEqual, 105)
			So(rep.Reputation[simulate.Creator], ShouldEqual, 0)
		})

		Convey("The leaderboard ranks B above A", func() {
			So(rep.Leaderboard, ShouldHaveLength, 2)
			So(rep.Leaderboard[0].Account, ShouldEqual, simulate.PlayerB)
			So(rep.Leaderboard[1].Account, ShouldEqual, simulate.PlayerA)
		})
	})

	Convey("Given extra players and a journal", t, func() {
		cfg := simulate.DefaultConfig()
		cfg.EntryFee = 1_000_000
		cfg.ExtraPlayers = 25
		cfg.Workers = 5
		cfg.JournalPath = filepath.Join(t.TempDir(), "events.db")

		rep, err := simulate.Run(context.Background(), cfg)

		Convey("Every check passes", func() {
			So(err, ShouldBeNil)
			So(rep.Failed(), ShouldBeEmpty)
			So(rep.Participants, ShouldEqual, 27)
			So(rep.Leaderboard[0].Account, ShouldEqual, simulate.PlayerB)
		})

		Convey("The pool splits over every entry", func() {
			So(rep.Prize, ShouldEqual, 27_000_000)
			So(rep.Balances[simulate.PlayerB], ShouldEqual, 18_900_000)
			So(rep.Balances[simulate.Creator], ShouldEqual, 8_100_000)
		})
	})

	Convey("Given an invalid config", t, func() {
		cfg := simulate.DefaultConfig()
		cfg.EntryFee = -1
		rep, err := simulate.Run(context.Background(), cfg)

		Convey("Run refuses to start", func() {
			So(rep, ShouldBeNil)
			So(errors.Is(err, simulate.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
