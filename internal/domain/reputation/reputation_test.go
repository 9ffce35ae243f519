package reputation_test

import (
	"math"
	"strings"
	"testing"

	"github.com/okian/arena/internal/domain/reputation"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCalculate(t *testing.T) {
	Convey("Given the reputation formula", t, func() {
		Convey("When computing documented examples", func() {
			Convey("Then the results match", func() {
				So(reputation.Calculate(10, 20, 100), ShouldEqual, 610)
				So(reputation.Calculate(0, 0, 99), ShouldEqual, 9)
				So(reputation.Calculate(0, 0, 100), ShouldEqual, 10)
				So(reputation.Calculate(0, 0, 0), ShouldEqual, 0)
				So(reputation.Calculate(1, 0, 0), ShouldEqual, 50)
				So(reputation.Calculate(0, 1, 0), ShouldEqual, 5)
			})
		})

		Convey("When computing with floor division on points", func() {
			Convey("Then the last term rounds down", func() {
				So(reputation.Calculate(0, 0, 9), ShouldEqual, 0)
				So(reputation.Calculate(0, 0, 19), ShouldEqual, 1)
				So(reputation.Calculate(2, 3, 1234), ShouldEqual, 100+15+123)
			})
		})

		Convey("When calling repeatedly with the same inputs", func() {
			first := reputation.Calculate(7, 11, 4567)

			Convey("Then every call returns the same value", func() {
				for i := 0; i < 100; i++ {
					So(reputation.Calculate(7, 11, 4567), ShouldEqual, first)
				}
				So(reputation.Of(reputation.Input{Wins: 7, Participation: 11, ArenaPoints: 4567}), ShouldEqual, first)
			})
		})

		Convey("When the weighted terms exceed the int64 range", func() {
			Convey("Then the result saturates instead of wrapping negative", func() {
				So(reputation.Calculate(184467440737095517, 0, 0), ShouldEqual, int64(math.MaxInt64))
				So(reputation.Calculate(0, math.MaxInt64, 0), ShouldEqual, int64(math.MaxInt64))
				So(reputation.Calculate(reputation.MaxWins, reputation.MaxParticipation, math.MaxInt64), ShouldEqual, int64(math.MaxInt64))
				So(reputation.Calculate(0, 0, math.MaxInt64), ShouldEqual, int64(math.MaxInt64/10))
			})

			Convey("Then the largest accepted counts are exact", func() {
				So(reputation.Calculate(reputation.MaxWins, 0, 0), ShouldEqual, reputation.MaxWins*reputation.WinWeight)
				So(reputation.Calculate(0, reputation.MaxParticipation, 0), ShouldEqual, reputation.MaxParticipation*reputation.ParticipationWeight)
				So(reputation.Calculate(reputation.MaxWins, 0, 0), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestFormulaDescription(t *testing.T) {
	Convey("Given the formula description", t, func() {
		d := reputation.FormulaDescription()

		Convey("Then it states the same weights as the computation", func() {
			So(d, ShouldContainSubstring, "wins * 50")
			So(d, ShouldContainSubstring, "participation * 5")
			So(d, ShouldContainSubstring, "arenaPoints / 10")
			So(strings.HasPrefix(d, "reputation = "), ShouldBeTrue)
		})
	})
}
