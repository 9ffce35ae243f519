package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/arena/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewEvent(t *testing.T) {
	Convey("Given an event kind and a local timestamp", t, func() {
		loc := time.FixedZone("UTC+3", 3*60*60)
		at := time.Date(2026, 1, 2, 15, 0, 0, 0, loc)

		Convey("When creating an event", func() {
			e := model.NewEvent(model.KindChallengeCreated, at)

			Convey("Then it carries a uuid and a UTC timestamp", func() {
				_, err := uuid.Parse(e.ID)
				So(err, ShouldBeNil)
				So(e.Kind, ShouldEqual, model.KindChallengeCreated)
				So(e.At.Location(), ShouldEqual, time.UTC)
				So(e.At.Equal(at), ShouldBeTrue)
			})

			Convey("And two events never share an id", func() {
				other := model.NewEvent(model.KindChallengeCreated, at)
				So(other.ID, ShouldNotEqual, e.ID)
			})
		})

		Convey("When encoding an event to JSON", func() {
			e := model.NewEvent(model.KindScoreSubmitted, at)
			e.ChallengeID = 7
			e.Score = 1500
			e.Rank = 1
			b, err := json.Marshal(e)
			So(err, ShouldBeNil)

			Convey("Then unset fields are omitted", func() {
				s := string(b)
				So(s, ShouldContainSubstring, `"kind":"challenge.score_submitted"`)
				So(s, ShouldContainSubstring, `"rank":1`)
				So(s, ShouldNotContainSubstring, "winner")
				So(s, ShouldNotContainSubstring, "entry_fee")
			})
		})
	})
}

func TestKinds(t *testing.T) {
	Convey("Given the list of event kinds", t, func() {
		kinds := model.Kinds()

		Convey("Then every kind is distinct", func() {
			seen := map[model.Kind]bool{}
			for _, k := range kinds {
				So(seen[k], ShouldBeFalse)
				seen[k] = true
			}
			So(len(kinds), ShouldEqual, 7)
		})
	})
}
