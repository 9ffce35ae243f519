package identity_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/arena/internal/domain/access"
	"github.com/okian/arena/internal/domain/identity"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const admin types.Account = "0xengine"

func newRegistry() (*identity.Registry, *clockwork.FakeClock, *model.Recorder) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	rec := &model.Recorder{}
	r := identity.NewRegistry(
		identity.WithClock(clock),
		identity.WithPolicy(access.NewStatic(admin)),
		identity.WithEmitter(rec),
	)
	return r, clock, rec
}

func TestRegistry_Mint(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		ctx := context.Background()
		r, clock, events := newRegistry()

		Convey("When an account mints", func() {
			rec, err := r.Mint(ctx, "0xalice")

			Convey("Then it receives id 1 with zeroed stats", func() {
				So(err, ShouldBeNil)
				So(rec.ID, ShouldEqual, 1)
				So(rec.Owner, ShouldEqual, types.Account("0xalice"))
				So(rec.Reputation, ShouldEqual, 0)
				So(rec.Wins, ShouldEqual, 0)
				So(rec.CreatedAt.Equal(clock.Now()), ShouldBeTrue)
				So(rec.LastUpdated.Equal(rec.CreatedAt), ShouldBeTrue)
				So(r.Has("0xalice"), ShouldBeTrue)
			})

			Convey("And a registration event is emitted", func() {
				minted := events.OfKind(model.KindIdentityMinted)
				So(len(minted), ShouldEqual, 1)
				So(minted[0].Account, ShouldEqual, types.Account("0xalice"))
				So(minted[0].IdentityID, ShouldEqual, 1)
			})

			Convey("And minting again fails with AlreadyRegistered", func() {
				_, err := r.Mint(ctx, "0xalice")
				So(errors.Is(err, types.ErrAlreadyRegistered), ShouldBeTrue)
				So(r.Count(), ShouldEqual, 1)
			})

			Convey("And the next account receives id 2", func() {
				rec2, err := r.Mint(ctx, "0xbob")
				So(err, ShouldBeNil)
				So(rec2.ID, ShouldEqual, 2)
				So(r.Accounts(), ShouldResemble, []types.Account{"0xalice", "0xbob"})
			})
		})

		Convey("When the null account mints", func() {
			_, err := r.Mint(ctx, "")

			Convey("Then it fails with InvalidAccount", func() {
				So(errors.Is(err, types.ErrInvalidAccount), ShouldBeTrue)
				So(r.Count(), ShouldEqual, 0)
			})
		})

		Convey("When a short spelling of the null address mints", func() {
			for _, raw := range []string{"0x0", "0x00"} {
				_, err := r.Mint(ctx, types.NewAccount(raw))
				So(errors.Is(err, types.ErrInvalidAccount), ShouldBeTrue)
			}
			So(r.Count(), ShouldEqual, 0)
		})
	})
}

func TestRegistry_Record(t *testing.T) {
	Convey("Given a registry with one identity", t, func() {
		ctx := context.Background()
		r, _, _ := newRegistry()
		_, err := r.Mint(ctx, "0xalice")
		So(err, ShouldBeNil)

		Convey("When reading an unknown account", func() {
			_, err := r.Record("0xnobody")

			Convey("Then it fails with NotRegistered", func() {
				So(errors.Is(err, types.ErrNotRegistered), ShouldBeTrue)
				So(types.KindOf(err), ShouldEqual, types.KindPrecondition)
			})
		})

		Convey("When reading by an unknown id", func() {
			_, err := r.RecordByID(42)

			Convey("Then it fails with NotFound", func() {
				So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When reading by id", func() {
			rec, err := r.RecordByID(1)

			Convey("Then the owner is returned", func() {
				So(err, ShouldBeNil)
				So(rec.Owner, ShouldEqual, types.Account("0xalice"))
			})
		})
	})
}

func TestRegistry_UpdateStats(t *testing.T) {
	Convey("Given a registry with one identity", t, func() {
		ctx := context.Background()
		r, clock, events := newRegistry()
		_, err := r.Mint(ctx, "0xalice")
		So(err, ShouldBeNil)
		stats := identity.Stats{Reputation: 610, ArenaPoints: 100, Wins: 10, Participation: 20}

		Convey("When the administrator updates stats", func() {
			clock.Advance(time.Hour)
			rec, err := r.UpdateStats(ctx, admin, "0xalice", stats)

			Convey("Then all four fields are overwritten and lastUpdated refreshed", func() {
				So(err, ShouldBeNil)
				So(rec.Reputation, ShouldEqual, 610)
				So(rec.ArenaPoints, ShouldEqual, 100)
				So(rec.Wins, ShouldEqual, 10)
				So(rec.Participation, ShouldEqual, 20)
				So(rec.LastUpdated.Equal(clock.Now()), ShouldBeTrue)
				So(rec.LastUpdated.After(rec.CreatedAt), ShouldBeTrue)
				So(len(events.OfKind(model.KindStatsUpdated)), ShouldEqual, 1)
			})

			Convey("And a later update overwrites rather than accumulates", func() {
				rec, err := r.UpdateStats(ctx, admin, "0xalice", identity.Stats{Reputation: 5, Participation: 1})
				So(err, ShouldBeNil)
				So(rec.Reputation, ShouldEqual, 5)
				So(rec.Wins, ShouldEqual, 0)
			})
		})

		Convey("When a non-administrator updates stats", func() {
			_, err := r.UpdateStats(ctx, "0xalice", "0xalice", stats)

			Convey("Then it fails with Unauthorized and nothing changes", func() {
				So(errors.Is(err, types.ErrUnauthorized), ShouldBeTrue)
				rec, _ := r.Record("0xalice")
				So(rec.Reputation, ShouldEqual, 0)
			})
		})

		Convey("When the target is the null account", func() {
			_, err := r.UpdateStats(ctx, admin, "", stats)
			So(errors.Is(err, types.ErrInvalidAccount), ShouldBeTrue)
			_, err = r.UpdateStats(ctx, admin, "0x0", stats)
			So(errors.Is(err, types.ErrInvalidAccount), ShouldBeTrue)
		})

		Convey("When the target is unregistered", func() {
			_, err := r.UpdateStats(ctx, admin, "0xbob", stats)
			So(errors.Is(err, types.ErrNotRegistered), ShouldBeTrue)
		})

		Convey("When stats are negative", func() {
			_, err := r.UpdateStats(ctx, admin, "0xalice", identity.Stats{Wins: -1})
			So(errors.Is(err, types.ErrInvalidStats), ShouldBeTrue)
		})
	})
}

func TestRegistry_NonTransferable(t *testing.T) {
	Convey("Given two registered accounts", t, func() {
		ctx := context.Background()
		r, _, _ := newRegistry()
		a, _ := r.Mint(ctx, "0xalice")
		_, _ = r.Mint(ctx, "0xbob")

		pairs := [][2]types.Account{
			{"0xalice", "0xbob"},
			{"0xbob", "0xalice"},
			{"0xalice", "0xalice"},
			{"0xalice", "0xcarol"},
		}

		Convey("When any transfer is attempted", func() {
			Convey("Then every pathway fails with NonTransferable", func() {
				for _, p := range pairs {
					err := r.Transfer(ctx, p[0], p[0], p[1], a.ID)
					So(errors.Is(err, types.ErrNonTransferable), ShouldBeTrue)
				}
				So(errors.Is(r.Approve(ctx, "0xalice", "0xbob", a.ID), types.ErrNonTransferable), ShouldBeTrue)
				So(errors.Is(r.SetApprovalForAll(ctx, "0xalice", "0xbob", true), types.ErrNonTransferable), ShouldBeTrue)
				So(errors.Is(r.Transfer(ctx, admin, "0xalice", "0xbob", a.ID), types.ErrNonTransferable), ShouldBeTrue)
			})

			Convey("And ownership is unchanged", func() {
				_ = r.Transfer(ctx, "0xalice", "0xalice", "0xbob", a.ID)
				rec, err := r.RecordByID(a.ID)
				So(err, ShouldBeNil)
				So(rec.Owner, ShouldEqual, types.Account("0xalice"))
			})
		})
	})
}

func TestRegistry_TokenMetadata(t *testing.T) {
	Convey("Given an identity with stats", t, func() {
		ctx := context.Background()
		r, _, _ := newRegistry()
		rec, _ := r.Mint(ctx, "0xalice")
		_, err := r.UpdateStats(ctx, admin, "0xalice", identity.Stats{Reputation: 610, ArenaPoints: 100, Wins: 10, Participation: 20})
		So(err, ShouldBeNil)

		Convey("When rendering metadata", func() {
			md, err := r.TokenMetadata(rec.ID)
			So(err, ShouldBeNil)

			Convey("Then it derives from the current stats", func() {
				So(md.Name, ShouldEqual, "Arena Identity #1")
				So(md.Attributes[0].Value, ShouldEqual, "Veteran")
				So(md.Attributes[1].Value, ShouldEqual, int64(610))
				So(strings.HasPrefix(md.Image, "data:image/svg+xml;base64,"), ShouldBeTrue)

				raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(md.Image, "data:image/svg+xml;base64,"))
				So(err, ShouldBeNil)
				So(string(raw), ShouldContainSubstring, "Reputation: 610")
			})

			Convey("And rendering twice yields the same document", func() {
				again, err := r.TokenMetadata(rec.ID)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, md)
			})
		})

		Convey("When rendering the token URI", func() {
			uri, err := r.TokenURI(rec.ID)
			So(err, ShouldBeNil)

			Convey("Then it decodes to the metadata JSON", func() {
				raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:application/json;base64,"))
				So(err, ShouldBeNil)
				var md identity.Metadata
				So(json.Unmarshal(raw, &md), ShouldBeNil)
				So(md.Name, ShouldEqual, "Arena Identity #1")
			})
		})

		Convey("When rendering an unknown id", func() {
			_, err := r.TokenMetadata(99)

			Convey("Then it fails with NotFound", func() {
				So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestTier(t *testing.T) {
	Convey("Given reputation values", t, func() {
		So(identity.Tier(0), ShouldEqual, "Rookie")
		So(identity.Tier(99), ShouldEqual, "Rookie")
		So(identity.Tier(100), ShouldEqual, "Contender")
		So(identity.Tier(2000), ShouldEqual, "Champion")
		So(identity.Tier(1_000_000), ShouldEqual, "Legend")
	})
}
