package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/types"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newEvent(kind model.Kind, challengeID uint64, account types.Account, at time.Time) model.Event {
	e := model.NewEvent(kind, at)
	e.ChallengeID = challengeID
	e.Account = account
	return e
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); !errors.Is(err, ErrPathRequired) {
		t.Fatalf("expected ErrPathRequired, got %v", err)
	}
}

func TestAppendListRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	at := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	created := newEvent(model.KindChallengeCreated, 1, "", at)
	created.Creator = "0xc"
	created.EntryFee = 10
	created.Duration = 86400
	entered := newEvent(model.KindParticipantEntered, 1, "0xa", at.Add(time.Minute))
	entered.Amount = 10
	other := newEvent(model.KindChallengeCreated, 2, "", at.Add(2*time.Minute))

	for _, e := range []model.Event{created, entered, other} {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("append %s: %v", e.Kind, err)
		}
	}

	got, err := store.List(ctx, Filter{ChallengeID: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]model.Event{created, entered}, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	byKind, err := store.List(ctx, Filter{Kind: model.KindChallengeCreated})
	if err != nil {
		t.Fatalf("list by kind: %v", err)
	}
	if len(byKind) != 2 || byKind[1].ChallengeID != 2 {
		t.Fatalf("unexpected kind filter result: %+v", byKind)
	}

	byAccount, err := store.List(ctx, Filter{Account: "0xa"})
	if err != nil {
		t.Fatalf("list by account: %v", err)
	}
	if len(byAccount) != 1 || byAccount[0].ID != entered.ID {
		t.Fatalf("unexpected account filter result: %+v", byAccount)
	}
}

func TestAppendIgnoresDuplicateIDs(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	e := newEvent(model.KindWithdrawalProcessed, 0, "0xb", time.Now())

	for i := 0; i < 2; i++ {
		if err := store.Handle(ctx, e); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}

func TestListLimit(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, newEvent(model.KindScoreSubmitted, 1, "0xa", base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := store.List(ctx, Filter{Limit: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	latest, err := store.Since(ctx)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if !latest.Equal(base.Add(4 * time.Second)) {
		t.Fatalf("latest = %v, want %v", latest, base.Add(4*time.Second))
	}
}

func TestClosedStore(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := store.Append(context.Background(), newEvent(model.KindIdentityMinted, 0, "0xa", time.Now())); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
