package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/arena/internal/domain/types"
)

func TestBoard_Ordering(t *testing.T) {
	b := NewBoard(WithSeed(1))
	for _, a := range []types.Account{"0xa", "0xb", "0xc"} {
		if _, err := b.Add(a); err != nil {
			t.Fatalf("add %s: %v", a, err)
		}
	}
	mustSet(t, b, "0xa", 100)
	mustSet(t, b, "0xb", 200)
	mustSet(t, b, "0xc", 150)

	got := b.All()
	want := []Standing{
		{Account: "0xb", Score: 200, Seq: 2},
		{Account: "0xc", Score: 150, Seq: 3},
		{Account: "0xa", Score: 100, Seq: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ordering mismatch (-want +got):\n%s", diff)
	}
}

func TestBoard_TieBreaking(t *testing.T) {
	b := NewBoard(WithSeed(2))
	for _, a := range []types.Account{"0xa", "0xb", "0xc"} {
		_, _ = b.Add(a)
	}
	mustSet(t, b, "0xc", 100)
	mustSet(t, b, "0xa", 100)
	mustSet(t, b, "0xb", 100)

	got := b.All()
	for i, want := range []types.Account{"0xa", "0xb", "0xc"} {
		if got[i].Account != want {
			t.Errorf("position %d: got %s want %s", i+1, got[i].Account, want)
		}
	}
}

func TestBoard_ZeroScoresFollowEntryOrder(t *testing.T) {
	b := NewBoard()
	_, _ = b.Add("0xa")
	_, _ = b.Add("0xb")

	if r, _ := b.Rank("0xa"); r != 1 {
		t.Errorf("rank 0xa = %d, want 1", r)
	}
	if r, _ := b.Rank("0xb"); r != 2 {
		t.Errorf("rank 0xb = %d, want 2", r)
	}
}

func TestBoard_AddDuplicate(t *testing.T) {
	b := NewBoard()
	_, _ = b.Add("0xa")
	if _, err := b.Add("0xa"); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("len = %d, want 1", b.Len())
	}
}

func TestBoard_UnknownAccount(t *testing.T) {
	b := NewBoard()
	if _, err := b.Set("0xz", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("Set: expected ErrNotFound, got %v", err)
	}
	if _, err := b.Rank("0xz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Rank: expected ErrNotFound, got %v", err)
	}
	if _, ok := b.Get("0xz"); ok {
		t.Errorf("Get: expected miss")
	}
}

func TestBoard_TopN(t *testing.T) {
	b := NewBoard(WithSeed(3))
	for i := 0; i < 10; i++ {
		a := types.Account(fmt.Sprintf("0x%02d", i))
		_, _ = b.Add(a)
		mustSet(t, b, a, int64(i*10))
	}

	top, err := b.TopN(3)
	if err != nil {
		t.Fatalf("TopN: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("len = %d, want 3", len(top))
	}
	if top[0].Score != 90 || top[2].Score != 70 {
		t.Errorf("unexpected top: %+v", top)
	}

	all, _ := b.TopN(100)
	if len(all) != 10 {
		t.Errorf("TopN past end: len = %d, want 10", len(all))
	}

	if _, err := b.TopN(0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("TopN(0): expected ErrInvalidLimit, got %v", err)
	}
}

func TestBoard_RankMatchesAll(t *testing.T) {
	b := NewBoard(WithSeed(4))
	for i := 0; i < 200; i++ {
		a := types.Account(fmt.Sprintf("0x%03d", i))
		_, _ = b.Add(a)
		mustSet(t, b, a, int64((i*37)%50))
	}
	for i := 0; i < 200; i += 3 {
		a := types.Account(fmt.Sprintf("0x%03d", i))
		mustSet(t, b, a, int64(100+i))
	}

	for pos, s := range b.All() {
		r, err := b.Rank(s.Account)
		if err != nil {
			t.Fatalf("rank %s: %v", s.Account, err)
		}
		if r != pos+1 {
			t.Fatalf("rank %s = %d, want %d", s.Account, r, pos+1)
		}
	}
}

func TestBoard_Members(t *testing.T) {
	b := NewBoard()
	for _, a := range []types.Account{"0xc", "0xa", "0xb"} {
		_, _ = b.Add(a)
	}
	mustSet(t, b, "0xb", 9)

	want := []types.Account{"0xc", "0xa", "0xb"}
	if diff := cmp.Diff(want, b.Members()); diff != "" {
		t.Fatalf("members mismatch (-want +got):\n%s", diff)
	}
}

func mustSet(t *testing.T, b *Board, a types.Account, score int64) {
	t.Helper()
	if _, err := b.Set(a, score); err != nil {
		t.Fatalf("set %s: %v", a, err)
	}
}
