package repository

import (
	"math/rand/v2"
	"sort"

	"github.com/okian/arena/internal/domain/types"
)

// Treap-based, in-memory Ranking implementation.
//
// Ordering: score DESC, then entry Seq ASC. "less" means ranks earlier, so an
// in-order traversal yields the leaderboard from best to worst. Nodes carry
// subtree sizes so rank lookups are O(log n) expected.

type node struct {
	key   Standing
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if a should appear before b on the leaderboard.
func less(a, b Standing) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Seq < b.Seq
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, key Standing, prio uint64) *node {
	if n == nil {
		return &node{key: key, prio: prio, size: 1}
	}
	if less(key, n.key) {
		n.left = insert(n.left, key, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, key, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, key Standing) *node {
	if n == nil {
		return nil
	}
	switch {
	case key == n.key:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, key)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, key)
		}
	case less(key, n.key):
		n.left = deleteNode(n.left, key)
	default:
		n.right = deleteNode(n.right, key)
	}
	fix(n)
	return n
}

// collect appends up to limit standings in rank order.
func collect(n *node, limit int, out *[]Standing) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.key)
	}
	if len(*out) < limit {
		collect(n.right, limit, out)
	}
}

// Board is the leaderboard of a single challenge.
type Board struct {
	root      *node
	byAccount map[types.Account]Standing
	lastSeq   uint64
	rng       *rand.Rand
}

var _ Ranking = (*Board)(nil)

// NewBoard constructs an empty board.
func NewBoard(opts ...Option) *Board {
	b := &Board{
		byAccount: make(map[types.Account]Standing),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add implements Ranking.Add.
func (b *Board) Add(account types.Account) (Standing, error) {
	if _, ok := b.byAccount[account]; ok {
		return Standing{}, ErrExists
	}
	b.lastSeq++
	s := Standing{Account: account, Seq: b.lastSeq}
	b.byAccount[account] = s
	b.root = insert(b.root, s, b.rng.Uint64())
	return s, nil
}

// Set implements Ranking.Set.
func (b *Board) Set(account types.Account, score int64) (Standing, error) {
	old, ok := b.byAccount[account]
	if !ok {
		return Standing{}, ErrNotFound
	}
	if old.Score == score {
		return old, nil
	}
	b.root = deleteNode(b.root, old)
	s := Standing{Account: account, Score: score, Seq: old.Seq}
	b.byAccount[account] = s
	b.root = insert(b.root, s, b.rng.Uint64())
	return s, nil
}

// Get implements Ranking.Get.
func (b *Board) Get(account types.Account) (Standing, bool) {
	s, ok := b.byAccount[account]
	return s, ok
}

// Rank implements Ranking.Rank.
func (b *Board) Rank(account types.Account) (int, error) {
	key, ok := b.byAccount[account]
	if !ok {
		return 0, ErrNotFound
	}
	rank := 0
	n := b.root
	for n != nil {
		switch {
		case key == n.key:
			return rank + nsize(n.left) + 1, nil
		case less(key, n.key):
			n = n.left
		default:
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0, ErrNotFound
}

// TopN implements Ranking.TopN.
func (b *Board) TopN(n int) ([]Standing, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	out := make([]Standing, 0, min(n, len(b.byAccount)))
	collect(b.root, n, &out)
	return out, nil
}

// All implements Ranking.All.
func (b *Board) All() []Standing {
	out := make([]Standing, 0, len(b.byAccount))
	collect(b.root, len(b.byAccount), &out)
	return out
}

// Members implements Ranking.Members.
func (b *Board) Members() []types.Account {
	all := make([]Standing, 0, len(b.byAccount))
	for _, s := range b.byAccount {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Seq < all[j].Seq })
	out := make([]types.Account, len(all))
	for i, s := range all {
		out[i] = s.Account
	}
	return out
}

// Len implements Ranking.Len.
func (b *Board) Len() int {
	return len(b.byAccount)
}
