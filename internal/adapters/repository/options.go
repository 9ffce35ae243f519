package repository

import "math/rand/v2"

// Option applies a configuration option to the Board.
type Option func(*Board)

// WithSeed makes node priorities reproducible. Ordering never depends on the
// seed; only the tree shape does.
func WithSeed(seed uint64) Option {
	return func(b *Board) {
		b.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}
