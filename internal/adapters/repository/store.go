// Package repository holds the per-challenge ranking index.
package repository

import "github.com/okian/arena/internal/domain/types"

// Standing is one participant's position data on a board.
type Standing struct {
	Account types.Account
	Score   int64
	// Seq is the 1-based entry order; it breaks score ties, earliest first.
	Seq uint64
}

// Ranking orders participants by score DESC then entry order ASC.
// Implementations are not required to be safe for concurrent use; callers
// serialize access.
type Ranking interface {
	// Add enrolls account with score 0 at the next entry position.
	// Returns ErrExists when account is already enrolled.
	Add(account types.Account) (Standing, error)

	// Set replaces account's score. Returns ErrNotFound for unknown accounts.
	Set(account types.Account, score int64) (Standing, error)

	// Get returns account's standing.
	Get(account types.Account) (Standing, bool)

	// Rank returns account's 1-based position.
	Rank(account types.Account) (int, error)

	// TopN returns up to n standings in rank order.
	TopN(n int) ([]Standing, error)

	// All returns every standing in rank order.
	All() []Standing

	// Members returns every account in entry order.
	Members() []types.Account

	// Len returns the number of enrolled accounts.
	Len() int
}
