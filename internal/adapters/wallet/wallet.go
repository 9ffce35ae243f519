// Package wallet is an in-memory payout ledger: it receives the value that
// withdrawals transfer out of the engine.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/arena/internal/domain/types"
)

var (
	ErrRejected      = errors.New("recipient rejected transfer")
	ErrInvalidAmount = errors.New("transfer amount must be positive")
)

// Wallets tracks balances received per account.
type Wallets struct {
	mu       sync.Mutex
	balances map[types.Account]int64
	blocked  map[types.Account]struct{}
	paid     int64
}

// New creates an empty ledger.
func New() *Wallets {
	return &Wallets{
		balances: make(map[types.Account]int64),
		blocked:  make(map[types.Account]struct{}),
	}
}

// Pay credits amount to to.
func (w *Wallets) Pay(ctx context.Context, to types.Account, amount int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.blocked[to]; ok {
		return fmt.Errorf("pay %s: %w", to, ErrRejected)
	}
	w.balances[to] += amount
	w.paid += amount
	return nil
}

// Block makes every later transfer to account fail.
func (w *Wallets) Block(account types.Account) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blocked[account] = struct{}{}
}

// Unblock reverses Block.
func (w *Wallets) Unblock(account types.Account) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.blocked, account)
}

// Balance returns what account has received.
func (w *Wallets) Balance(account types.Account) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[account]
}

// TotalPaid returns the sum of every successful transfer.
func (w *Wallets) TotalPaid() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paid
}
