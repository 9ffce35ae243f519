package challenge

import (
	"context"

	"github.com/okian/arena/internal/domain/types"
)

//go:generate mockgen -source=interfaces.go -destination=./challenge_mock.go -package=challenge

// Gate answers whether an account holds an identity record.
type Gate interface {
	Has(account types.Account) bool
}

// Payer performs the outgoing value transfer of a withdrawal. A Payer may call
// back into the engine; the engine does not hold its lock while paying.
type Payer interface {
	Pay(ctx context.Context, to types.Account, amount int64) error
}
