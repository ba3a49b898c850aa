package inventory

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Ledger owns per-product stock counters. DecrementStock is a single
// "subtract and verify non-negative" step: it returns ErrInsufficientStock
// instead of letting a counter go below zero.
type Ledger interface {
	GetMany(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]Product, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error)
	// WithTx binds the ledger to tx so decrements commit or roll back with it.
	WithTx(tx *sql.Tx) Ledger
}
