package inventory

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
)

type memoryEntry struct {
	mu      sync.Mutex
	product Product
}

// MemoryLedger is an in-process Ledger with one mutex per product. It follows
// the same rules as the Postgres ledger and backs tests and local runs without
// a database.
type MemoryLedger struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*memoryEntry
}

func NewMemoryLedger(products ...Product) *MemoryLedger {
	l := &MemoryLedger{products: make(map[uuid.UUID]*memoryEntry, len(products))}
	for _, p := range products {
		l.Put(p)
	}
	return l
}

// Put inserts or replaces a product.
func (l *MemoryLedger) Put(p Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products[p.ID] = &memoryEntry{product: p}
}

func (l *MemoryLedger) entry(id uuid.UUID) (*memoryEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.products[id]
	return e, ok
}

func (l *MemoryLedger) get(productID uuid.UUID) (*Product, error) {
	e, ok := l.entry(productID)
	if !ok {
		return nil, ErrProductNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.product
	return &p, nil
}

func (l *MemoryLedger) GetMany(_ context.Context, productIDs []uuid.UUID) (map[uuid.UUID]Product, error) {
	out := make(map[uuid.UUID]Product, len(productIDs))
	for _, id := range productIDs {
		p, err := l.get(id)
		if err != nil {
			continue
		}
		out[id] = *p
	}
	return out, nil
}

func (l *MemoryLedger) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error) {
	if quantity < 0 {
		return 0, ErrInvalidQuantity
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	e, ok := l.entry(productID)
	if !ok {
		return 0, ErrProductNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.product.CountInStock < quantity {
		return 0, ErrInsufficientStock
	}
	e.product.CountInStock -= quantity
	return e.product.CountInStock, nil
}

// WithTx returns the ledger itself; there is no transaction to join.
func (l *MemoryLedger) WithTx(*sql.Tx) Ledger {
	return l
}
