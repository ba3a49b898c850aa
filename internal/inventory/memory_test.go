package inventory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedger_DecrementStock(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	l := NewMemoryLedger(Product{ID: id, Name: "Shoe", Price: decimal.NewFromInt(10), CountInStock: 5})

	remaining, err := l.DecrementStock(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)

	_, err = l.DecrementStock(ctx, id, 4)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	remaining, err = l.DecrementStock(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)

	_, err = l.DecrementStock(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = l.DecrementStock(ctx, id, -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	p, err := l.get(id)
	require.NoError(t, err)
	assert.Equal(t, 3, p.CountInStock)
}

func TestMemoryLedger_ConcurrentDecrementsNeverGoNegative(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	l := NewMemoryLedger(Product{ID: id, CountInStock: 50})

	var ok, short atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.DecrementStock(ctx, id, 1)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrInsufficientStock):
				short.Add(1)
			}
		}()
	}
	wg.Wait()

	p, err := l.get(id)
	require.NoError(t, err)
	assert.Equal(t, 0, p.CountInStock)
	assert.Equal(t, int32(50), ok.Load())
	assert.Equal(t, int32(150), short.Load())
}

func TestMemoryLedger_GetMany(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	l := NewMemoryLedger(Product{ID: a, Name: "A"})

	got, err := l.GetMany(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "A", got[a].Name)
}

func TestMemoryLedger_CanceledContext(t *testing.T) {
	id := uuid.New()
	l := NewMemoryLedger(Product{ID: id, CountInStock: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.DecrementStock(ctx, id, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Same(t, l, l.WithTx(nil))
}
