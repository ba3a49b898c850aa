package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eshop-be/internal/db"
	"eshop-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type repository struct {
	db db.DBTX
}

// NewRepository returns the Postgres-backed Ledger.
func NewRepository(conn db.DBTX) Ledger {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *sql.Tx) Ledger {
	return &repository{db: tx}
}

const productColumns = `
	p.id, p.name, p.price, p.count_in_stock, COALESCE(b.name, '')
	FROM products p
	LEFT JOIN brands b ON b.id = p.brand_id
`

func (r *repository) GetMany(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]Product, error) {
	out := make(map[uuid.UUID]Product, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		ids = append(ids, id.String())
	}

	rows, err := r.db.QueryContext(ctx, `SELECT`+productColumns+`WHERE p.id = ANY($1::uuid[])`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.CountInStock, &p.BrandName); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return out, nil
}

// DecrementStock subtracts quantity in one conditional UPDATE. Postgres takes a
// row lock for the update, so concurrent decrements on the same product are
// serialized and the stock >= quantity guard is evaluated against the latest value.
func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "DecrementStock"),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", quantity),
	)

	if quantity < 0 {
		return 0, ErrInvalidQuantity
	}

	var remaining int
	err := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET count_in_stock = count_in_stock - $1
		WHERE id = $2 AND count_in_stock >= $1
		RETURNING count_in_stock
	`, quantity, productID).Scan(&remaining)

	if err == nil {
		log.Debug("stock decremented", zap.Int("remaining", remaining))
		return remaining, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to decrement stock", zap.Error(err))
		return 0, fmt.Errorf("decrement stock for %s: %w", productID, err)
	}

	// Nothing updated: either the row is missing or the guard failed.
	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID,
	).Scan(&exists)
	if err != nil {
		log.Error("failed to check product existence", zap.Error(err))
		return 0, fmt.Errorf("check product %s: %w", productID, err)
	}

	if !exists {
		log.Warn("product not found")
		return 0, ErrProductNotFound
	}

	log.Warn("insufficient stock")
	return 0, ErrInsufficientStock
}
