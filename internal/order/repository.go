package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eshop-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TxHook runs inside the order insert transaction, after the order and its
// items are written. An error rolls everything back.
type TxHook func(ctx context.Context, tx *sql.Tx) error

type Repository interface {
	Create(ctx context.Context, o *Order, hooks ...TxHook) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter ListFilter, sort ListSort) ([]*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) (*Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	TotalSales(ctx context.Context) (decimal.Decimal, error)
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistenceFailure, op, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create assigns identifiers and the order timestamp, then writes the order
// and its items in one transaction.
func (r *repository) Create(ctx context.Context, o *Order, hooks ...TxHook) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.Int("item_count", len(o.Items)),
	)

	o.ID = uuid.New()
	o.DateOrdered = r.now().UTC()
	for i := range o.Items {
		o.Items[i].ID = uuid.New()
		o.Items[i].OrderID = o.ID
	}

	log = log.With(zap.String("order_id", o.ID.String()))
	log.Debug("starting order transaction")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return persistenceErr("begin tx", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			} else {
				log.Debug("transaction rolled back")
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, shipping_address1, shipping_address2, city, zip,
			country, phone, status, total_price, date_ordered
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		o.ID,
		o.UserID,
		o.ShippingAddress1,
		nullString(o.ShippingAddress2),
		o.City,
		o.Zip,
		o.Country,
		o.Phone,
		o.Status,
		o.TotalPrice,
		o.DateOrdered,
	)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return persistenceErr("insert order", err)
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, position, product_id, quantity, unit_price
			) VALUES ($1,$2,$3,$4,$5,$6)
		`,
			item.ID,
			o.ID,
			i,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
		)
		if err != nil {
			log.Error("failed to insert order item",
				zap.Int("item_index", i),
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err),
			)
			return persistenceErr("insert order item", err)
		}
	}

	for _, hook := range hooks {
		if err := hook(ctx, tx); err != nil {
			log.Warn("transaction hook failed", zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order transaction", zap.Error(err))
		return persistenceErr("commit", err)
	}

	committed = true
	log.Info("order transaction committed")

	return nil
}

const orderColumns = `
	o.id, o.user_id, COALESCE(u.name, ''), o.shipping_address1, o.shipping_address2,
	o.city, o.zip, o.country, o.phone, o.status, o.total_price, o.date_ordered
	FROM orders o
	LEFT JOIN users u ON u.id = o.user_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var address2 sql.NullString
	if err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.UserName,
		&o.ShippingAddress1,
		&address2,
		&o.City,
		&o.Zip,
		&o.Country,
		&o.Phone,
		&o.Status,
		&o.TotalPrice,
		&o.DateOrdered,
	); err != nil {
		return nil, err
	}
	o.ShippingAddress2 = address2.String
	return &o, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetByID"),
		zap.String("order_id", id.String()),
	)

	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT`+orderColumns+`WHERE o.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		log.Error("failed to query order", zap.Error(err))
		return nil, persistenceErr("get order", err)
	}

	items, err := r.loadItems(ctx, []uuid.UUID{o.ID})
	if err != nil {
		log.Error("failed to load order items", zap.Error(err))
		return nil, persistenceErr("get order items", err)
	}
	o.Items = items[o.ID]

	return o, nil
}

// loadItems fetches the items of several orders with their products expanded,
// keeping submission order within each order.
func (r *repository) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]OrderItem, error) {
	out := make(map[uuid.UUID][]OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(orderIDs))
	for _, id := range orderIDs {
		ids = append(ids, id.String())
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price,
			COALESCE(p.name, ''), COALESCE(b.name, '')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		LEFT JOIN brands b ON b.id = p.brand_id
		WHERE oi.order_id = ANY($1::uuid[])
		ORDER BY oi.order_id, oi.position
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.ProductName,
			&item.BrandName,
		); err != nil {
			return nil, err
		}
		out[item.OrderID] = append(out[item.OrderID], item)
	}

	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter, sort ListSort) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
	)

	// ---------- BASE QUERY ----------
	query := `SELECT` + orderColumns + `WHERE 1=1`
	args := []any{}
	argIndex := 1

	// ---------- FILTERING ----------
	if filter.Status != nil {
		query += fmt.Sprintf(" AND o.status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND o.user_id = $%d", argIndex)
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.DateFrom != nil {
		query += fmt.Sprintf(" AND o.date_ordered >= $%d", argIndex)
		args = append(args, *filter.DateFrom)
		argIndex++
	}

	if filter.DateTo != nil {
		query += fmt.Sprintf(" AND o.date_ordered <= $%d", argIndex)
		args = append(args, *filter.DateTo)
	}

	// ---------- SORTING ----------
	dir := strings.ToUpper(string(sort.Direction))
	if dir != string(SortDirectionAsc) && dir != string(SortDirectionDesc) {
		dir = string(SortDirectionDesc)
	}

	orderBy := "o.date_ordered " + dir
	if sort.Field == SortFieldTotalPrice {
		orderBy = "o.total_price " + dir + ", o.date_ordered DESC"
	}
	query += " ORDER BY " + orderBy

	log.Debug("executing list orders query",
		zap.String("query", query),
		zap.Any("args", args),
	)

	orders, err := r.queryOrders(ctx, query, args...)
	if err != nil {
		log.Error("failed to list orders", zap.Error(err))
		return nil, persistenceErr("list orders", err)
	}

	log.Info("list orders success", zap.Int("count", len(orders)))
	return orders, nil
}

func (r *repository) queryOrders(ctx context.Context, query string, args ...any) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// ListByUser returns a user's orders newest first with items expanded.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListByUser"),
		zap.String("user_id", userID.String()),
	)

	orders, err := r.queryOrders(ctx,
		`SELECT`+orderColumns+`WHERE o.user_id = $1 ORDER BY o.date_ordered DESC`, userID)
	if err != nil {
		log.Error("failed to list user orders", zap.Error(err))
		return nil, persistenceErr("list user orders", err)
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		log.Error("failed to load order items", zap.Error(err))
		return nil, persistenceErr("list user order items", err)
	}
	for _, o := range orders {
		o.Items = items[o.ID]
	}

	return orders, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status OrderStatus) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateStatus"),
		zap.String("order_id", id.String()),
		zap.String("status", string(status)),
	)

	res, err := r.db.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		log.Error("failed to update order status", zap.Error(err))
		return nil, persistenceErr("update status", err)
	}

	if rowsAffected, _ := res.RowsAffected(); rowsAffected == 0 {
		return nil, ErrOrderNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete removes the order and its items in one transaction.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Delete"),
		zap.String("order_id", id.String()),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return persistenceErr("begin tx", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		log.Error("failed to delete order items", zap.Error(err))
		return persistenceErr("delete order items", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete order", zap.Error(err))
		return persistenceErr("delete order", err)
	}

	if rowsAffected, _ := res.RowsAffected(); rowsAffected == 0 {
		return ErrOrderNotFound
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit delete", zap.Error(err))
		return persistenceErr("commit", err)
	}

	log.Info("order deleted")
	return nil
}

// TotalSales sums every order's total; an empty store yields zero.
func (r *repository) TotalSales(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(total_price), 0) FROM orders`).Scan(&total)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to aggregate total sales", zap.Error(err))
		return decimal.Zero, persistenceErr("total sales", err)
	}
	return total, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		logger.FromCtx(ctx).Error("failed to count orders", zap.Error(err))
		return 0, persistenceErr("count orders", err)
	}
	return n, nil
}
