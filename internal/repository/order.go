package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-marketplace-api/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.Order, error)
	GetForShop(ctx context.Context, id, shopID uuid.UUID) (*model.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Order, int, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, limit, offset int) ([]model.Order, int, error)
	UpdateStatus(ctx context.Context, order *model.Order, from model.OrderStatus) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

const orderColumns = `o.id, o.user_id, o.order_number, o.full_name, o.phone, o.address, o.city, o.district,
	o.postal_code, o.subtotal, o.shipping_fee, o.discount, o.total, o.status, o.payment_method,
	o.payment_status, o.created_at, o.updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(
		&o.ID, &o.UserID, &o.OrderNumber, &o.FullName, &o.Phone, &o.Address, &o.City, &o.District,
		&o.PostalCode, &o.Subtotal, &o.ShippingFee, &o.Discount, &o.Total, &o.Status, &o.PaymentMethod,
		&o.PaymentStatus, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// Create persists the order header, reserves stock for every line and writes
// the lines in a single transaction. Stock updates are guarded by the snapshot
// price so a concurrent price change aborts the whole order.
func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, order_number, full_name, phone, address, city, district, postal_code,
			subtotal, shipping_fee, discount, total, status, payment_method, payment_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		order.ID, order.UserID, order.OrderNumber, order.FullName, order.Phone, order.Address, order.City,
		order.District, order.PostalCode, order.Subtotal, order.ShippingFee, order.Discount, order.Total,
		order.Status, order.PaymentMethod, order.PaymentStatus,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if uniqueViolation(err) == "orders_order_number_key" {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}

	// Lock products in a stable order so concurrent checkouts cannot deadlock.
	reserve := slices.Clone(order.Items)
	slices.SortFunc(reserve, func(a, b model.OrderItem) int {
		return slices.Compare(a.ProductID[:], b.ProductID[:])
	})
	for _, item := range reserve {
		if err := reserveStock(ctx, tx, item); err != nil {
			return err
		}
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.ID = uuid.New()
		item.OrderID = order.ID
		item.Recalculate()
		_, err = tx.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, product_name, product_price, product_image, variant, quantity, subtotal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, item.OrderID, item.ProductID, item.ProductName, item.ProductPrice, item.ProductImage,
			item.Variant, item.Quantity, item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func reserveStock(ctx context.Context, tx pgx.Tx, item model.OrderItem) error {
	ct, err := tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2, sold = sold + $2, updated_at = NOW()
		 WHERE id = $1 AND price = $3 AND stock >= $2`,
		item.ProductID, item.Quantity, item.ProductPrice,
	)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var price decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT price FROM products WHERE id = $1`, item.ProductID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && !price.Equal(item.ProductPrice)) {
		return fmt.Errorf("%w: %s", ErrProductChanged, item.ProductID)
	}
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	return fmt.Errorf("%w: %s", ErrInsufficientStock, item.ProductID)
}

func (r *pgOrderRepo) getOne(ctx context.Context, query string, args ...any) (*model.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := r.loadItems(ctx, []*model.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id)
}

func (r *pgOrderRepo) GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 AND o.user_id = $2`, id, userID)
}

func (r *pgOrderRepo) GetForShop(ctx context.Context, id, shopID uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.id = $2 AND `+shopOrderFilter, shopID, id,
	)
}

func (r *pgOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	orders, err := r.list(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListByShop returns distinct orders containing at least one product of the shop.
func (r *pgOrderRepo) ListByShop(ctx context.Context, shopID uuid.UUID, limit, offset int) ([]model.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders o WHERE `+shopOrderFilter, shopID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shop orders: %w", err)
	}
	orders, err := r.list(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE `+shopOrderFilter+` ORDER BY o.created_at DESC, o.id LIMIT $2 OFFSET $3`,
		shopID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *pgOrderRepo) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	refs := make([]*model.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.loadItems(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *pgOrderRepo) loadItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*model.Order, len(orders))
	ids := make([]string, len(orders))
	for i, o := range orders {
		byID[o.ID] = o
		ids[i] = o.ID.String()
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, product_name, product_price, product_image, variant, quantity, subtotal
		 FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, id`, ids,
	)
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.ProductPrice,
			&item.ProductImage, &item.Variant, &item.Quantity, &item.Subtotal); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

// UpdateStatus moves the order from the expected status to order.Status. The
// write is conditional on the stored status still being from; otherwise
// ErrStatusChanged is returned. Cancelling returns reserved stock.
func (r *pgOrderRepo) UpdateStatus(ctx context.Context, order *model.Order, from model.OrderStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`UPDATE orders SET status = $3, payment_status = $4, updated_at = NOW()
		 WHERE id = $1 AND status = $2 RETURNING updated_at`,
		order.ID, from, order.Status, order.PaymentStatus,
	).Scan(&order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStatusChanged
		}
		return fmt.Errorf("update order status: %w", err)
	}

	if order.Status == model.OrderStatusCancelled {
		_, err = tx.Exec(ctx,
			`UPDATE products p SET stock = p.stock + x.qty, sold = GREATEST(p.sold - x.qty, 0), updated_at = NOW()
			 FROM (SELECT product_id, SUM(quantity) AS qty FROM order_items WHERE order_id = $1 GROUP BY product_id) x
			 WHERE p.id = x.product_id`, order.ID,
		)
		if err != nil {
			return fmt.Errorf("restock cancelled order: %w", err)
		}
	}
	return tx.Commit(ctx)
}
