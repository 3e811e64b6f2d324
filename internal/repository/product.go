package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-marketplace-api/internal/model"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, limit, offset int) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const productSelect = `SELECT p.id, p.name, p.description, p.price, p.original_price, p.discount_percentage,
		p.stock, p.sold, p.rating, p.image, p.category_id, c.name, p.shop_id, COALESCE(s.name, ''),
		p.created_at, p.updated_at
	FROM products p
	JOIN categories c ON c.id = p.category_id
	LEFT JOIN shops s ON s.id = p.shop_id`

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.DiscountPercentage,
		&p.Stock, &p.Sold, &p.Rating, &p.Image, &p.CategoryID, &p.CategoryName, &p.ShopID, &p.ShopName,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// recomputeShopProducts refreshes the stored product counter of a shop from
// a full count, inside the caller's transaction.
func recomputeShopProducts(ctx context.Context, q execer, shopID uuid.UUID) error {
	_, err := q.Exec(ctx,
		`UPDATE shops SET total_products = (SELECT COUNT(*) FROM products WHERE shop_id = $1), updated_at = NOW()
		 WHERE id = $1`, shopID,
	)
	if err != nil {
		return fmt.Errorf("recompute shop products: %w", err)
	}
	return nil
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	product.ID = uuid.New()
	query := `INSERT INTO products (id, name, description, price, original_price, discount_percentage, stock, sold, rating, image, category_id, shop_id, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8, $9, $10, NOW(), NOW()) RETURNING created_at, updated_at`
	err = tx.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.Price, product.OriginalPrice,
		product.DiscountPercentage, product.Stock, product.Image, product.CategoryID, product.ShopID,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	if product.ShopID.Valid {
		if err := recomputeShopProducts(ctx, tx, product.ShopID.UUID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

var productSorts = map[string]string{
	"price":      "p.price",
	"sold":       "p.sold",
	"rating":     "p.rating",
	"created_at": "p.created_at",
}

func (r *pgProductRepo) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Search != "" {
		add(`(p.name ILIKE '%%' || $%[1]d || '%%' OR p.description ILIKE '%%' || $%[1]d || '%%')`, filter.Search)
	}
	if filter.CategoryID.Valid {
		add(`p.category_id = $%d`, filter.CategoryID.UUID)
	}
	if filter.MinPrice.Valid {
		add(`p.price >= $%d`, filter.MinPrice.Decimal)
	}
	if filter.MaxPrice.Valid {
		add(`p.price <= $%d`, filter.MaxPrice.Decimal)
	}
	if filter.MinRating.Valid {
		add(`p.rating >= $%d`, filter.MinRating.Decimal)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	sort, ok := productSorts[filter.SortField]
	if !ok {
		sort = "p.created_at"
	}
	dir := "ASC"
	if filter.Descending {
		dir = "DESC"
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`%s%s ORDER BY %s %s, p.id LIMIT $%d OFFSET $%d`,
		productSelect, where, sort, dir, len(args)-1, len(args))

	products, err := r.queryProducts(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *pgProductRepo) ListByShop(ctx context.Context, shopID uuid.UUID, limit, offset int) ([]model.Product, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE shop_id = $1`, shopID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shop products: %w", err)
	}

	products, err := r.queryProducts(ctx,
		productSelect+` WHERE p.shop_id = $1 ORDER BY p.created_at DESC, p.id LIMIT $2 OFFSET $3`,
		shopID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *pgProductRepo) queryProducts(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET name=$2, description=$3, price=$4, original_price=$5, discount_percentage=$6,
			  stock=$7, image=$8, category_id=$9, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Description, product.Price, product.OriginalPrice,
		product.DiscountPercentage, product.Stock, product.Image, product.CategoryID,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var shopID uuid.NullUUID
	err = tx.QueryRow(ctx, `DELETE FROM products WHERE id = $1 RETURNING shop_id`, id).Scan(&shopID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}

	if shopID.Valid {
		if err := recomputeShopProducts(ctx, tx, shopID.UUID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
