package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/flicky/go-marketplace-api/internal/model"
)

type ShopRepository interface {
	Create(ctx context.Context, shop *model.Shop) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Shop, error)
	GetBySlug(ctx context.Context, slug string) (*model.Shop, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*model.Shop, error)
	List(ctx context.Context, limit, offset int) ([]model.Shop, int, error)
	Update(ctx context.Context, shop *model.Shop) error
	TakenSlugs(ctx context.Context, base string) ([]string, error)
	Follow(ctx context.Context, shopID, userID uuid.UUID) (bool, error)
	Unfollow(ctx context.Context, shopID, userID uuid.UUID) (bool, error)
	IsFollowing(ctx context.Context, shopID, userID uuid.UUID) (bool, error)
	Stats(ctx context.Context, shopID uuid.UUID) (*model.ShopStats, error)
	RecomputeCounters(ctx context.Context, productIDs []uuid.UUID) (int64, error)
}

type pgShopRepo struct{ pool *pgxpool.Pool }

func NewShopRepository(pool *pgxpool.Pool) ShopRepository {
	return &pgShopRepo{pool: pool}
}

const shopSelect = `SELECT s.id, s.owner_id, u.username, s.name, s.slug, s.description, s.logo, s.banner,
		s.phone, s.email, s.address, s.city, s.postal_code, s.rating, s.total_products, s.total_sold,
		s.is_active, s.is_verified, (SELECT COUNT(*) FROM shop_followers f WHERE f.shop_id = s.id),
		s.created_at, s.updated_at
	FROM shops s
	JOIN users u ON u.id = s.owner_id`

func scanShop(row pgx.Row) (*model.Shop, error) {
	s := &model.Shop{}
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.OwnerUsername, &s.Name, &s.Slug, &s.Description, &s.Logo, &s.Banner,
		&s.Phone, &s.Email, &s.Address, &s.City, &s.PostalCode, &s.Rating, &s.TotalProducts, &s.TotalSold,
		&s.IsActive, &s.IsVerified, &s.FollowerCount, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// Create inserts the shop and flags its owner as a seller in one transaction.
// Slug and owner collisions surface as ErrSlugTaken and ErrShopOwnerTaken.
func (r *pgShopRepo) Create(ctx context.Context, shop *model.Shop) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	shop.ID = uuid.New()
	shop.IsActive = true
	query := `INSERT INTO shops (id, owner_id, name, slug, description, logo, banner, phone, email, address, city, postal_code, is_active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err = tx.QueryRow(ctx, query,
		shop.ID, shop.OwnerID, shop.Name, shop.Slug, shop.Description, shop.Logo, shop.Banner,
		shop.Phone, shop.Email, shop.Address, shop.City, shop.PostalCode,
	).Scan(&shop.CreatedAt, &shop.UpdatedAt)
	if err != nil {
		switch uniqueViolation(err) {
		case "shops_slug_key":
			return ErrSlugTaken
		case "shops_owner_id_key":
			return ErrShopOwnerTaken
		}
		return fmt.Errorf("insert shop: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE users SET is_seller = TRUE, updated_at = NOW() WHERE id = $1`, shop.OwnerID); err != nil {
		return fmt.Errorf("mark seller: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *pgShopRepo) getOne(ctx context.Context, where string, arg any) (*model.Shop, error) {
	shop, err := scanShop(r.pool.QueryRow(ctx, shopSelect+" WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shop: %w", err)
	}
	return shop, nil
}

func (r *pgShopRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Shop, error) {
	return r.getOne(ctx, "s.id = $1", id)
}

// GetBySlug only sees active shops.
func (r *pgShopRepo) GetBySlug(ctx context.Context, slug string) (*model.Shop, error) {
	return r.getOne(ctx, "s.slug = $1 AND s.is_active", slug)
}

func (r *pgShopRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*model.Shop, error) {
	return r.getOne(ctx, "s.owner_id = $1", ownerID)
}

func (r *pgShopRepo) List(ctx context.Context, limit, offset int) ([]model.Shop, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM shops WHERE is_active`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shops: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		shopSelect+` WHERE s.is_active ORDER BY s.created_at DESC, s.id LIMIT $1 OFFSET $2`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list shops: %w", err)
	}
	defer rows.Close()

	var shops []model.Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, *s)
	}
	return shops, total, rows.Err()
}

func (r *pgShopRepo) Update(ctx context.Context, shop *model.Shop) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE shops SET name=$2, description=$3, logo=$4, banner=$5, phone=$6, email=$7, address=$8,
		 city=$9, postal_code=$10, updated_at=NOW() WHERE id=$1 RETURNING updated_at`,
		shop.ID, shop.Name, shop.Description, shop.Logo, shop.Banner, shop.Phone, shop.Email,
		shop.Address, shop.City, shop.PostalCode,
	).Scan(&shop.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update shop: %w", err)
	}
	return nil
}

// TakenSlugs returns base and every "base-N" slug already stored.
func (r *pgShopRepo) TakenSlugs(ctx context.Context, base string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT slug FROM shops WHERE slug = $1 OR slug ~ ('^' || $1 || '-[0-9]+$')`, base,
	)
	if err != nil {
		return nil, fmt.Errorf("list taken slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan slug: %w", err)
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

func (r *pgShopRepo) Follow(ctx context.Context, shopID, userID uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx,
		`INSERT INTO shop_followers (shop_id, user_id, created_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (shop_id, user_id) DO NOTHING`, shopID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("follow shop: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgShopRepo) Unfollow(ctx context.Context, shopID, userID uuid.UUID) (bool, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM shop_followers WHERE shop_id = $1 AND user_id = $2`, shopID, userID)
	if err != nil {
		return false, fmt.Errorf("unfollow shop: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgShopRepo) IsFollowing(ctx context.Context, shopID, userID uuid.UUID) (bool, error) {
	var following bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM shop_followers WHERE shop_id = $1 AND user_id = $2)`, shopID, userID,
	).Scan(&following)
	if err != nil {
		return false, fmt.Errorf("check following: %w", err)
	}
	return following, nil
}

const shopOrderFilter = `EXISTS (SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
	WHERE oi.order_id = o.id AND p.shop_id = $1)`

// Stats runs the independent aggregate queries concurrently.
func (r *pgShopRepo) Stats(ctx context.Context, shopID uuid.UUID) (*model.ShopStats, error) {
	stats := &model.ShopStats{}
	g, gctx := errgroup.WithContext(ctx)

	scan := func(name, query string, dest any) {
		g.Go(func() error {
			if err := r.pool.QueryRow(gctx, query, shopID).Scan(dest); err != nil {
				return fmt.Errorf("shop stats %s: %w", name, err)
			}
			return nil
		})
	}
	scan("products", `SELECT COUNT(*) FROM products WHERE shop_id = $1`, &stats.TotalProducts)
	scan("orders", `SELECT COUNT(*) FROM orders o WHERE `+shopOrderFilter, &stats.TotalOrders)
	scan("revenue", `SELECT COALESCE(SUM(o.total), 0) FROM orders o WHERE o.status = 'delivered' AND `+shopOrderFilter, &stats.TotalRevenue)
	scan("pending", `SELECT COUNT(*) FROM orders o WHERE o.status IN ('pending', 'confirmed') AND `+shopOrderFilter, &stats.PendingOrders)
	scan("followers", `SELECT COUNT(*) FROM shop_followers WHERE shop_id = $1`, &stats.Followers)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// RecomputeCounters refreshes total_products and total_sold of every shop that
// owns one of the given products.
func (r *pgShopRepo) RecomputeCounters(ctx context.Context, productIDs []uuid.UUID) (int64, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(productIDs))
	for i, id := range productIDs {
		ids[i] = id.String()
	}

	ct, err := r.pool.Exec(ctx,
		`UPDATE shops s SET
			total_products = (SELECT COUNT(*) FROM products p WHERE p.shop_id = s.id),
			total_sold = (SELECT COALESCE(SUM(p.sold), 0) FROM products p WHERE p.shop_id = s.id),
			updated_at = NOW()
		 WHERE s.id IN (SELECT shop_id FROM products WHERE id = ANY($1::uuid[]) AND shop_id IS NOT NULL)`,
		ids,
	)
	if err != nil {
		return 0, fmt.Errorf("recompute shop counters: %w", err)
	}
	return ct.RowsAffected(), nil
}
