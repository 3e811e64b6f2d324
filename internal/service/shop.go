package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/flicky/go-marketplace-api/internal/dto"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
)

const (
	defaultShopSlug = "shop"
	maxSlugAttempts = 5

	// MaxSlugLength matches the shops.slug column.
	MaxSlugLength = 200
	// slugSuffixReserve leaves room for "-N" on a full-length base.
	slugSuffixReserve = 11
)

type ShopService struct {
	shopRepo  repository.ShopRepository
	orderRepo repository.OrderRepository
	products  *ProductService
	orders    *OrderService
	log       *slog.Logger
}

func NewShopService(
	shopRepo repository.ShopRepository,
	orderRepo repository.OrderRepository,
	products *ProductService,
	orders *OrderService,
	log *slog.Logger,
) *ShopService {
	return &ShopService{shopRepo: shopRepo, orderRepo: orderRepo, products: products, orders: orders, log: log}
}

// SlugBase derives the URL-safe base slug of a shop name, short enough that
// any numeric suffix still fits in MaxSlugLength.
func SlugBase(name string) string {
	base := slug.Make(name)
	if limit := MaxSlugLength - slugSuffixReserve; len(base) > limit {
		base = strings.TrimRight(base[:limit], "-")
	}
	if base == "" {
		return defaultShopSlug
	}
	return base
}

// NextFreeSlug returns base if unused, otherwise the first "base-N" (N >= 1)
// not present in taken.
func NextFreeSlug(base string, taken []string) string {
	used := make(map[string]struct{}, len(taken))
	for _, s := range taken {
		used[s] = struct{}{}
	}
	if _, ok := used[base]; !ok {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if _, ok := used[candidate]; !ok {
			return candidate
		}
	}
}

// Create registers the caller's only shop. The slug is chosen from the taken
// set and the insert is retried when a concurrent writer claims it first.
func (s *ShopService) Create(ctx context.Context, ownerID uuid.UUID, req dto.CreateShopRequest) (*dto.ShopResponse, error) {
	existing, err := s.shopRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	if existing != nil {
		return nil, ErrShopAlreadyExists
	}

	shop := &model.Shop{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Logo:        req.Logo,
		Banner:      req.Banner,
		Phone:       req.Phone,
		Email:       req.Email,
		Address:     req.Address,
		City:        req.City,
		PostalCode:  req.PostalCode,
	}
	base := SlugBase(req.Name)

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		taken, err := s.shopRepo.TakenSlugs(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("probe slugs: %w", err)
		}
		shop.Slug = NextFreeSlug(base, taken)

		err = s.shopRepo.Create(ctx, shop)
		switch {
		case err == nil:
			return s.reload(ctx, shop.ID)
		case errors.Is(err, repository.ErrSlugTaken):
			s.log.Warn("shop slug taken concurrently", "slug", shop.Slug, "attempt", attempt)
			continue
		case errors.Is(err, repository.ErrShopOwnerTaken):
			return nil, ErrShopAlreadyExists
		default:
			return nil, fmt.Errorf("create shop: %w", err)
		}
	}
	return nil, ErrRetriesExhausted
}

func (s *ShopService) List(ctx context.Context, page dto.PageRequest) (*dto.ShopListResponse, error) {
	shops, total, err := s.shopRepo.List(ctx, page.Limit, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list shops: %w", err)
	}
	items := make([]dto.ShopResponse, 0, len(shops))
	for i := range shops {
		items = append(items, toShopResponse(&shops[i], false))
	}
	return &dto.ShopListResponse{Shops: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

// GetBySlug returns an active shop; viewer is uuid.Nil for anonymous callers.
func (s *ShopService) GetBySlug(ctx context.Context, shopSlug string, viewer uuid.UUID) (*dto.ShopResponse, error) {
	shop, err := s.getActive(ctx, shopSlug)
	if err != nil {
		return nil, err
	}

	following := false
	if viewer != uuid.Nil {
		following, err = s.shopRepo.IsFollowing(ctx, shop.ID, viewer)
		if err != nil {
			return nil, fmt.Errorf("check following: %w", err)
		}
	}
	resp := toShopResponse(shop, following)
	return &resp, nil
}

func (s *ShopService) MyShop(ctx context.Context, ownerID uuid.UUID) (*dto.ShopResponse, error) {
	shop, err := s.shopRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	resp := toShopResponse(shop, false)
	return &resp, nil
}

// Update changes shop details; the slug stays as assigned at creation.
func (s *ShopService) Update(ctx context.Context, shopSlug string, userID uuid.UUID, req dto.UpdateShopRequest) (*dto.ShopResponse, error) {
	shop, err := s.getOwned(ctx, shopSlug, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		shop.Name = *req.Name
	}
	if req.Description != nil {
		shop.Description = *req.Description
	}
	if req.Logo != nil {
		shop.Logo = *req.Logo
	}
	if req.Banner != nil {
		shop.Banner = *req.Banner
	}
	if req.Phone != nil {
		shop.Phone = *req.Phone
	}
	if req.Email != nil {
		shop.Email = *req.Email
	}
	if req.Address != nil {
		shop.Address = *req.Address
	}
	if req.City != nil {
		shop.City = *req.City
	}
	if req.PostalCode != nil {
		shop.PostalCode = *req.PostalCode
	}

	if err := s.shopRepo.Update(ctx, shop); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, fmt.Errorf("update shop: %w", err)
	}
	resp := toShopResponse(shop, false)
	return &resp, nil
}

func (s *ShopService) Products(ctx context.Context, shopSlug string, page dto.PageRequest) (*dto.ProductListResponse, error) {
	shop, err := s.getActive(ctx, shopSlug)
	if err != nil {
		return nil, err
	}
	return s.products.ListByShop(ctx, shop.ID, page)
}

// AddProduct creates a product owned by the shop. Only the owner may add.
func (s *ShopService) AddProduct(ctx context.Context, shopSlug string, userID uuid.UUID, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	shop, err := s.getOwned(ctx, shopSlug, userID)
	if err != nil {
		return nil, err
	}
	return s.products.create(ctx, req, uuid.NullUUID{UUID: shop.ID, Valid: true})
}

// Orders lists the distinct orders containing products of the shop.
func (s *ShopService) Orders(ctx context.Context, shopSlug string, userID uuid.UUID, page dto.PageRequest) ([]model.Order, int, error) {
	shop, err := s.getOwned(ctx, shopSlug, userID)
	if err != nil {
		return nil, 0, err
	}
	orders, total, err := s.orderRepo.ListByShop(ctx, shop.ID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list shop orders: %w", err)
	}
	return orders, total, nil
}

func (s *ShopService) AdvanceOrder(ctx context.Context, shopSlug string, userID, orderID uuid.UUID) (*model.Order, error) {
	shop, err := s.getOwned(ctx, shopSlug, userID)
	if err != nil {
		return nil, err
	}
	return s.orders.Advance(ctx, orderID, shop.ID)
}

// Follow reports whether a new follow was recorded; following twice is a no-op.
func (s *ShopService) Follow(ctx context.Context, shopSlug string, userID uuid.UUID) (bool, error) {
	shop, err := s.getActive(ctx, shopSlug)
	if err != nil {
		return false, err
	}
	created, err := s.shopRepo.Follow(ctx, shop.ID, userID)
	if err != nil {
		return false, fmt.Errorf("follow shop: %w", err)
	}
	return created, nil
}

func (s *ShopService) Unfollow(ctx context.Context, shopSlug string, userID uuid.UUID) error {
	shop, err := s.getActive(ctx, shopSlug)
	if err != nil {
		return err
	}
	removed, err := s.shopRepo.Unfollow(ctx, shop.ID, userID)
	if err != nil {
		return fmt.Errorf("unfollow shop: %w", err)
	}
	if !removed {
		return NewValidationError("shop", "you are not following this shop")
	}
	return nil
}

func (s *ShopService) Stats(ctx context.Context, shopSlug string, userID uuid.UUID) (*dto.ShopStatsResponse, error) {
	shop, err := s.getOwned(ctx, shopSlug, userID)
	if err != nil {
		return nil, err
	}
	stats, err := s.shopRepo.Stats(ctx, shop.ID)
	if err != nil {
		return nil, fmt.Errorf("shop stats: %w", err)
	}
	return &dto.ShopStatsResponse{
		TotalProducts: stats.TotalProducts,
		TotalOrders:   stats.TotalOrders,
		TotalRevenue:  stats.TotalRevenue,
		PendingOrders: stats.PendingOrders,
		Followers:     stats.Followers,
	}, nil
}

func (s *ShopService) getActive(ctx context.Context, shopSlug string) (*model.Shop, error) {
	shop, err := s.shopRepo.GetBySlug(ctx, shopSlug)
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	return shop, nil
}

func (s *ShopService) getOwned(ctx context.Context, shopSlug string, userID uuid.UUID) (*model.Shop, error) {
	shop, err := s.getActive(ctx, shopSlug)
	if err != nil {
		return nil, err
	}
	if shop.OwnerID != userID {
		return nil, ErrNotShopOwner
	}
	return shop, nil
}

func (s *ShopService) reload(ctx context.Context, id uuid.UUID) (*dto.ShopResponse, error) {
	shop, err := s.shopRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	resp := toShopResponse(shop, false)
	return &resp, nil
}

func toShopResponse(s *model.Shop, following bool) dto.ShopResponse {
	return dto.ShopResponse{
		ID:            s.ID,
		Owner:         s.OwnerID,
		OwnerUsername: s.OwnerUsername,
		Name:          s.Name,
		Slug:          s.Slug,
		Description:   s.Description,
		Logo:          s.Logo,
		Banner:        s.Banner,
		Phone:         s.Phone,
		Email:         s.Email,
		Address:       s.Address,
		City:          s.City,
		PostalCode:    s.PostalCode,
		Rating:        s.Rating,
		TotalProducts: s.TotalProducts,
		TotalSold:     s.TotalSold,
		IsActive:      s.IsActive,
		IsVerified:    s.IsVerified,
		FollowerCount: s.FollowerCount,
		IsFollowing:   following,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}
