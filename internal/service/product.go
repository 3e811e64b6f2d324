package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-marketplace-api/internal/dto"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
)

// ProductCacheKey is the Redis key of a cached product read view.
func ProductCacheKey(id uuid.UUID) string {
	return "product:" + id.String()
}

type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	shopRepo     repository.ShopRepository
	redisClient  *redis.Client
	cacheTTL     time.Duration
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	shopRepo repository.ShopRepository,
	redisClient *redis.Client,
	cacheTTL time.Duration,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		shopRepo:     shopRepo,
		redisClient:  redisClient,
		cacheTTL:     cacheTTL,
	}
}

// Create adds a catalog product that belongs to no shop.
func (s *ProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	return s.create(ctx, req, uuid.NullUUID{})
}

func (s *ProductService) create(ctx context.Context, req dto.CreateProductRequest, shopID uuid.NullUUID) (*dto.ProductResponse, error) {
	product := &model.Product{
		Name:               req.Name,
		Description:        req.Description,
		Price:              req.Price,
		DiscountPercentage: req.DiscountPercentage,
		Stock:              req.Stock,
		Image:              req.Image,
		CategoryID:         req.Category,
		ShopID:             shopID,
	}
	if req.OriginalPrice != nil {
		product.OriginalPrice = decimal.NewNullDecimal(*req.OriginalPrice)
	}
	if err := s.validate(ctx, product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return s.reload(ctx, product)
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := ProductCacheKey(id)

	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	resp := toProductResponse(product)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, cacheKey, data, s.cacheTTL)
		}
	}

	return &resp, nil
}

func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	filter, err := ParseProductFilter(req)
	if err != nil {
		return nil, err
	}

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return toProductList(products, total, req.PageRequest), nil
}

// ParseProductFilter converts query parameters into a repository filter.
func ParseProductFilter(req dto.ListProductsRequest) (model.ProductFilter, error) {
	verr := &ValidationError{}
	filter := model.ProductFilter{
		Search: strings.TrimSpace(req.Search),
		Limit:  req.Limit,
		Offset: req.Offset(),
	}

	if req.Category != "" {
		id, err := uuid.Parse(req.Category)
		if err != nil {
			verr.Add("category", "invalid id")
		}
		filter.CategoryID = uuid.NullUUID{UUID: id, Valid: err == nil}
	}

	parseAmount := func(field, raw string) decimal.NullDecimal {
		if raw == "" {
			return decimal.NullDecimal{}
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			verr.Add(field, "must be a number")
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	}
	filter.MinPrice = parseAmount("min_price", req.MinPrice)
	filter.MaxPrice = parseAmount("max_price", req.MaxPrice)
	filter.MinRating = parseAmount("min_rating", req.MinRating)

	ordering := req.Ordering
	if ordering == "" {
		ordering = "-created_at"
	}
	filter.Descending = strings.HasPrefix(ordering, "-")
	filter.SortField = strings.TrimPrefix(ordering, "-")
	switch filter.SortField {
	case "price", "sold", "rating", "created_at":
	default:
		verr.Add("ordering", "must be one of price, sold, rating, created_at")
	}

	if err := verr.Err(); err != nil {
		return model.ProductFilter{}, err
	}
	return filter, nil
}

// MyProducts lists the products of the shop owned by userID.
func (s *ProductService) MyProducts(ctx context.Context, userID uuid.UUID, page dto.PageRequest) (*dto.ProductListResponse, error) {
	shop, err := s.shopRepo.GetByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	if shop == nil {
		return nil, ErrShopNotFound
	}
	return s.ListByShop(ctx, shop.ID, page)
}

func (s *ProductService) ListByShop(ctx context.Context, shopID uuid.UUID, page dto.PageRequest) (*dto.ProductListResponse, error) {
	products, total, err := s.productRepo.ListByShop(ctx, shopID, page.Limit, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list shop products: %w", err)
	}
	return toProductList(products, total, page), nil
}

func (s *ProductService) Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.OriginalPrice != nil {
		product.OriginalPrice = decimal.NewNullDecimal(*req.OriginalPrice)
	}
	if req.DiscountPercentage != nil {
		product.DiscountPercentage = *req.DiscountPercentage
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Category != nil {
		product.CategoryID = *req.Category
	}
	if req.Image != nil {
		product.Image = *req.Image
	}
	if err := s.validate(ctx, product); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateCache(ctx, id)
	return s.reload(ctx, product)
}

func (s *ProductService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.loadOwned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

// loadOwned returns the product if actor is an admin or owns the product's shop.
func (s *ProductService) loadOwned(ctx context.Context, actor Actor, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if actor.IsAdmin() {
		return product, nil
	}
	if !product.ShopID.Valid {
		return nil, ErrNotProductOwner
	}

	shop, err := s.shopRepo.GetByID(ctx, product.ShopID.UUID)
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	if shop == nil || shop.OwnerID != actor.UserID {
		return nil, ErrNotProductOwner
	}
	return product, nil
}

func (s *ProductService) validate(ctx context.Context, p *model.Product) error {
	verr := ValidateProduct(p)
	category, err := s.categoryRepo.GetByID(ctx, p.CategoryID)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		verr.Add("category", "category does not exist")
	}
	return verr.Err()
}

// ValidateProduct checks the price, stock and discount constraints of a product.
func ValidateProduct(p *model.Product) *ValidationError {
	verr := &ValidationError{}
	if strings.TrimSpace(p.Name) == "" {
		verr.Add("name", "this field is required")
	}
	if !p.Price.IsPositive() {
		verr.Add("price", "must be greater than 0")
	}
	if msg := moneyPrecision(p.Price); msg != "" {
		verr.Add("price", msg)
	}
	if p.Stock < 0 {
		verr.Add("stock", "must not be negative")
	}
	if p.OriginalPrice.Valid {
		if msg := moneyPrecision(p.OriginalPrice.Decimal); msg != "" {
			verr.Add("original_price", msg)
		} else if p.OriginalPrice.Decimal.LessThan(p.Price) {
			verr.Add("original_price", "must not be lower than price")
		}
	}
	if p.DiscountPercentage < 0 || p.DiscountPercentage > 100 {
		verr.Add("discount_percentage", "must be between 0 and 100")
	}
	return verr
}

const (
	moneyDecimalPlaces = 2
	moneyMaxDigits     = 10
)

var moneyLimit = decimal.New(1, moneyMaxDigits-moneyDecimalPlaces)

// moneyPrecision checks an amount fits NUMERIC(10,2) without rounding.
func moneyPrecision(d decimal.Decimal) string {
	if !d.Equal(d.Round(moneyDecimalPlaces)) {
		return fmt.Sprintf("ensure that there are no more than %d decimal places", moneyDecimalPlaces)
	}
	if d.Abs().GreaterThanOrEqual(moneyLimit) {
		return fmt.Sprintf("ensure that there are no more than %d digits before the decimal point", moneyMaxDigits-moneyDecimalPlaces)
	}
	return ""
}

// reload re-reads the product so the response carries joined names.
func (s *ProductService) reload(ctx context.Context, product *model.Product) (*dto.ProductResponse, error) {
	fresh, err := s.productRepo.GetByID(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if fresh == nil {
		fresh = product
	}
	resp := toProductResponse(fresh)
	return &resp, nil
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.redisClient != nil {
		s.redisClient.Del(ctx, ProductCacheKey(id))
	}
}

func toProductList(products []model.Product, total int, page dto.PageRequest) *dto.ProductListResponse {
	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, toProductResponse(&products[i]))
	}
	return &dto.ProductListResponse{Products: items, Total: total, Page: page.Page, Limit: page.Limit}
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	resp := dto.ProductResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Price:              p.Price,
		DiscountPercentage: p.DiscountPercentage,
		Stock:              p.Stock,
		Sold:               p.Sold,
		Rating:             p.Rating,
		Image:              p.Image,
		Category:           p.CategoryID,
		CategoryName:       p.CategoryName,
		ShopName:           p.ShopName,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.OriginalPrice.Valid {
		original := p.OriginalPrice.Decimal
		resp.OriginalPrice = &original
	}
	if p.ShopID.Valid {
		shopID := p.ShopID.UUID
		resp.Shop = &shopID
	}
	return resp
}
