package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-marketplace-api/internal/model"
)

type PageRequest struct {
	Page  int `form:"page,default=1" binding:"min=1"`
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}

func (p PageRequest) Offset() int { return (p.Page - 1) * p.Limit }

type MessageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type RegisterRequest struct {
	Username  string `json:"username" binding:"required,max=150"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Password2 string `json:"password2" binding:"required"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	Phone     *string `json:"phone" binding:"omitempty,max=20"`
	Avatar    *string `json:"avatar" binding:"omitempty,max=500"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type AuthResponse struct {
	User   UserResponse `json:"user"`
	Tokens TokenPair    `json:"tokens"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Avatar    string    `json:"avatar"`
	IsSeller  bool      `json:"is_seller"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Category ---

type CategoryRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Icon string `json:"icon" binding:"max=100"`
}

type CategoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Icon string    `json:"icon"`
}

// --- Product ---

type CreateProductRequest struct {
	Name               string           `json:"name" binding:"required,max=200"`
	Description        string           `json:"description" binding:"required"`
	Price              decimal.Decimal  `json:"price"`
	OriginalPrice      *decimal.Decimal `json:"original_price"`
	DiscountPercentage int              `json:"discount_percentage"`
	Stock              int              `json:"stock"`
	Category           uuid.UUID        `json:"category" binding:"required"`
	Image              string           `json:"image" binding:"max=500"`
}

type UpdateProductRequest struct {
	Name               *string          `json:"name" binding:"omitempty,max=200"`
	Description        *string          `json:"description"`
	Price              *decimal.Decimal `json:"price"`
	OriginalPrice      *decimal.Decimal `json:"original_price"`
	DiscountPercentage *int             `json:"discount_percentage"`
	Stock              *int             `json:"stock"`
	Category           *uuid.UUID       `json:"category"`
	Image              *string          `json:"image" binding:"omitempty,max=500"`
}

type ListProductsRequest struct {
	PageRequest
	Search    string `form:"search"`
	Category  string `form:"category"`
	MinPrice  string `form:"min_price"`
	MaxPrice  string `form:"max_price"`
	MinRating string `form:"min_rating"`
	Ordering  string `form:"ordering,default=-created_at"`
}

type ProductResponse struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	Description        string           `json:"description"`
	Price              decimal.Decimal  `json:"price"`
	OriginalPrice      *decimal.Decimal `json:"original_price"`
	DiscountPercentage int              `json:"discount_percentage"`
	Stock              int              `json:"stock"`
	Sold               int              `json:"sold"`
	Rating             decimal.Decimal  `json:"rating"`
	Image              string           `json:"image"`
	Category           uuid.UUID        `json:"category"`
	CategoryName       string           `json:"category_name"`
	Shop               *uuid.UUID       `json:"shop"`
	ShopName           string           `json:"shop_name"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Shop ---

type CreateShopRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
	Logo        string `json:"logo" binding:"max=500"`
	Banner      string `json:"banner" binding:"max=500"`
	Phone       string `json:"phone" binding:"required,max=20"`
	Email       string `json:"email" binding:"required,email"`
	Address     string `json:"address" binding:"required"`
	City        string `json:"city" binding:"required,max=100"`
	PostalCode  string `json:"postal_code" binding:"required,max=10"`
}

type UpdateShopRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	Logo        *string `json:"logo" binding:"omitempty,max=500"`
	Banner      *string `json:"banner" binding:"omitempty,max=500"`
	Phone       *string `json:"phone" binding:"omitempty,min=1,max=20"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Address     *string `json:"address" binding:"omitempty,min=1"`
	City        *string `json:"city" binding:"omitempty,min=1,max=100"`
	PostalCode  *string `json:"postal_code" binding:"omitempty,min=1,max=10"`
}

type ShopResponse struct {
	ID            uuid.UUID       `json:"id"`
	Owner         uuid.UUID       `json:"owner"`
	OwnerUsername string          `json:"owner_username"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	Logo          string          `json:"logo"`
	Banner        string          `json:"banner"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email"`
	Address       string          `json:"address"`
	City          string          `json:"city"`
	PostalCode    string          `json:"postal_code"`
	Rating        decimal.Decimal `json:"rating"`
	TotalProducts int             `json:"total_products"`
	TotalSold     int             `json:"total_sold"`
	IsActive      bool            `json:"is_active"`
	IsVerified    bool            `json:"is_verified"`
	FollowerCount int             `json:"follower_count"`
	IsFollowing   bool            `json:"is_following"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type ShopListResponse struct {
	Shops []ShopResponse `json:"shops"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type ShopStatsResponse struct {
	TotalProducts int             `json:"total_products"`
	TotalOrders   int             `json:"total_orders"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	PendingOrders int             `json:"pending_orders"`
	Followers     int             `json:"followers"`
}

// --- Order ---

type CreateOrderRequest struct {
	FullName      string              `json:"full_name" binding:"required,max=200"`
	Phone         string              `json:"phone" binding:"required,max=20"`
	Address       string              `json:"address" binding:"required"`
	City          string              `json:"city" binding:"required,max=100"`
	District      string              `json:"district" binding:"required,max=100"`
	PostalCode    string              `json:"postal_code" binding:"required,max=10"`
	PaymentMethod model.PaymentMethod `json:"payment_method" binding:"required,oneof=cod bank credit"`
	Items         []CreateOrderItem   `json:"items" binding:"dive"`
}

type CreateOrderItem struct {
	ProductID uuid.UUID      `json:"product_id" binding:"required"`
	Quantity  int            `json:"quantity" binding:"required,min=1"`
	Variant   map[string]any `json:"variant"`
}

type OrderResponse struct {
	ID                   uuid.UUID           `json:"id"`
	OrderNumber          string              `json:"order_number"`
	FullName             string              `json:"full_name"`
	Phone                string              `json:"phone"`
	Address              string              `json:"address"`
	City                 string              `json:"city"`
	District             string              `json:"district"`
	PostalCode           string              `json:"postal_code"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	ShippingFee          decimal.Decimal     `json:"shipping_fee"`
	Discount             decimal.Decimal     `json:"discount"`
	Total                decimal.Decimal     `json:"total"`
	Status               model.OrderStatus   `json:"status"`
	StatusDisplay        string              `json:"status_display"`
	PaymentMethod        model.PaymentMethod `json:"payment_method"`
	PaymentMethodDisplay string              `json:"payment_method_display"`
	PaymentStatus        model.PaymentStatus `json:"payment_status"`
	PaymentStatusDisplay string              `json:"payment_status_display"`
	Items                []OrderItemResponse `json:"items"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

type OrderItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	Product      uuid.UUID       `json:"product"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	ProductImage string          `json:"product_image"`
	Variant      map[string]any  `json:"variant"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}
