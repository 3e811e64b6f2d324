package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Avatar    string
	IsSeller  bool
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID   uuid.UUID
	Name string
	Icon string
}

type Product struct {
	ID                 uuid.UUID
	Name               string
	Description        string
	Price              decimal.Decimal
	OriginalPrice      decimal.NullDecimal
	DiscountPercentage int
	Stock              int
	Sold               int
	Rating             decimal.Decimal
	Image              string
	CategoryID         uuid.UUID
	CategoryName       string
	ShopID             uuid.NullUUID
	ShopName           string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ProductFilter narrows a catalog listing. Zero values mean "no filter".
type ProductFilter struct {
	Search     string
	CategoryID uuid.NullUUID
	MinPrice   decimal.NullDecimal
	MaxPrice   decimal.NullDecimal
	MinRating  decimal.NullDecimal
	SortField  string
	Descending bool
	Limit      int
	Offset     int
}

type Shop struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	OwnerUsername string
	Name          string
	Slug          string
	Description   string
	Logo          string
	Banner        string
	Phone         string
	Email         string
	Address       string
	City          string
	PostalCode    string
	Rating        decimal.Decimal
	TotalProducts int
	TotalSold     int
	IsActive      bool
	IsVerified    bool
	FollowerCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ShopFollower struct {
	ShopID    uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
}

type ShopStats struct {
	TotalProducts int
	TotalOrders   int
	TotalRevenue  decimal.Decimal
	PendingOrders int
	Followers     int
}
