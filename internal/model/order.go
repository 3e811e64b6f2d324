package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipping   OrderStatus = "shipping"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:    "Pending",
	OrderStatusConfirmed:  "Confirmed",
	OrderStatusProcessing: "Preparing items",
	OrderStatusShipping:   "Shipping",
	OrderStatusDelivered:  "Delivered",
	OrderStatusCancelled:  "Cancelled",
}

// forward path; cancelled is reachable from every non-terminal status.
var nextOrderStatus = map[OrderStatus]OrderStatus{
	OrderStatusPending:    OrderStatusConfirmed,
	OrderStatusConfirmed:  OrderStatusProcessing,
	OrderStatusProcessing: OrderStatusShipping,
	OrderStatusShipping:   OrderStatusDelivered,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

func (s OrderStatus) Label() string { return orderStatusLabels[s] }

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Next returns the following status on the forward path.
func (s OrderStatus) Next() (OrderStatus, bool) {
	next, ok := nextOrderStatus[s]
	return next, ok
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	next, ok := s.Next()
	return ok && next == to
}

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodBank   PaymentMethod = "bank"
	PaymentMethodCredit PaymentMethod = "credit"
)

var paymentMethodLabels = map[PaymentMethod]string{
	PaymentMethodCOD:    "Cash on delivery",
	PaymentMethodBank:   "Bank transfer",
	PaymentMethodCredit: "Credit/debit card",
}

func (m PaymentMethod) Valid() bool {
	_, ok := paymentMethodLabels[m]
	return ok
}

func (m PaymentMethod) Label() string { return paymentMethodLabels[m] }

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

var paymentStatusLabels = map[PaymentStatus]string{
	PaymentStatusPending: "Awaiting payment",
	PaymentStatusPaid:    "Paid",
	PaymentStatusFailed:  "Payment failed",
}

func (p PaymentStatus) Label() string { return paymentStatusLabels[p] }

type Order struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	OrderNumber   string
	FullName      string
	Phone         string
	Address       string
	City          string
	District      string
	PostalCode    string
	Subtotal      decimal.Decimal
	ShippingFee   decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	Status        OrderStatus
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductIDs returns the distinct products referenced by the order lines.
func (o *Order) ProductIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.Items))
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ProductID    uuid.UUID
	ProductName  string
	ProductPrice decimal.Decimal
	ProductImage string
	Variant      map[string]any
	Quantity     int
	Subtotal     decimal.Decimal
}

// Recalculate sets the line subtotal from the snapshot price. Called before
// every write of the line.
func (i *OrderItem) Recalculate() {
	i.Subtotal = i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

const (
	OrderEventCreated   = "order.created"
	OrderEventCancelled = "order.cancelled"
	OrderEventAdvanced  = "order.advanced"
)

type OrderEvent struct {
	ID         uuid.UUID   `json:"id"`
	Type       string      `json:"type"`
	OrderID    uuid.UUID   `json:"order_id"`
	UserID     uuid.UUID   `json:"user_id"`
	Status     OrderStatus `json:"status"`
	ProductIDs []uuid.UUID `json:"product_ids"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func NewOrderEvent(eventType string, order *Order) OrderEvent {
	return OrderEvent{
		ID:         uuid.New(),
		Type:       eventType,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		ProductIDs: order.ProductIDs(),
		OccurredAt: time.Now().UTC(),
	}
}
