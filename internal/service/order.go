package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/flicky/go-marketplace-api/internal/dto"
	"github.com/flicky/go-marketplace-api/internal/metrics"
	"github.com/flicky/go-marketplace-api/internal/model"
	"github.com/flicky/go-marketplace-api/internal/repository"
)

const (
	orderNumberPrefix = "ORD"
	// maxWriteAttempts bounds retries after order-number collisions, concurrent
	// price changes and concurrent status changes.
	maxWriteAttempts = 3
)

// OrderEventPublisher delivers order events to asynchronous consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event model.OrderEvent) error
}

type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	publisher   OrderEventPublisher
	log         *slog.Logger
	newNumber   func() string
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	publisher OrderEventPublisher,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		publisher:   publisher,
		log:         log,
		newNumber:   NewOrderNumber,
	}
}

// NewOrderNumber returns "ORD" followed by 8 upper-case hex characters.
func NewOrderNumber() string {
	id := uuid.New()
	return orderNumberPrefix + strings.ToUpper(fmt.Sprintf("%x", id[:4]))
}

// ValidateCreateOrder checks the order payload before anything is read or written.
func ValidateCreateOrder(req dto.CreateOrderRequest) error {
	verr := &ValidationError{}
	if len(req.Items) == 0 {
		verr.Add("items", "items required")
	}
	for i, item := range req.Items {
		if item.ProductID == uuid.Nil {
			verr.Add(fmt.Sprintf("items[%d].product_id", i), "this field is required")
		}
		if item.Quantity < 1 {
			verr.Add(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
	}
	if !req.PaymentMethod.Valid() {
		verr.Add("payment_method", "must be one of cod, bank, credit")
	}
	for field, value := range map[string]string{
		"full_name": req.FullName, "phone": req.Phone, "address": req.Address,
		"city": req.City, "district": req.District, "postal_code": req.PostalCode,
	} {
		if strings.TrimSpace(value) == "" {
			verr.Add(field, "this field is required")
		}
	}
	return verr.Err()
}

// CreateOrder prices the cart from current product records and persists the
// order with its lines and stock reservation atomically.
func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, req dto.CreateOrderRequest) (*model.Order, error) {
	if err := ValidateCreateOrder(req); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		order, err := s.buildOrder(ctx, userID, req)
		if err != nil {
			return nil, err
		}

		err = s.orderRepo.Create(ctx, order)
		switch {
		case err == nil:
			metrics.RecordOrderCreated(order.PaymentMethod)
			s.publish(ctx, model.OrderEventCreated, order)
			return order, nil
		case errors.Is(err, repository.ErrDuplicateOrderNumber), errors.Is(err, repository.ErrProductChanged):
			s.log.Warn("retrying order creation", "user_id", userID, "attempt", attempt, "error", err)
			continue
		case errors.Is(err, repository.ErrInsufficientStock):
			return nil, NewValidationError("items", "insufficient stock for one or more products")
		default:
			return nil, fmt.Errorf("create order: %w", err)
		}
	}
	return nil, ErrRetriesExhausted
}

func (s *OrderService) buildOrder(ctx context.Context, userID uuid.UUID, req dto.CreateOrderRequest) (*model.Order, error) {
	items := make([]model.OrderItem, 0, len(req.Items))
	requested := make(map[uuid.UUID]int, len(req.Items))
	for _, line := range req.Items {
		product, err := s.productRepo.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
		}

		requested[product.ID] += line.Quantity
		if requested[product.ID] > product.Stock {
			return nil, NewValidationError("items", fmt.Sprintf("only %d left of %q", product.Stock, product.Name))
		}

		items = append(items, model.OrderItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductPrice: product.Price,
			ProductImage: product.Image,
			Variant:      line.Variant,
			Quantity:     line.Quantity,
		})
	}

	totals := ComputeTotals(items)
	return &model.Order{
		UserID:        userID,
		OrderNumber:   s.newNumber(),
		FullName:      req.FullName,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		District:      req.District,
		PostalCode:    req.PostalCode,
		Subtotal:      totals.Subtotal,
		ShippingFee:   totals.ShippingFee,
		Discount:      totals.Discount,
		Total:         totals.Total,
		Status:        model.OrderStatusPending,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: model.PaymentStatusPending,
		Items:         items,
	}, nil
}

func (s *OrderService) GetByID(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetForUser(ctx, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListByUserID(ctx context.Context, userID uuid.UUID, page dto.PageRequest) ([]model.Order, int, error) {
	orders, total, err := s.orderRepo.ListByUser(ctx, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// Cancel moves a non-terminal order of the user to cancelled.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error) {
	load := func(ctx context.Context) (*model.Order, error) {
		return s.GetByID(ctx, orderID, userID)
	}
	order, err := s.transition(ctx, load, func(o *model.Order) error {
		if !o.Status.CanTransitionTo(model.OrderStatusCancelled) {
			return ErrOrderNotCancellable
		}
		o.Status = model.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordOrderCancelled()
	s.publish(ctx, model.OrderEventCancelled, order)
	return order, nil
}

// Advance moves an order containing products of shopID one step along the
// forward path. Delivering a cash-on-delivery order marks it paid.
func (s *OrderService) Advance(ctx context.Context, orderID, shopID uuid.UUID) (*model.Order, error) {
	load := func(ctx context.Context) (*model.Order, error) {
		order, err := s.orderRepo.GetForShop(ctx, orderID, shopID)
		if err != nil {
			return nil, fmt.Errorf("get order: %w", err)
		}
		if order == nil {
			return nil, ErrOrderNotFound
		}
		return order, nil
	}
	order, err := s.transition(ctx, load, func(o *model.Order) error {
		next, ok := o.Status.Next()
		if !ok {
			return ErrOrderNotAdvanceable
		}
		o.Status = next
		if next == model.OrderStatusDelivered && o.PaymentMethod == model.PaymentMethodCOD {
			o.PaymentStatus = model.PaymentStatusPaid
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.OrderEventAdvanced, order)
	return order, nil
}

// transition applies mutate to a freshly loaded order and writes it with a
// compare-and-set on the previous status, reloading on concurrent changes.
func (s *OrderService) transition(
	ctx context.Context,
	load func(context.Context) (*model.Order, error),
	mutate func(*model.Order) error,
) (*model.Order, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		order, err := load(ctx)
		if err != nil {
			return nil, err
		}
		from := order.Status
		if err := mutate(order); err != nil {
			return nil, err
		}

		err = s.orderRepo.UpdateStatus(ctx, order, from)
		if errors.Is(err, repository.ErrStatusChanged) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update order status: %w", err)
		}
		return order, nil
	}
	return nil, ErrRetriesExhausted
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *model.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, model.NewOrderEvent(eventType, order)); err != nil {
		s.log.Error("publish order event", "order_id", order.ID, "type", eventType, "error", err)
	}
}
