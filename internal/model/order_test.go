package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CancelAllowedUntilTerminal(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipping} {
		assert.True(t, s.CanTransitionTo(OrderStatusCancelled), s)
	}
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusCancelled.CanTransitionTo(OrderStatusCancelled))
}

func TestOrderStatus_ForwardOnly(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusConfirmed))
	assert.True(t, OrderStatusShipping.CanTransitionTo(OrderStatusDelivered))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatusShipping))
	assert.False(t, OrderStatusConfirmed.CanTransitionTo(OrderStatusPending))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusPending))

	_, ok := OrderStatusDelivered.Next()
	assert.False(t, ok)
}

func TestOrderItem_Recalculate(t *testing.T) {
	item := OrderItem{ProductPrice: decimal.RequireFromString("19.99"), Quantity: 3}
	item.Recalculate()
	assert.True(t, decimal.RequireFromString("59.97").Equal(item.Subtotal))

	item.Quantity = 1
	item.Recalculate()
	assert.True(t, decimal.RequireFromString("19.99").Equal(item.Subtotal))
}

func TestOrder_ProductIDsDistinct(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	o := &Order{Items: []OrderItem{{ProductID: a}, {ProductID: b}, {ProductID: a}}}
	assert.Equal(t, []uuid.UUID{a, b}, o.ProductIDs())
}
