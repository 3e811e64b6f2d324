package service

import (
	"github.com/shopspring/decimal"

	"github.com/flicky/go-marketplace-api/internal/model"
)

var (
	FreeShippingThreshold = decimal.NewFromInt(200)
	FlatShippingFee       = decimal.NewFromInt(30)
)

type Totals struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// ComputeTotals prices the lines from their snapshot prices. Shipping is free
// from FreeShippingThreshold upward; no discounts exist yet.
func ComputeTotals(items []model.OrderItem) Totals {
	subtotal := decimal.Zero
	for i := range items {
		items[i].Recalculate()
		subtotal = subtotal.Add(items[i].Subtotal)
	}

	shipping := FlatShippingFee
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	discount := decimal.Zero

	return Totals{
		Subtotal:    subtotal.Round(2),
		ShippingFee: shipping,
		Discount:    discount,
		Total:       subtotal.Add(shipping).Sub(discount).Round(2),
	}
}
