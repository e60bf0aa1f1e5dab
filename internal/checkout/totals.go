package checkout

import (
	"github.com/shopspring/decimal"
)

// DefaultFreeDeliveryThreshold is the subtotal from which delivery is free.
var DefaultFreeDeliveryThreshold = decimal.NewFromInt(499)

// Pricing holds the storefront's delivery rules.
type Pricing struct {
	FreeDeliveryThreshold decimal.Decimal
}

// DefaultPricing uses DefaultFreeDeliveryThreshold.
func DefaultPricing() Pricing {
	return Pricing{FreeDeliveryThreshold: DefaultFreeDeliveryThreshold}
}

// ComputeTotals prices the selected lines of cart.
//
// Taxes are the cart's tax figure apportioned by subtotal share and rounded to a
// whole unit. Delivery is free for an empty selection or at or above the threshold;
// otherwise the cart's fee applies.
func ComputeTotals(cart Cart, sel SelectionSet, pricing Pricing) Totals {
	subtotal := decimal.Zero
	for _, line := range matchingLines(cart, sel) {
		subtotal = subtotal.Add(line.LineTotal())
	}

	taxes := decimal.Zero
	if cart.Subtotal.IsPositive() {
		taxes = subtotal.Mul(cart.Taxes).Div(cart.Subtotal).Round(0)
	}

	deliveryFee := cart.DeliveryFee
	if subtotal.IsZero() || subtotal.GreaterThanOrEqual(pricing.FreeDeliveryThreshold) {
		deliveryFee = decimal.Zero
	}

	return Totals{
		Subtotal:    subtotal,
		Taxes:       taxes,
		DeliveryFee: deliveryFee,
		Total:       subtotal.Add(taxes).Add(deliveryFee),
	}
}
