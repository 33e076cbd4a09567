// Package pricing turns a product, plan and currency into the amount charged,
// and applies promo discounts to it.
package pricing

import (
	"strings"

	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ResolvePrice returns the price of plan for a buyer in currency. A non-zero
// regional override wins; otherwise the USD base price applies.
func ResolvePrice(product *models.Product, plan models.Plan, currency string) (decimal.Decimal, error) {
	if !plan.Valid() {
		return decimal.Zero, database.ErrInvalidPlan
	}
	if plan.IsTrial() {
		return decimal.Zero, nil
	}

	code := strings.ToUpper(strings.TrimSpace(currency))
	if overrides, ok := product.CurrencyPrices[code]; ok {
		if price, ok := overrides[plan]; ok && price.IsPositive() {
			return price, nil
		}
	}

	price, _ := product.BasePrice(plan)
	return price, nil
}

type Discount struct {
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalPrice     decimal.Decimal `json:"finalPrice"`
}

// ApplyPromo computes the discount promo gives on price. The discount never
// exceeds the price, so the final price is never negative.
func ApplyPromo(price decimal.Decimal, promo *models.PromoCode) Discount {
	var amount decimal.Decimal
	switch promo.Type {
	case models.PromoTypePercent:
		amount = price.Mul(promo.Value).Div(hundred)
	default:
		amount = promo.Value
	}

	amount = amount.Round(2)
	if amount.GreaterThan(price) {
		amount = price
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return Discount{
		Code:           promo.Code,
		DiscountAmount: amount,
		FinalPrice:     price.Sub(amount),
	}
}
