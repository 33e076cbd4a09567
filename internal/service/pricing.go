package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/pricing"
	"github.com/safar/license-store/internal/store"
	"github.com/shopspring/decimal"
)

// Quote is what a buyer would pay right now. It does not consume promo uses.
type Quote struct {
	Product    *models.Product   `json:"-"`
	Plan       models.Plan       `json:"plan"`
	Currency   string            `json:"currency"`
	BasePrice  decimal.Decimal   `json:"base_price"`
	Discount   *pricing.Discount `json:"discount,omitempty"`
	FinalPrice decimal.Decimal   `json:"final_price"`
}

type Pricing struct {
	db *sql.DB
}

func (s *Pricing) Quote(ctx context.Context, productID uuid.UUID, plan models.Plan, currency, promoCode string) (*Quote, error) {
	product, err := store.GetProduct(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}

	price, err := pricing.ResolvePrice(product, plan, currency)
	if err != nil {
		return nil, err
	}

	quote := &Quote{
		Product:    product,
		Plan:       plan,
		Currency:   strings.ToUpper(currency),
		BasePrice:  price,
		FinalPrice: price,
	}

	code := strings.TrimSpace(promoCode)
	if code == "" {
		return quote, nil
	}

	promo, err := store.GetPromoByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if err := store.PromoUsable(promo, time.Now()); err != nil {
		return nil, err
	}

	discount := pricing.ApplyPromo(price, promo)
	quote.Discount = &discount
	quote.FinalPrice = discount.FinalPrice

	return quote, nil
}
