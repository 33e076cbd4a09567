package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/pricing"
	"github.com/safar/license-store/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Promos struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Validate previews the discount code gives on cartTotal without consuming a
// use.
func (s *Promos) Validate(ctx context.Context, code string, cartTotal decimal.Decimal) (*pricing.Discount, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, database.NewValidationError("code", "is required")
	}
	if cartTotal.IsNegative() {
		return nil, database.NewValidationError("cartTotal", "must not be negative")
	}

	promo, err := store.GetPromoByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if err := store.PromoUsable(promo, time.Now()); err != nil {
		return nil, err
	}

	discount := pricing.ApplyPromo(cartTotal, promo)
	return &discount, nil
}

// Redeem consumes one use of code inside tx.
func (s *Promos) Redeem(ctx context.Context, tx *sql.Tx, code string) (*models.PromoCode, error) {
	promo, err := store.RedeemPromo(ctx, tx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"code":       promo.Code,
		"uses_count": promo.UsesCount,
	}).Debug("promo redeemed")
	return promo, nil
}

func (s *Promos) List(ctx context.Context) ([]models.PromoCode, error) {
	return store.ListPromos(ctx, s.db)
}

func (s *Promos) Create(ctx context.Context, in store.PromoInput) (*models.PromoCode, error) {
	in.Code = strings.TrimSpace(in.Code)
	return store.CreatePromo(ctx, s.db, in)
}

func (s *Promos) Update(ctx context.Context, id uuid.UUID, in store.PromoInput) (*models.PromoCode, error) {
	in.Code = strings.TrimSpace(in.Code)
	return store.UpdatePromo(ctx, s.db, id, in)
}

func (s *Promos) Delete(ctx context.Context, id uuid.UUID) error {
	return store.DeletePromo(ctx, s.db, id)
}
