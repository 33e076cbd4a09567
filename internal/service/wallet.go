package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/pricing"
	"github.com/safar/license-store/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Wallet balances are held in USD.
type Wallet struct {
	db     *sql.DB
	logger *logrus.Logger
	rates  pricing.Rates
}

func (s *Wallet) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return store.GetBalance(ctx, s.db, userID)
}

func (s *Wallet) Debit(ctx context.Context, db database.DBTX, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	return store.Debit(ctx, db, userID, amount)
}

func (s *Wallet) Credit(ctx context.Context, db database.DBTX, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	return store.Credit(ctx, db, userID, amount)
}

// CreditFromForeignAmount converts amount in currency to USD and credits it.
// It returns the credited USD amount and the new balance.
func (s *Wallet) CreditFromForeignAmount(ctx context.Context, db database.DBTX, userID uuid.UUID, amount decimal.Decimal, currency string) (decimal.Decimal, decimal.Decimal, error) {
	usd := s.rates.ToUSD(amount, currency)
	if !usd.IsPositive() {
		return decimal.Zero, decimal.Zero, database.ErrInvalidAmount
	}

	balance, err := store.Credit(ctx, db, userID, usd)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"amount":   amount.String(),
		"currency": currency,
		"usd":      usd.String(),
	}).Info("wallet credited")

	return usd, balance, nil
}
