package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/notify"
	"github.com/safar/license-store/internal/pricing"
	"github.com/safar/license-store/internal/storage"
	"github.com/safar/license-store/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Orders struct {
	db       *sql.DB
	logger   *logrus.Logger
	uploader storage.Uploader
	mailer   *mailer
	pricing  *Pricing
	licenses *Licenses
	wallet   *Wallet
	promos   *Promos
	txOpts   database.TxOptions
}

type ManualOrderRequest struct {
	ProductID     uuid.UUID
	Plan          models.Plan
	Currency      string
	PromoCode     string
	TransactionID string
	Proof         *File
}

type WalletPurchaseRequest struct {
	ProductID uuid.UUID
	Plan      models.Plan
	Currency  string
	PromoCode string
}

func requirePaidPlan(plan models.Plan) error {
	if !plan.Valid() || plan.IsTrial() {
		return database.ErrInvalidPlan
	}
	return nil
}

func paymentRef(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixMilli())
}

// finalPrice recomputes the discount from the row returned by redemption so a
// promo edited after the quote is charged at its current value.
func (s *Orders) finalPrice(ctx context.Context, tx *sql.Tx, base decimal.Decimal, code string) (decimal.Decimal, string, error) {
	if code == "" {
		return base, "", nil
	}
	promo, err := s.promos.Redeem(ctx, tx, code)
	if err != nil {
		return decimal.Zero, "", err
	}
	return pricing.ApplyPromo(base, promo).FinalPrice, promo.Code, nil
}

// CreateManual records an order paid outside the system. It stays pending
// until an admin completes or rejects it.
func (s *Orders) CreateManual(ctx context.Context, userID uuid.UUID, req ManualOrderRequest) (*models.Order, error) {
	if err := requirePaidPlan(req.Plan); err != nil {
		return nil, err
	}
	txRef := strings.TrimSpace(req.TransactionID)
	if txRef == "" {
		return nil, database.NewValidationError("transactionId", "is required")
	}

	quote, err := s.pricing.Quote(ctx, req.ProductID, req.Plan, req.Currency, req.PromoCode)
	if err != nil {
		return nil, err
	}

	proofURL, err := uploadFile(ctx, s.uploader, "payments", req.Proof)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		price, code, err := s.finalPrice(ctx, tx, quote.BasePrice, strings.TrimSpace(req.PromoCode))
		if err != nil {
			return err
		}

		order, err = store.InsertOrder(ctx, tx, store.NewOrder{
			UserID:          userID,
			ProductID:       req.ProductID,
			Plan:            req.Plan,
			Price:           price,
			PaymentMethod:   models.PaymentMethodManual,
			TransactionID:   txRef,
			PaymentProofURL: proofURL,
			PromoCode:       code,
			Status:          models.OrderStatusPending,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"price":    order.Price.String(),
	}).Info("manual order created")

	return order, nil
}

// PurchaseWithWallet claims a key, redeems the promo, debits the wallet and
// records a completed order in a single transaction.
func (s *Orders) PurchaseWithWallet(ctx context.Context, userID uuid.UUID, req WalletPurchaseRequest) (*models.Order, error) {
	if err := requirePaidPlan(req.Plan); err != nil {
		return nil, err
	}

	quote, err := s.pricing.Quote(ctx, req.ProductID, req.Plan, req.Currency, req.PromoCode)
	if err != nil {
		return nil, err
	}

	balance, err := s.wallet.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(quote.FinalPrice) {
		return nil, database.ErrInsufficientBalance
	}

	var (
		order   *models.Order
		license *models.LicenseKey
	)
	err = database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		var err error
		license, err = s.licenses.Claim(ctx, tx, req.ProductID, req.Plan, userID)
		if err != nil {
			return err
		}

		price, code, err := s.finalPrice(ctx, tx, quote.BasePrice, strings.TrimSpace(req.PromoCode))
		if err != nil {
			return err
		}

		if price.IsPositive() {
			if _, err := s.wallet.Debit(ctx, tx, userID, price); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"reconciliation": true,
					"user_id":        userID,
					"license_key_id": license.ID,
					"amount":         price.String(),
				}).Error("wallet debit failed after license claim, rolling back")
				return err
			}
		}

		order, err = store.InsertOrder(ctx, tx, store.NewOrder{
			UserID:        userID,
			ProductID:     req.ProductID,
			Plan:          req.Plan,
			Price:         price,
			PaymentMethod: models.PaymentMethodWallet,
			TransactionID: paymentRef("WALLET"),
			PromoCode:     code,
			Status:        models.OrderStatusCompleted,
			LicenseKeyID:  uuid.NullUUID{UUID: license.ID, Valid: true},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"price":    order.Price.String(),
	}).Info("wallet purchase completed")

	s.notifyDelivered(ctx, order, quote.Product, license)
	return order, nil
}

// ClaimTrial hands out one free trial key per user and product.
func (s *Orders) ClaimTrial(ctx context.Context, userID, productID uuid.UUID) (*models.Order, error) {
	product, err := store.GetProduct(ctx, s.db, productID)
	if err != nil {
		return nil, err
	}
	if !product.TrialEnabled {
		return nil, database.ErrTrialNotAvailable
	}

	count, err := store.CountTrialOrders(ctx, s.db, userID, productID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, database.ErrTrialAlreadyClaimed
	}

	var (
		order   *models.Order
		license *models.LicenseKey
	)
	err = database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		var err error
		license, err = s.licenses.Claim(ctx, tx, productID, product.TrialPlan, userID)
		if err != nil {
			return err
		}

		order, err = store.InsertOrder(ctx, tx, store.NewOrder{
			UserID:        userID,
			ProductID:     productID,
			Plan:          product.TrialPlan,
			Price:         decimal.Zero,
			PaymentMethod: models.PaymentMethodFreeTrial,
			TransactionID: paymentRef("TRIAL"),
			Status:        models.OrderStatusCompleted,
			LicenseKeyID:  uuid.NullUUID{UUID: license.ID, Valid: true},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"plan":     product.TrialPlan,
	}).Info("trial claimed")

	s.notifyDelivered(ctx, order, product, license)
	return order, nil
}

// UpdateStatus moves a pending order to completed or rejected. Repeating the
// current terminal status returns the order unchanged.
func (s *Orders) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	switch status {
	case models.OrderStatusCompleted:
		return s.complete(ctx, id)
	case models.OrderStatusRejected:
		return s.reject(ctx, id)
	default:
		return nil, database.NewValidationError("status", "must be completed or rejected")
	}
}

func (s *Orders) complete(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var (
		order     *models.Order
		license   *models.LicenseKey
		unchanged bool
	)

	err := database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		current, err := store.LockOrder(ctx, tx, id)
		if err != nil {
			return err
		}

		switch current.Status {
		case models.OrderStatusCompleted:
			order, unchanged = current, true
			return nil
		case models.OrderStatusRejected:
			return database.ErrInvalidTransition
		}

		license, err = s.licenses.Claim(ctx, tx, current.ProductID, current.Plan, current.UserID)
		if err != nil {
			return err
		}

		order, err = store.CompleteOrder(ctx, tx, id, license.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if unchanged {
		return order, nil
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":       order.ID,
		"license_key_id": license.ID,
	}).Info("order completed")

	product, err := store.GetProduct(ctx, s.db, order.ProductID)
	if err != nil {
		s.logger.WithError(err).Warn("failed to load product for notification")
		return order, nil
	}
	s.notifyDelivered(ctx, order, product, license)

	return order, nil
}

func (s *Orders) reject(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order *models.Order
	var changed bool

	err := database.WithTransaction(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		rejected, err := store.RejectOrder(ctx, tx, id)
		if err == nil {
			order, changed = rejected, true
			return nil
		}
		if !errors.Is(err, database.ErrInvalidTransition) {
			return err
		}

		current, err := store.GetOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Status != models.OrderStatusRejected {
			return database.ErrInvalidTransition
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.WithField("order_id", id).Info("order rejected")
	}
	return order, nil
}

func (s *Orders) ListMine(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*store.CursorPage, error) {
	_, limit = store.NormalizePage(1, limit)
	return store.ListOrdersCursor(ctx, s.db, userID, cursor, limit)
}

func (s *Orders) ListAll(ctx context.Context, status string, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = store.NormalizePage(page, pageSize)
	return store.ListAllOrders(ctx, s.db, status, page, pageSize)
}

func (s *Orders) notifyDelivered(ctx context.Context, order *models.Order, product *models.Product, license *models.LicenseKey) {
	user, err := store.GetUser(ctx, s.db, order.UserID)
	if err != nil {
		s.logger.WithError(err).Warn("failed to load user for notification")
		return
	}

	msg, err := notify.LicenseDelivered(user.Email, notify.LicenseData{
		ProductName:       product.Name,
		Plan:              string(order.Plan),
		OrderNumber:       order.OrderNumber,
		LicenseKey:        license.Key,
		DownloadLink:      product.DownloadLink,
		ActivationProcess: product.ActivationProcess,
	})
	s.mailer.send(ctx, msg, err)
}
