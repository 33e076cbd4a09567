package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/notify"
	"github.com/safar/license-store/internal/storage"
	"github.com/safar/license-store/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type TopUps struct {
	db       *sql.DB
	logger   *logrus.Logger
	uploader storage.Uploader
	mailer   *mailer
	wallet   *Wallet
	txOpts   database.TxOptions
}

type TopUpRequest struct {
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	TransactionID string
	Proof         *File
}

func (s *TopUps) Create(ctx context.Context, userID uuid.UUID, req TopUpRequest) (*models.TopUpRequest, error) {
	if !req.Amount.IsPositive() {
		return nil, database.ErrInvalidAmount
	}
	txRef := strings.TrimSpace(req.TransactionID)
	if txRef == "" {
		return nil, database.NewValidationError("transactionId", "is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	proofURL, err := uploadFile(ctx, s.uploader, "topups", req.Proof)
	if err != nil {
		return nil, err
	}

	topUp, err := store.CreateTopUp(ctx, s.db, store.NewTopUp{
		UserID:        userID,
		Amount:        req.Amount,
		Currency:      currency,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		TransactionID: txRef,
		ProofURL:      proofURL,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"topup_id": topUp.ID,
		"user_id":  userID,
		"amount":   topUp.Amount.String(),
		"currency": topUp.Currency,
	}).Info("top-up requested")

	return topUp, nil
}

// Approve marks a pending request approved and credits the converted amount
// in the same transaction, so a request is credited at most once.
func (s *TopUps) Approve(ctx context.Context, id uuid.UUID) (*models.TopUpRequest, error) {
	var (
		topUp    *models.TopUpRequest
		credited decimal.Decimal
	)

	err := database.WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		var err error
		topUp, err = store.ProcessTopUp(ctx, tx, id, models.RequestStatusApproved)
		if err != nil {
			return err
		}
		credited, _, err = s.wallet.CreditFromForeignAmount(ctx, tx, topUp.UserID, topUp.Amount, topUp.Currency)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, topUp, credited)
	return topUp, nil
}

func (s *TopUps) Reject(ctx context.Context, id uuid.UUID) (*models.TopUpRequest, error) {
	topUp, err := store.ProcessTopUp(ctx, s.db, id, models.RequestStatusRejected)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("topup_id", id).Info("top-up rejected")
	s.notify(ctx, topUp, decimal.Zero)
	return topUp, nil
}

// Process dispatches on the requested terminal status.
func (s *TopUps) Process(ctx context.Context, id uuid.UUID, status string) (*models.TopUpRequest, error) {
	switch status {
	case models.RequestStatusApproved:
		return s.Approve(ctx, id)
	case models.RequestStatusRejected:
		return s.Reject(ctx, id)
	default:
		return nil, database.NewValidationError("status", "must be approved or rejected")
	}
}

func (s *TopUps) ListMine(ctx context.Context, userID uuid.UUID) ([]models.TopUpRequest, error) {
	return store.ListTopUpsByUser(ctx, s.db, userID)
}

func (s *TopUps) ListAll(ctx context.Context, status string, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = store.NormalizePage(page, pageSize)
	return store.ListAllTopUps(ctx, s.db, status, page, pageSize)
}

func (s *TopUps) notify(ctx context.Context, topUp *models.TopUpRequest, credited decimal.Decimal) {
	user, err := store.GetUser(ctx, s.db, topUp.UserID)
	if err != nil {
		s.logger.WithError(err).Warn("failed to load user for notification")
		return
	}

	data := notify.TopUpData{
		Amount:   topUp.Amount.StringFixed(2),
		Currency: topUp.Currency,
		Status:   topUp.Status,
	}
	if credited.IsPositive() {
		data.Credited = credited.StringFixed(2)
	}

	msg, err := notify.TopUpProcessed(user.Email, data)
	s.mailer.send(ctx, msg, err)
}
