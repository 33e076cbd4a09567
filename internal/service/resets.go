package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/notify"
	"github.com/safar/license-store/internal/store"
	"github.com/sirupsen/logrus"
)

// Resets handles requests from buyers to reset the account credentials tied
// to a purchased product.
type Resets struct {
	db         *sql.DB
	logger     *logrus.Logger
	mailer     *mailer
	adminEmail string
}

type ResetRequest struct {
	ProductID uuid.UUID
	OrderID   uuid.UUID
	Username  string
	Password  string
}

func (s *Resets) Create(ctx context.Context, user *models.User, req ResetRequest) (*models.CredentialRequest, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, database.NewValidationError("username", "is required")
	}
	if req.Password == "" {
		return nil, database.NewValidationError("password", "is required")
	}

	owns, err := store.UserOwnsOrder(ctx, s.db, req.OrderID, user.ID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, database.ErrOrderNotOwned
	}

	created, err := store.CreateCredentialRequest(ctx, s.db, store.NewCredentialRequest{
		UserID:    user.ID,
		ProductID: req.ProductID,
		OrderID:   req.OrderID,
		Username:  username,
		Password:  req.Password,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": created.ID,
		"user_id":    user.ID,
		"order_id":   req.OrderID,
	}).Info("credential reset requested")

	if s.adminEmail != "" {
		productName := ""
		if product, err := store.GetProduct(ctx, s.db, req.ProductID); err == nil {
			productName = product.Name
		}
		msg, err := notify.ResetRequested(s.adminEmail, notify.ResetRequestedData{
			UserEmail:   user.Email,
			ProductName: productName,
		})
		s.mailer.send(ctx, msg, err)
	}

	return created, nil
}

func (s *Resets) ListMine(ctx context.Context, userID uuid.UUID) ([]models.CredentialRequestView, error) {
	return store.ListCredentialRequestsByUser(ctx, s.db, userID)
}

func (s *Resets) ListAll(ctx context.Context) ([]models.CredentialRequestView, error) {
	return store.ListAllCredentialRequests(ctx, s.db)
}

func (s *Resets) Resolve(ctx context.Context, id uuid.UUID, status, adminResponse string) (*models.CredentialRequest, error) {
	if status != models.RequestStatusApproved && status != models.RequestStatusRejected {
		return nil, database.NewValidationError("status", "must be approved or rejected")
	}

	req, email, err := store.ResolveCredentialRequest(ctx, s.db, id, status, strings.TrimSpace(adminResponse))
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"request_id": id,
		"status":     status,
	}).Info("credential reset resolved")

	msg, err := notify.ResetResolved(email, notify.ResetResolvedData{
		Approved:      status == models.RequestStatusApproved,
		AdminResponse: req.AdminResponse,
	})
	s.mailer.send(ctx, msg, err)

	return req, nil
}
