package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/auth"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/store"
	"github.com/sirupsen/logrus"
)

type Users struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Sync returns the local row for a verified identity, creating it on first
// sight.
func (s *Users) Sync(ctx context.Context, id *auth.Identity) (*models.User, error) {
	user, err := store.GetUser(ctx, s.db, id.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrUserNotFound) {
		return nil, err
	}

	user, err = store.CreateUser(ctx, s.db, id.UserID, id.Email, id.Name)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("user synced from identity provider")

	return user, nil
}

func (s *Users) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return store.GetUser(ctx, s.db, id)
}

func (s *Users) UpdateProfile(ctx context.Context, id uuid.UUID, fullName, currency string) (*models.User, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, database.NewValidationError("currency", "must be a three-letter code")
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return nil, database.NewValidationError("currency", "must be a three-letter code")
		}
	}

	return store.UpdateUserProfile(ctx, s.db, id, strings.TrimSpace(fullName), currency)
}

func (s *Users) List(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = store.NormalizePage(page, pageSize)
	return store.ListUsers(ctx, s.db, page, pageSize)
}

func (s *Users) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	if err := store.SetUserRole(ctx, s.db, id, role); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"user_id": id, "role": role}).Info("user role changed")
	return nil
}
