package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/store"
	"github.com/sirupsen/logrus"
)

type Licenses struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Claim assigns one unused key of plan to userID through db, which is usually
// the caller's transaction.
func (s *Licenses) Claim(ctx context.Context, db database.DBTX, productID uuid.UUID, plan models.Plan, userID uuid.UUID) (*models.LicenseKey, error) {
	license, err := store.ClaimLicense(ctx, db, productID, plan, userID)
	if err != nil {
		if errors.Is(err, database.ErrOutOfStock) {
			s.logger.WithFields(logrus.Fields{
				"product_id": productID,
				"plan":       plan,
			}).Info("license pool exhausted")
		}
		return nil, err
	}
	return license, nil
}

// BulkAdd stores keys for one product and plan. Blank lines are ignored.
func (s *Licenses) BulkAdd(ctx context.Context, productID uuid.UUID, plan models.Plan, keys []string) (*store.BulkAddResult, error) {
	if !plan.Valid() {
		return nil, database.ErrInvalidPlan
	}

	cleaned := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			cleaned = append(cleaned, k)
		}
	}
	if len(cleaned) == 0 {
		return nil, database.NewValidationError("keys", "at least one key is required")
	}

	result, err := store.BulkAddLicenses(ctx, s.db, productID, plan, cleaned)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"plan":       plan,
		"inserted":   result.Inserted,
		"duplicates": len(result.Duplicates),
	}).Info("license keys added")

	return result, nil
}

func (s *Licenses) DeleteUnused(ctx context.Context, productID *uuid.UUID) (int64, error) {
	n, err := store.DeleteUnusedLicenses(ctx, s.db, productID)
	if err != nil {
		return 0, err
	}
	s.logger.WithField("deleted", n).Info("unused license keys deleted")
	return n, nil
}

func (s *Licenses) Delete(ctx context.Context, id uuid.UUID) error {
	return store.DeleteLicense(ctx, s.db, id)
}

func (s *Licenses) List(ctx context.Context, filter store.LicenseFilter, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = store.NormalizePage(page, pageSize)
	return store.ListLicenses(ctx, s.db, filter, page, pageSize)
}
