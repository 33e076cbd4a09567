package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/shopspring/decimal"
)

const promoColumns = `id, code, type, value, max_uses, uses_count, expires_at, is_active, created_at`

func scanPromo(row rowScanner, promo *models.PromoCode) error {
	return row.Scan(
		&promo.ID,
		&promo.Code,
		&promo.Type,
		&promo.Value,
		&promo.MaxUses,
		&promo.UsesCount,
		&promo.ExpiresAt,
		&promo.IsActive,
		&promo.CreatedAt,
	)
}

// PromoUsable reports why promo cannot be applied at now, or nil if it can.
func PromoUsable(promo *models.PromoCode, now time.Time) error {
	if !promo.IsActive {
		return database.ErrPromoNotFound
	}
	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(now) {
		return database.ErrPromoExpired
	}
	if promo.MaxUses != nil && promo.UsesCount >= *promo.MaxUses {
		return database.ErrPromoLimitReached
	}
	return nil
}

func GetPromoByCode(ctx context.Context, db database.DBTX, code string) (*models.PromoCode, error) {
	promo := &models.PromoCode{}

	err := scanPromo(db.QueryRowContext(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE code = $1`, code), promo)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPromoNotFound
		}
		return nil, fmt.Errorf("get promo: %w", err)
	}

	return promo, nil
}

// RedeemPromo consumes one use of code and returns the row as it stands after
// the increment. It prefers the redeem_promo_code database function and falls
// back to an equivalent conditional update when the role may not call it.
// Both paths refuse to pass max_uses.
func RedeemPromo(ctx context.Context, tx *sql.Tx, code string) (*models.PromoCode, error) {
	if _, err := tx.ExecContext(ctx, `SAVEPOINT redeem_promo`); err != nil {
		return nil, fmt.Errorf("savepoint: %w", err)
	}

	promo := &models.PromoCode{}
	err := scanPromo(tx.QueryRowContext(ctx,
		`SELECT `+promoColumns+` FROM redeem_promo_code($1)`, code), promo)

	if err != nil && database.IsPermissionDenied(err) {
		if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT redeem_promo`); rbErr != nil {
			return nil, fmt.Errorf("rollback to savepoint: %w", rbErr)
		}
		err = scanPromo(tx.QueryRowContext(ctx,
			`UPDATE promo_codes
			 SET uses_count = uses_count + 1
			 WHERE code = $1
			   AND is_active
			   AND (expires_at IS NULL OR expires_at > NOW())
			   AND (max_uses IS NULL OR uses_count < max_uses)
			 RETURNING `+promoColumns, code), promo)
	}

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, diagnosePromo(ctx, tx, code)
		}
		return nil, fmt.Errorf("redeem promo: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT redeem_promo`); err != nil {
		return nil, fmt.Errorf("release savepoint: %w", err)
	}

	return promo, nil
}

func diagnosePromo(ctx context.Context, db database.DBTX, code string) error {
	promo, err := GetPromoByCode(ctx, db, code)
	if err != nil {
		return err
	}
	if err := PromoUsable(promo, time.Now()); err != nil {
		return err
	}
	// The guard failed but the row looks usable now: the last use went to a
	// concurrent redemption between the two reads.
	return database.ErrPromoLimitReached
}

type PromoInput struct {
	Code      string
	Type      string
	Value     decimal.Decimal
	MaxUses   *int
	ExpiresAt *time.Time
	IsActive  bool
}

func (in PromoInput) validate() error {
	if in.Code == "" {
		return database.NewValidationError("code", "is required")
	}
	if in.Type != models.PromoTypePercent && in.Type != models.PromoTypeFixed {
		return database.NewValidationError("type", "must be percent or fixed")
	}
	if !in.Value.IsPositive() {
		return database.NewValidationError("value", "must be positive")
	}
	if in.Type == models.PromoTypePercent && in.Value.GreaterThan(decimal.NewFromInt(100)) {
		return database.NewValidationError("value", "percent discount cannot exceed 100")
	}
	if in.MaxUses != nil && *in.MaxUses <= 0 {
		return database.NewValidationError("max_uses", "must be positive")
	}
	return nil
}

func CreatePromo(ctx context.Context, db database.DBTX, in PromoInput) (*models.PromoCode, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	promo := &models.PromoCode{}
	err := scanPromo(db.QueryRowContext(ctx,
		`INSERT INTO promo_codes (code, type, value, max_uses, expires_at, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+promoColumns,
		in.Code, in.Type, in.Value, in.MaxUses, in.ExpiresAt, in.IsActive), promo)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrPromoCodeExists
		}
		return nil, fmt.Errorf("create promo: %w", err)
	}

	return promo, nil
}

func UpdatePromo(ctx context.Context, db database.DBTX, id uuid.UUID, in PromoInput) (*models.PromoCode, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	promo := &models.PromoCode{}
	err := scanPromo(db.QueryRowContext(ctx,
		`UPDATE promo_codes
		 SET code = $2, type = $3, value = $4, max_uses = $5, expires_at = $6, is_active = $7
		 WHERE id = $1
		 RETURNING `+promoColumns,
		id, in.Code, in.Type, in.Value, in.MaxUses, in.ExpiresAt, in.IsActive), promo)
	if err != nil {
		switch {
		case err == sql.ErrNoRows:
			return nil, database.ErrPromoIDNotFound
		case database.IsUniqueViolation(err):
			return nil, database.ErrPromoCodeExists
		case database.IsCheckViolation(err):
			return nil, database.NewValidationError("max_uses", "cannot be below the current usage count")
		}
		return nil, fmt.Errorf("update promo: %w", err)
	}

	return promo, nil
}

func DeletePromo(ctx context.Context, db database.DBTX, id uuid.UUID) error {
	result, err := db.ExecContext(ctx, `DELETE FROM promo_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrPromoIDNotFound
	}

	return nil
}

func ListPromos(ctx context.Context, db database.DBTX) ([]models.PromoCode, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+promoColumns+` FROM promo_codes ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list promos: %w", err)
	}
	defer rows.Close()

	promos := []models.PromoCode{}
	for rows.Next() {
		var promo models.PromoCode
		if err := scanPromo(rows, &promo); err != nil {
			return nil, fmt.Errorf("scan promo: %w", err)
		}
		promos = append(promos, promo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return promos, nil
}
