package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
)

const licenseColumns = `id, product_id, plan, license_key, status, assigned_to, assigned_at, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLicense(row rowScanner, license *models.LicenseKey) error {
	return row.Scan(
		&license.ID,
		&license.ProductID,
		&license.Plan,
		&license.Key,
		&license.Status,
		&license.AssignedTo,
		&license.AssignedAt,
		&license.CreatedAt,
	)
}

// ClaimLicense assigns the oldest unused key for (productID, plan) to userID in
// a single statement. Concurrent callers skip rows another transaction holds,
// so two claims never return the same key.
func ClaimLicense(ctx context.Context, db database.DBTX, productID uuid.UUID, plan models.Plan, userID uuid.UUID) (*models.LicenseKey, error) {
	license := &models.LicenseKey{}

	query := `
		UPDATE license_keys
		SET status = 'assigned', assigned_to = $3, assigned_at = NOW()
		WHERE id = (
			SELECT id FROM license_keys
			WHERE product_id = $1 AND plan = $2 AND status = 'unused'
			ORDER BY created_at, id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		AND status = 'unused'
		RETURNING ` + licenseColumns

	err := scanLicense(db.QueryRowContext(ctx, query, productID, plan, userID), license)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &database.OutOfStockError{Plan: string(plan)}
		}
		return nil, fmt.Errorf("claim license: %w", err)
	}

	return license, nil
}

func GetLicense(ctx context.Context, db database.DBTX, id uuid.UUID) (*models.LicenseKey, error) {
	license := &models.LicenseKey{}

	err := scanLicense(db.QueryRowContext(ctx,
		`SELECT `+licenseColumns+` FROM license_keys WHERE id = $1`, id), license)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrLicenseNotFound
		}
		return nil, fmt.Errorf("get license: %w", err)
	}

	return license, nil
}

type BulkAddResult struct {
	Inserted   int      `json:"inserted"`
	Duplicates []string `json:"duplicates"`
}

// BulkAddLicenses inserts keys for (productID, plan) in one statement. Keys
// already in the pool, or repeated within the batch, are skipped and reported
// in Duplicates; blank entries are ignored.
func BulkAddLicenses(ctx context.Context, db database.DBTX, productID uuid.UUID, plan models.Plan, keys []string) (*BulkAddResult, error) {
	if !plan.Valid() {
		return nil, database.ErrInvalidPlan
	}

	result := &BulkAddResult{Duplicates: []string{}}
	seen := make(map[string]bool, len(keys))
	unique := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if seen[key] {
			result.Duplicates = append(result.Duplicates, key)
			continue
		}
		seen[key] = true
		unique = append(unique, key)
	}

	if len(unique) == 0 {
		return nil, database.NewValidationError("keys", "at least one license key is required")
	}

	rows, err := db.QueryContext(ctx,
		`INSERT INTO license_keys (product_id, plan, license_key)
		 SELECT $1::uuid, $2::text, k FROM unnest($3::text[]) AS k
		 ON CONFLICT (license_key) DO NOTHING
		 RETURNING license_key`,
		productID, plan, pq.Array(unique))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("bulk add licenses: %w", err)
	}
	defer rows.Close()

	inserted := make(map[string]bool, len(unique))
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan inserted key: %w", err)
		}
		inserted[key] = true
	}

	if err := rows.Err(); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("rows error: %w", err)
	}

	result.Inserted = len(inserted)
	for _, key := range unique {
		if !inserted[key] {
			result.Duplicates = append(result.Duplicates, key)
		}
	}

	return result, nil
}

// DeleteUnusedLicenses removes unused keys, optionally only for one product,
// and returns how many were removed. Assigned keys are never touched.
func DeleteUnusedLicenses(ctx context.Context, db database.DBTX, productID *uuid.UUID) (int64, error) {
	var (
		result sql.Result
		err    error
	)
	if productID != nil {
		result, err = db.ExecContext(ctx,
			`DELETE FROM license_keys WHERE status = 'unused' AND product_id = $1`, *productID)
	} else {
		result, err = db.ExecContext(ctx, `DELETE FROM license_keys WHERE status = 'unused'`)
	}
	if err != nil {
		return 0, fmt.Errorf("delete unused licenses: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func DeleteLicense(ctx context.Context, db database.DBTX, id uuid.UUID) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM license_keys WHERE id = $1 AND status = 'unused'`, id)
	if err != nil {
		return fmt.Errorf("delete license: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM license_keys WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check license exists: %w", err)
		}
		if exists {
			return database.ErrLicenseAssigned
		}
		return database.ErrLicenseNotFound
	}

	return nil
}

type LicenseFilter struct {
	ProductID *uuid.UUID
	Plan      models.Plan
	Status    string
}

func (f LicenseFilter) where() (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if f.ProductID != nil {
		args = append(args, *f.ProductID)
		clauses = append(clauses, fmt.Sprintf("l.product_id = $%d", len(args)))
	}
	if f.Plan != "" {
		args = append(args, f.Plan)
		clauses = append(clauses, fmt.Sprintf("l.plan = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, fmt.Sprintf("l.status = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func ListLicenses(ctx context.Context, db database.DBTX, filter LicenseFilter, page, pageSize int) (*OffsetPage, error) {
	where, args := filter.where()

	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM license_keys l `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count licenses: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT l.id, l.product_id, l.plan, l.license_key, l.status, l.assigned_to, l.assigned_at, l.created_at,
		       p.name, COALESCE(u.email, '')
		FROM license_keys l
		JOIN products p ON p.id = l.product_id
		LEFT JOIN users u ON u.id = l.assigned_to
		%s
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)

	rows, err := db.QueryContext(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	defer rows.Close()

	licenses := []models.LicenseView{}
	for rows.Next() {
		var l models.LicenseView
		err := rows.Scan(
			&l.ID,
			&l.ProductID,
			&l.Plan,
			&l.Key,
			&l.Status,
			&l.AssignedTo,
			&l.AssignedAt,
			&l.CreatedAt,
			&l.ProductName,
			&l.AssigneeEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan license: %w", err)
		}
		licenses = append(licenses, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(licenses, total, page, pageSize), nil
}

// CountUnusedByPlan reports the remaining stock of a product per plan.
func CountUnusedByPlan(ctx context.Context, db database.DBTX, productID uuid.UUID) (map[models.Plan]int, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT plan, COUNT(*) FROM license_keys
		 WHERE product_id = $1 AND status = 'unused'
		 GROUP BY plan`, productID)
	if err != nil {
		return nil, fmt.Errorf("count unused licenses: %w", err)
	}
	defer rows.Close()

	stock := make(map[models.Plan]int)
	for rows.Next() {
		var (
			plan  models.Plan
			count int
		)
		if err := rows.Scan(&plan, &count); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		stock[plan] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return stock, nil
}
