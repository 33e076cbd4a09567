package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, description, image_url, download_link, tutorial_video_link, activation_process,
	price_1_day, price_7_days, price_30_days, price_lifetime, currency_prices, trial_enabled, trial_plan,
	created_at, updated_at, version`

func scanProduct(row rowScanner, product *models.Product) error {
	return row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.ImageURL,
		&product.DownloadLink,
		&product.TutorialVideoLink,
		&product.ActivationProcess,
		&product.Price1Day,
		&product.Price7Days,
		&product.Price30Days,
		&product.PriceLifetime,
		&product.CurrencyPrices,
		&product.TrialEnabled,
		&product.TrialPlan,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
}

type ProductInput struct {
	Name              string
	Description       string
	ImageURL          string
	DownloadLink      string
	TutorialVideoLink string
	ActivationProcess string
	Price1Day         decimal.Decimal
	Price7Days        decimal.Decimal
	Price30Days       decimal.Decimal
	PriceLifetime     decimal.Decimal
	CurrencyPrices    models.CurrencyPrices
	TrialEnabled      bool
	TrialPlan         models.Plan
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return database.NewValidationError("name", "is required")
	}

	for field, price := range map[string]decimal.Decimal{
		"price_1_day":    in.Price1Day,
		"price_7_days":   in.Price7Days,
		"price_30_days":  in.Price30Days,
		"price_lifetime": in.PriceLifetime,
	} {
		if price.IsNegative() {
			return database.NewValidationError(field, "cannot be negative")
		}
	}

	if in.TrialPlan == "" {
		in.TrialPlan = models.PlanTrial1Day
	}
	if !in.TrialPlan.IsTrial() {
		return database.NewValidationError("trial_plan", "must be a trial plan")
	}

	normalized := models.CurrencyPrices{}
	for currency, plans := range in.CurrencyPrices {
		code := strings.ToUpper(strings.TrimSpace(currency))
		if code == "" {
			return database.NewValidationError("currency_prices", "currency code is required")
		}
		for plan, price := range plans {
			if !plan.Valid() || plan.IsTrial() {
				return database.NewValidationError("currency_prices", fmt.Sprintf("unknown plan %q", plan))
			}
			if price.IsNegative() {
				return database.NewValidationError("currency_prices", "prices cannot be negative")
			}
		}
		normalized[code] = plans
	}
	in.CurrencyPrices = normalized

	return nil
}

func CreateProduct(ctx context.Context, db database.DBTX, in ProductInput) (*models.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	product := &models.Product{}
	err := scanProduct(db.QueryRowContext(ctx,
		`INSERT INTO products (name, description, image_url, download_link, tutorial_video_link, activation_process,
		                       price_1_day, price_7_days, price_30_days, price_lifetime, currency_prices,
		                       trial_enabled, trial_plan, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW(), 1)
		 RETURNING `+productColumns,
		in.Name, in.Description, in.ImageURL, in.DownloadLink, in.TutorialVideoLink, in.ActivationProcess,
		in.Price1Day, in.Price7Days, in.Price30Days, in.PriceLifetime, in.CurrencyPrices,
		in.TrialEnabled, in.TrialPlan), product)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db database.DBTX, id uuid.UUID) (*models.Product, error) {
	product := &models.Product{}

	err := scanProduct(db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// UpdateProductOptimistic rewrites a product only if it is still at version.
func UpdateProductOptimistic(ctx context.Context, db database.DBTX, id uuid.UUID, version int, in ProductInput) (*models.Product, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	product := &models.Product{}
	err := scanProduct(db.QueryRowContext(ctx,
		`UPDATE products
		 SET name = $3, description = $4, image_url = $5, download_link = $6, tutorial_video_link = $7,
		     activation_process = $8, price_1_day = $9, price_7_days = $10, price_30_days = $11,
		     price_lifetime = $12, currency_prices = $13, trial_enabled = $14, trial_plan = $15,
		     version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2
		 RETURNING `+productColumns,
		id, version, in.Name, in.Description, in.ImageURL, in.DownloadLink, in.TutorialVideoLink,
		in.ActivationProcess, in.Price1Day, in.Price7Days, in.Price30Days, in.PriceLifetime,
		in.CurrencyPrices, in.TrialEnabled, in.TrialPlan), product)
	if err != nil {
		if err == sql.ErrNoRows {
			if _, getErr := GetProduct(ctx, db, id); getErr != nil {
				return nil, getErr
			}
			return nil, database.ErrOptimisticLockFailed
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// DeleteProduct refuses to remove a product that orders or license keys
// still reference.
func DeleteProduct(ctx context.Context, db database.DBTX, id uuid.UUID) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func ListProducts(ctx context.Context, db database.DBTX, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, pageSize), nil
}
