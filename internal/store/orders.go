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

const orderColumns = `id, order_number, user_id, product_id, plan, price, payment_method, transaction_id,
	payment_proof_url, promo_code, status, license_key_id, created_at, updated_at, version`

func scanOrder(row rowScanner, order *models.Order) error {
	return row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.ProductID,
		&order.Plan,
		&order.Price,
		&order.PaymentMethod,
		&order.TransactionID,
		&order.PaymentProofURL,
		&order.PromoCode,
		&order.Status,
		&order.LicenseKeyID,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
}

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixNano())
}

type NewOrder struct {
	UserID          uuid.UUID
	ProductID       uuid.UUID
	Plan            models.Plan
	Price           decimal.Decimal
	PaymentMethod   string
	TransactionID   string
	PaymentProofURL string
	PromoCode       string
	Status          string
	LicenseKeyID    uuid.NullUUID
}

func InsertOrder(ctx context.Context, db database.DBTX, o NewOrder) (*models.Order, error) {
	order := &models.Order{}

	err := scanOrder(db.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, user_id, product_id, plan, price, payment_method, transaction_id,
		                     payment_proof_url, promo_code, status, license_key_id, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW(), 1)
		 RETURNING `+orderColumns,
		generateOrderNumber(), o.UserID, o.ProductID, o.Plan, o.Price, o.PaymentMethod, o.TransactionID,
		o.PaymentProofURL, o.PromoCode, o.Status, o.LicenseKeyID), order)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err) && database.ConstraintName(err) == "idx_orders_one_trial":
			return nil, database.ErrTrialAlreadyClaimed
		case database.IsForeignKeyViolation(err) && database.ConstraintName(err) == "orders_user_id_fkey":
			return nil, database.ErrUserNotFound
		case database.IsForeignKeyViolation(err) && database.ConstraintName(err) == "orders_product_id_fkey":
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	return order, nil
}

func GetOrder(ctx context.Context, db database.DBTX, id uuid.UUID) (*models.Order, error) {
	order := &models.Order{}

	err := scanOrder(db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

// LockOrder row-locks an order for a status transition. A concurrent holder
// makes the caller wait and then read the committed status. ErrLockTimeout is
// returned when the session's lock_timeout expires first.
func LockOrder(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Order, error) {
	order := &models.Order{}

	err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id), order)
	if err != nil {
		if database.IsLockNotAvailable(err) {
			return nil, database.ErrLockTimeout
		}
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	return order, nil
}

// CompleteOrder moves a pending order to completed with its license key.
func CompleteOrder(ctx context.Context, db database.DBTX, id, licenseKeyID uuid.UUID) (*models.Order, error) {
	order := &models.Order{}

	err := scanOrder(db.QueryRowContext(ctx,
		`UPDATE orders
		 SET status = 'completed', license_key_id = $2, version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+orderColumns,
		id, licenseKeyID), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrInvalidTransition
		}
		return nil, fmt.Errorf("complete order: %w", err)
	}

	return order, nil
}

// RejectOrder moves a pending order to rejected. It returns
// ErrInvalidTransition when the order is not pending.
func RejectOrder(ctx context.Context, db database.DBTX, id uuid.UUID) (*models.Order, error) {
	order := &models.Order{}

	err := scanOrder(db.QueryRowContext(ctx,
		`UPDATE orders
		 SET status = 'rejected', version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+orderColumns,
		id), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrInvalidTransition
		}
		return nil, fmt.Errorf("reject order: %w", err)
	}

	return order, nil
}

func CountTrialOrders(ctx context.Context, db database.DBTX, userID, productID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders
		 WHERE user_id = $1 AND product_id = $2 AND payment_method = 'free_trial'`,
		userID, productID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count trial orders: %w", err)
	}
	return count, nil
}

// UserOwnsOrder reports whether orderID was placed by userID for productID.
func UserOwnsOrder(ctx context.Context, db database.DBTX, orderID, userID, productID uuid.UUID) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1 AND user_id = $2 AND product_id = $3)`,
		orderID, userID, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check order owner: %w", err)
	}
	return exists, nil
}

// ListOrdersCursor pages through one user's orders newest first, joined with
// the product fields and license key a buyer needs.
func ListOrdersCursor(ctx context.Context, db database.DBTX, userID uuid.UUID, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, database.NewValidationError("cursor", "is invalid")
	}

	query := `
		SELECT o.id, o.order_number, o.user_id, o.product_id, o.plan, o.price, o.payment_method, o.transaction_id,
		       o.payment_proof_url, o.promo_code, o.status, o.license_key_id, o.created_at, o.updated_at, o.version,
		       p.name, p.image_url, p.download_link, p.tutorial_video_link, p.activation_process, l.license_key
		FROM orders o
		JOIN products p ON p.id = o.product_id
		LEFT JOIN license_keys l ON l.id = o.license_key_id
		WHERE o.user_id = $1
		  AND (o.created_at, o.id) < ($2, $3)
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.OrderView{}
	for rows.Next() {
		var order models.OrderView
		err := rows.Scan(
			&order.ID,
			&order.OrderNumber,
			&order.UserID,
			&order.ProductID,
			&order.Plan,
			&order.Price,
			&order.PaymentMethod,
			&order.TransactionID,
			&order.PaymentProofURL,
			&order.PromoCode,
			&order.Status,
			&order.LicenseKeyID,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.Version,
			&order.ProductName,
			&order.ImageURL,
			&order.DownloadLink,
			&order.TutorialVideoLink,
			&order.ActivationProcess,
			&order.LicenseKey,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(Cursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListAllOrders is the admin view, optionally filtered by status.
func ListAllOrders(ctx context.Context, db database.DBTX, status string, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE $1 = '' OR status = $1`, status).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT o.id, o.order_number, o.user_id, o.product_id, o.plan, o.price, o.payment_method, o.transaction_id,
		        o.payment_proof_url, o.promo_code, o.status, o.license_key_id, o.created_at, o.updated_at, o.version,
		        u.email, u.full_name, p.name
		 FROM orders o
		 JOIN users u ON u.id = o.user_id
		 JOIN products p ON p.id = o.product_id
		 WHERE $1 = '' OR o.status = $1
		 ORDER BY o.created_at DESC, o.id DESC
		 LIMIT $2 OFFSET $3`,
		status, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	defer rows.Close()

	orders := []models.AdminOrderView{}
	for rows.Next() {
		var order models.AdminOrderView
		err := rows.Scan(
			&order.ID,
			&order.OrderNumber,
			&order.UserID,
			&order.ProductID,
			&order.Plan,
			&order.Price,
			&order.PaymentMethod,
			&order.TransactionID,
			&order.PaymentProofURL,
			&order.PromoCode,
			&order.Status,
			&order.LicenseKeyID,
			&order.CreatedAt,
			&order.UpdatedAt,
			&order.Version,
			&order.UserEmail,
			&order.UserName,
			&order.ProductName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(orders, total, page, pageSize), nil
}
