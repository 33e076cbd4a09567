package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
)

const resetColumns = `id, user_id, product_id, order_id, username, password, status, admin_response, created_at, updated_at`

func scanReset(row rowScanner, req *models.CredentialRequest) error {
	return row.Scan(
		&req.ID,
		&req.UserID,
		&req.ProductID,
		&req.OrderID,
		&req.Username,
		&req.Password,
		&req.Status,
		&req.AdminResponse,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
}

type NewCredentialRequest struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	OrderID   uuid.UUID
	Username  string
	Password  string
}

func CreateCredentialRequest(ctx context.Context, db database.DBTX, in NewCredentialRequest) (*models.CredentialRequest, error) {
	req := &models.CredentialRequest{}

	err := scanReset(db.QueryRowContext(ctx,
		`INSERT INTO credential_requests (user_id, product_id, order_id, username, password, status)
		 VALUES ($1, $2, $3, $4, $5, 'pending')
		 RETURNING `+resetColumns,
		in.UserID, in.ProductID, in.OrderID, in.Username, in.Password), req)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("create credential request: %w", err)
	}

	return req, nil
}

// ResolveCredentialRequest records the admin decision and note. The returned
// email is the requester's address for the follow-up notification.
func ResolveCredentialRequest(ctx context.Context, db database.DBTX, id uuid.UUID, status, adminResponse string) (*models.CredentialRequest, string, error) {
	if status != models.RequestStatusApproved && status != models.RequestStatusRejected {
		return nil, "", database.NewValidationError("status", "must be approved or rejected")
	}

	req := &models.CredentialRequest{}
	var email string
	err := db.QueryRowContext(ctx,
		`WITH updated AS (
			UPDATE credential_requests
			SET status = $2, admin_response = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING `+resetColumns+`
		 )
		 SELECT updated.*, u.email
		 FROM updated
		 JOIN users u ON u.id = updated.user_id`,
		id, status, adminResponse).Scan(
		&req.ID,
		&req.UserID,
		&req.ProductID,
		&req.OrderID,
		&req.Username,
		&req.Password,
		&req.Status,
		&req.AdminResponse,
		&req.CreatedAt,
		&req.UpdatedAt,
		&email,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", database.ErrResetNotFound
		}
		return nil, "", fmt.Errorf("resolve credential request: %w", err)
	}

	return req, email, nil
}

func ListCredentialRequestsByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.CredentialRequestView, error) {
	return listCredentialRequests(ctx, db, `WHERE r.user_id = $1`, userID)
}

func ListAllCredentialRequests(ctx context.Context, db database.DBTX) ([]models.CredentialRequestView, error) {
	return listCredentialRequests(ctx, db, ``)
}

func listCredentialRequests(ctx context.Context, db database.DBTX, where string, args ...interface{}) ([]models.CredentialRequestView, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.product_id, r.order_id, r.username, r.password, r.status, r.admin_response,
		        r.created_at, r.updated_at, u.email, u.full_name, p.name
		 FROM credential_requests r
		 JOIN users u ON u.id = r.user_id
		 JOIN products p ON p.id = r.product_id
		 `+where+`
		 ORDER BY r.created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list credential requests: %w", err)
	}
	defer rows.Close()

	requests := []models.CredentialRequestView{}
	for rows.Next() {
		var req models.CredentialRequestView
		err := rows.Scan(
			&req.ID,
			&req.UserID,
			&req.ProductID,
			&req.OrderID,
			&req.Username,
			&req.Password,
			&req.Status,
			&req.AdminResponse,
			&req.CreatedAt,
			&req.UpdatedAt,
			&req.UserEmail,
			&req.UserName,
			&req.ProductName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan credential request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return requests, nil
}
