package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/shopspring/decimal"
)

const topUpColumns = `id, user_id, amount, currency, payment_method, transaction_id, proof_url, status, created_at, processed_at`

func scanTopUp(row rowScanner, req *models.TopUpRequest) error {
	return row.Scan(
		&req.ID,
		&req.UserID,
		&req.Amount,
		&req.Currency,
		&req.PaymentMethod,
		&req.TransactionID,
		&req.ProofURL,
		&req.Status,
		&req.CreatedAt,
		&req.ProcessedAt,
	)
}

type NewTopUp struct {
	UserID        uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	TransactionID string
	ProofURL      string
}

func CreateTopUp(ctx context.Context, db database.DBTX, in NewTopUp) (*models.TopUpRequest, error) {
	req := &models.TopUpRequest{}

	err := scanTopUp(db.QueryRowContext(ctx,
		`INSERT INTO topup_requests (user_id, amount, currency, payment_method, transaction_id, proof_url, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		 RETURNING `+topUpColumns,
		in.UserID, in.Amount, in.Currency, in.PaymentMethod, in.TransactionID, in.ProofURL), req)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("create top-up request: %w", err)
	}

	return req, nil
}

func GetTopUp(ctx context.Context, db database.DBTX, id uuid.UUID) (*models.TopUpRequest, error) {
	req := &models.TopUpRequest{}

	err := scanTopUp(db.QueryRowContext(ctx,
		`SELECT `+topUpColumns+` FROM topup_requests WHERE id = $1`, id), req)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrTopUpNotFound
		}
		return nil, fmt.Errorf("get top-up request: %w", err)
	}

	return req, nil
}

// ProcessTopUp moves a pending request to status. Only the caller that wins
// this update may apply the ledger effect, so a request is credited at most
// once.
func ProcessTopUp(ctx context.Context, db database.DBTX, id uuid.UUID, status string) (*models.TopUpRequest, error) {
	if status != models.RequestStatusApproved && status != models.RequestStatusRejected {
		return nil, database.NewValidationError("status", "must be approved or rejected")
	}

	req := &models.TopUpRequest{}
	err := scanTopUp(db.QueryRowContext(ctx,
		`UPDATE topup_requests
		 SET status = $2, processed_at = NOW()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+topUpColumns,
		id, status), req)
	if err != nil {
		if err == sql.ErrNoRows {
			if _, getErr := GetTopUp(ctx, db, id); getErr != nil {
				return nil, getErr
			}
			return nil, database.ErrRequestAlreadyProcessed
		}
		return nil, fmt.Errorf("process top-up request: %w", err)
	}

	return req, nil
}

func ListTopUpsByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.TopUpRequest, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+topUpColumns+`
		 FROM topup_requests
		 WHERE user_id = $1
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list top-up requests: %w", err)
	}
	defer rows.Close()

	requests := []models.TopUpRequest{}
	for rows.Next() {
		var req models.TopUpRequest
		if err := scanTopUp(rows, &req); err != nil {
			return nil, fmt.Errorf("scan top-up request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return requests, nil
}

func ListAllTopUps(ctx context.Context, db database.DBTX, status string, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM topup_requests WHERE $1 = '' OR status = $1`, status).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count top-up requests: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT t.id, t.user_id, t.amount, t.currency, t.payment_method, t.transaction_id, t.proof_url,
		        t.status, t.created_at, t.processed_at, u.full_name, u.email
		 FROM topup_requests t
		 JOIN users u ON u.id = t.user_id
		 WHERE $1 = '' OR t.status = $1
		 ORDER BY t.created_at DESC, t.id DESC
		 LIMIT $2 OFFSET $3`,
		status, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list all top-up requests: %w", err)
	}
	defer rows.Close()

	requests := []models.TopUpView{}
	for rows.Next() {
		var req models.TopUpView
		err := rows.Scan(
			&req.ID,
			&req.UserID,
			&req.Amount,
			&req.Currency,
			&req.PaymentMethod,
			&req.TransactionID,
			&req.ProofURL,
			&req.Status,
			&req.CreatedAt,
			&req.ProcessedAt,
			&req.UserName,
			&req.UserEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("scan top-up request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(requests, total, page, pageSize), nil
}
