package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/shopspring/decimal"
)

// Debit subtracts amount from the user's balance only if the balance covers
// it, and returns the new balance.
func Debit(ctx context.Context, db database.DBTX, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, database.ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := db.QueryRowContext(ctx,
		`UPDATE users
		 SET balance = balance - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND balance >= $1
		 RETURNING balance`,
		amount, userID).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			if err := ensureUserExists(ctx, db, userID); err != nil {
				return decimal.Zero, err
			}
			return decimal.Zero, database.ErrInsufficientBalance
		}
		return decimal.Zero, fmt.Errorf("debit balance: %w", err)
	}

	return balance, nil
}

func Credit(ctx context.Context, db database.DBTX, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, database.ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := db.QueryRowContext(ctx,
		`UPDATE users
		 SET balance = balance + $1,
		     updated_at = NOW()
		 WHERE id = $2
		 RETURNING balance`,
		amount, userID).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, database.ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("credit balance: %w", err)
	}

	return balance, nil
}

func GetBalance(ctx context.Context, db database.DBTX, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := db.QueryRowContext(ctx,
		`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, database.ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

func ensureUserExists(ctx context.Context, db database.DBTX, userID uuid.UUID) error {
	var exists bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)",
		userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check user exists: %w", err)
	}
	if !exists {
		return database.ErrUserNotFound
	}
	return nil
}
