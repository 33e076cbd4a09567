package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
)

const userColumns = `id, email, full_name, role, currency, balance, created_at, updated_at`

func scanUser(row rowScanner, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.Role,
		&user.Currency,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

// CreateUser inserts a user keyed by the identity provider's subject. An
// existing row with the same id is left as it is and returned.
func CreateUser(ctx context.Context, db database.DBTX, id uuid.UUID, email, fullName string) (*models.User, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, email, full_name, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 ON CONFLICT (id) DO NOTHING`,
		id, email, fullName)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.NewValidationError("email", "already registered to another account")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return GetUser(ctx, db, id)
}

func GetUser(ctx context.Context, db database.DBTX, id uuid.UUID) (*models.User, error) {
	user := &models.User{}

	err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id), user)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

func UpdateUserProfile(ctx context.Context, db database.DBTX, id uuid.UUID, fullName, currency string) (*models.User, error) {
	user := &models.User{}

	err := scanUser(db.QueryRowContext(ctx,
		`UPDATE users
		 SET full_name = $2, currency = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, fullName, currency), user)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

func SetUserRole(ctx context.Context, db database.DBTX, id uuid.UUID, role string) error {
	if role != models.RoleUser && role != models.RoleAdmin {
		return database.NewValidationError("role", "must be user or admin")
	}

	result, err := db.ExecContext(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrUserNotFound
	}

	return nil
}

func ListUsers(ctx context.Context, db database.DBTX, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(users, total, page, pageSize), nil
}
