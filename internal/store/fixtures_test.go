package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/models"
	"github.com/shopspring/decimal"
)

func createTestUser(t *testing.T, db *sql.DB, balance int64) *models.User {
	t.Helper()
	ctx := context.Background()

	id := uuid.New()
	user, err := CreateUser(ctx, db, id, fmt.Sprintf("%s@example.com", id), "Test User")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	if balance > 0 {
		if _, err := Credit(ctx, db, user.ID, decimal.NewFromInt(balance)); err != nil {
			t.Fatalf("Credit user: %v", err)
		}
	}

	return user
}

func createTestProduct(t *testing.T, db *sql.DB) *models.Product {
	t.Helper()

	product, err := CreateProduct(context.Background(), db, ProductInput{
		Name:          "Test Product",
		Price1Day:     decimal.NewFromInt(2),
		Price7Days:    decimal.NewFromInt(10),
		Price30Days:   decimal.NewFromInt(25),
		PriceLifetime: decimal.NewFromInt(99),
		TrialEnabled:  true,
		TrialPlan:     models.PlanTrial1Day,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	return product
}

func addTestKeys(t *testing.T, db *sql.DB, productID uuid.UUID, plan models.Plan, n int) []string {
	t.Helper()

	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("KEY-%s-%s-%d", productID.String()[:8], plan, i)
	}

	result, err := BulkAddLicenses(context.Background(), db, productID, plan, keys)
	if err != nil {
		t.Fatalf("Add keys: %v", err)
	}
	if result.Inserted != n {
		t.Fatalf("Expected %d keys inserted, got %d", n, result.Inserted)
	}

	return keys
}
