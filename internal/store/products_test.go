package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/dbtest"
	"github.com/safar/license-store/internal/models"
	"github.com/shopspring/decimal"
)

func TestProductCurrencyPricesRoundTrip(t *testing.T) {
	db := dbtest.SetupDB(t)
	ctx := context.Background()

	created, err := CreateProduct(ctx, db, ProductInput{
		Name:       "Editor Pro",
		Price7Days: decimal.NewFromInt(10),
		CurrencyPrices: models.CurrencyPrices{
			"eur": {models.Plan7Days: decimal.NewFromInt(9)},
		},
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	product, err := GetProduct(ctx, db, created.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if got := product.CurrencyPrices["EUR"][models.Plan7Days]; !got.Equal(decimal.NewFromInt(9)) {
		t.Errorf("Expected EUR override 9, got %s", got)
	}
	if product.TrialPlan != models.PlanTrial1Day {
		t.Errorf("Expected default trial plan, got %s", product.TrialPlan)
	}
}

func TestUpdateProductOptimistic(t *testing.T) {
	db := dbtest.SetupDB(t)
	ctx := context.Background()

	product := createTestProduct(t, db)

	in := ProductInput{Name: "Renamed", Price7Days: decimal.NewFromInt(12)}
	updated, err := UpdateProductOptimistic(ctx, db, product.ID, product.Version, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Version != product.Version+1 || updated.Name != "Renamed" {
		t.Errorf("Unexpected update result: %+v", updated)
	}

	if _, err := UpdateProductOptimistic(ctx, db, product.ID, product.Version, in); !errors.Is(err, database.ErrOptimisticLockFailed) {
		t.Errorf("Stale version should fail, got %v", err)
	}
	if _, err := UpdateProductOptimistic(ctx, db, uuid.New(), 1, in); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}

	bad := ProductInput{Name: "x", TrialPlan: models.Plan7Days}
	var verr *database.ValidationError
	if _, err := UpdateProductOptimistic(ctx, db, product.ID, updated.Version, bad); !errors.As(err, &verr) {
		t.Errorf("A paid plan is not a valid trial plan, got %v", err)
	}
}

func TestDeleteProductInUse(t *testing.T) {
	db := dbtest.SetupDB(t)
	ctx := context.Background()

	product := createTestProduct(t, db)
	addTestKeys(t, db, product.ID, models.Plan1Day, 1)

	if err := DeleteProduct(ctx, db, product.ID); !errors.Is(err, database.ErrProductInUse) {
		t.Errorf("Expected ErrProductInUse, got %v", err)
	}

	if _, err := DeleteUnusedLicenses(ctx, db, &product.ID); err != nil {
		t.Fatalf("Delete keys: %v", err)
	}
	if err := DeleteProduct(ctx, db, product.ID); err != nil {
		t.Errorf("Delete product: %v", err)
	}
	if err := DeleteProduct(ctx, db, product.ID); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}
