package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/dbtest"
	"github.com/safar/license-store/internal/models"
	"github.com/shopspring/decimal"
)

func TestOrderTransitions(t *testing.T) {
	db := dbtest.SetupDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, 0)
	product := createTestProduct(t, db)
	addTestKeys(t, db, product.ID, models.Plan7Days, 1)

	order, err := InsertOrder(ctx, db, NewOrder{
		UserID:        user.ID,
		ProductID:     product.ID,
		Plan:          models.Plan7Days,
		Price:         decimal.NewFromInt(10),
		PaymentMethod: models.PaymentMethodManual,
		TransactionID: "TX-1",
		Status:        models.OrderStatusPending,
	})
	if err != nil {
		t.Fatalf("Insert order: %v", err)
	}
	if order.LicenseKeyID.Valid {
		t.Error("Pending order should not carry a key")
	}

	license, err := ClaimLicense(ctx, db, product.ID, models.Plan7Days, user.ID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}

	completed, err := CompleteOrder(ctx, db, order.ID, license.ID)
	if err != nil {
		t.Fatalf("Complete order: %v", err)
	}
	if completed.Status != models.OrderStatusCompleted || completed.LicenseKeyID.UUID != license.ID {
		t.Errorf("Unexpected completed order: %+v", completed)
	}
	if completed.Version != order.Version+1 {
		t.Errorf("Expected version bump, got %d", completed.Version)
	}

	if _, err := CompleteOrder(ctx, db, order.ID, license.ID); !errors.Is(err, database.ErrInvalidTransition) {
		t.Errorf("Second completion should be refused, got %v", err)
	}
	if _, err := RejectOrder(ctx, db, order.ID); !errors.Is(err, database.ErrInvalidTransition) {
		t.Errorf("Rejecting a completed order should be refused, got %v", err)
	}
}

func TestCompletedOrderRequiresKey(t *testing.T) {
	db := dbtest.SetupDB(t)

	user := createTestUser(t, db, 0)
	product := createTestProduct(t, db)

	_, err := InsertOrder(context.Background(), db, NewOrder{
		UserID:        user.ID,
		ProductID:     product.ID,
		Plan:          models.Plan1Day,
		Price:         decimal.NewFromInt(2),
		PaymentMethod: models.PaymentMethodWallet,
		Status:        models.OrderStatusCompleted,
	})
	if err == nil {
		t.Fatal("A completed order without a license key must be rejected by the schema")
	}
}

func TestSecondTrialOrderViolatesIndex(t *testing.T) {
	db := dbtest.SetupDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, 0)
	product := createTestProduct(t, db)
	addTestKeys(t, db, product.ID, models.PlanTrial1Day, 2)

	for i := 0; i < 2; i++ {
		license, err := ClaimLicense(ctx, db, product.ID, models.PlanTrial1Day, user.ID)
		if err != nil {
			t.Fatalf("Claim: %v", err)
		}

		_, err = InsertOrder(ctx, db, NewOrder{
			UserID:        user.ID,
			ProductID:     product.ID,
			Plan:          models.PlanTrial1Day,
			Price:         decimal.Zero,
			PaymentMethod: models.PaymentMethodFreeTrial,
			Status:        models.OrderStatusCompleted,
			LicenseKeyID:  uuid.NullUUID{UUID: license.ID, Valid: true},
		})
		if i == 0 && err != nil {
			t.Fatalf("First trial: %v", err)
		}
		if i == 1 && !errors.Is(err, database.ErrTrialAlreadyClaimed) {
			t.Errorf("Expected ErrTrialAlreadyClaimed, got %v", err)
		}
	}

	count, err := CountTrialOrders(ctx, db, user.ID, product.ID)
	if err != nil {
		t.Fatalf("Count trials: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 trial order, got %d", count)
	}
}

func TestListOrdersCursor(t *testing.T) {
	db := dbtest.SetupDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, 0)
	other := createTestUser(t, db, 0)
	product := createTestProduct(t, db)

	for i := 0; i < 5; i++ {
		_, err := InsertOrder(ctx, db, NewOrder{
			UserID:        user.ID,
			ProductID:     product.ID,
			Plan:          models.Plan1Day,
			Price:         decimal.NewFromInt(2),
			PaymentMethod: models.PaymentMethodManual,
			Status:        models.OrderStatusPending,
		})
		if err != nil {
			t.Fatalf("Insert order: %v", err)
		}
	}
	if _, err := InsertOrder(ctx, db, NewOrder{
		UserID:        other.ID,
		ProductID:     product.ID,
		Plan:          models.Plan1Day,
		Price:         decimal.NewFromInt(2),
		PaymentMethod: models.PaymentMethodManual,
		Status:        models.OrderStatusPending,
	}); err != nil {
		t.Fatalf("Insert order: %v", err)
	}

	seen := map[uuid.UUID]bool{}
	cursor := ""
	for pages := 0; pages < 5; pages++ {
		page, err := ListOrdersCursor(ctx, db, user.ID, cursor, 2)
		if err != nil {
			t.Fatalf("List orders: %v", err)
		}
		for _, o := range page.Items.([]models.OrderView) {
			if o.UserID != user.ID {
				t.Errorf("Order %s belongs to another user", o.ID)
			}
			if o.ProductName != product.Name {
				t.Errorf("Expected product name joined, got %q", o.ProductName)
			}
			seen[o.ID] = true
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	if len(seen) != 5 {
		t.Errorf("Expected 5 distinct orders across pages, got %d", len(seen))
	}

	all, err := ListAllOrders(ctx, db, models.OrderStatusPending, 1, 10)
	if err != nil {
		t.Fatalf("List all orders: %v", err)
	}
	if all.Total != 6 {
		t.Errorf("Expected 6 pending orders, got %d", all.Total)
	}
}

func TestLockOrderWaitsForHolder(t *testing.T) {
	db := dbtest.SetupDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, 0)
	product := createTestProduct(t, db)
	order, err := InsertOrder(ctx, db, NewOrder{
		UserID:        user.ID,
		ProductID:     product.ID,
		Plan:          models.Plan1Day,
		Price:         decimal.NewFromInt(2),
		PaymentMethod: models.PaymentMethodManual,
		Status:        models.OrderStatusPending,
	})
	if err != nil {
		t.Fatalf("Insert order: %v", err)
	}

	holder, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer holder.Rollback()

	if _, err := LockOrder(ctx, holder, order.ID); err != nil {
		t.Fatalf("First lock: %v", err)
	}
	if _, err := RejectOrder(ctx, holder, order.ID); err != nil {
		t.Fatalf("Reject under lock: %v", err)
	}

	type result struct {
		order *models.Order
		err   error
	}
	done := make(chan result, 1)
	go func() {
		contender, err := db.BeginTx(ctx, nil)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer contender.Rollback()
		locked, err := LockOrder(ctx, contender, order.ID)
		done <- result{order: locked, err: err}
	}()

	select {
	case r := <-done:
		t.Fatalf("Contender returned before holder committed: %+v", r)
	case <-time.After(200 * time.Millisecond):
	}

	if err := holder.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("Contender lock: %v", r.err)
		}
		if r.order.Status != models.OrderStatusRejected {
			t.Errorf("Expected contender to see rejected, got %s", r.order.Status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Contender never acquired the lock")
	}
}

func TestLockOrderTimeout(t *testing.T) {
	db := dbtest.SetupDB(t)
	ctx := context.Background()

	user := createTestUser(t, db, 0)
	product := createTestProduct(t, db)
	order, err := InsertOrder(ctx, db, NewOrder{
		UserID:        user.ID,
		ProductID:     product.ID,
		Plan:          models.Plan1Day,
		Price:         decimal.NewFromInt(2),
		PaymentMethod: models.PaymentMethodManual,
		Status:        models.OrderStatusPending,
	})
	if err != nil {
		t.Fatalf("Insert order: %v", err)
	}

	holder, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer holder.Rollback()
	if _, err := LockOrder(ctx, holder, order.ID); err != nil {
		t.Fatalf("First lock: %v", err)
	}

	contender, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer contender.Rollback()
	if _, err := contender.ExecContext(ctx, "SET LOCAL lock_timeout = '100ms'"); err != nil {
		t.Fatalf("Set lock_timeout: %v", err)
	}

	if _, err := LockOrder(ctx, contender, order.ID); !errors.Is(err, database.ErrLockTimeout) {
		t.Errorf("Expected ErrLockTimeout, got %v", err)
	}
}

func TestListOrdersCursorRejectsMalformedCursor(t *testing.T) {
	// decoding happens before any query, so no database is needed
	_, err := ListOrdersCursor(context.Background(), nil, uuid.New(), "!!!not-a-cursor", 10)

	var verr *database.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if verr.Field != "cursor" {
		t.Errorf("Expected field cursor, got %q", verr.Field)
	}
}
