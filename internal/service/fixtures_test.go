package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/dbtest"
	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/notify"
	"github.com/safar/license-store/internal/pricing"
	"github.com/safar/license-store/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingSender) Send(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingSender) sentTo(to string) []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []notify.Message
	for _, m := range r.msgs {
		if m.To == to {
			out = append(out, m)
		}
	}
	return out
}

type testEnv struct {
	db   *sql.DB
	svc  *Services
	mail *recordingSender
	logs *test.Hook
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.SetupDB(t)
	logger, hook := test.NewNullLogger()
	mail := &recordingSender{}

	svc := New(Deps{
		DB:         db,
		Logger:     logger,
		Notifier:   mail,
		Rates:      pricing.DefaultRates(),
		AdminEmail: "admin@example.com",
	})

	return &testEnv{db: db, svc: svc, mail: mail, logs: hook}
}

func (e *testEnv) user(t *testing.T, balance int64) *models.User {
	t.Helper()
	ctx := context.Background()

	id := uuid.New()
	user, err := store.CreateUser(ctx, e.db, id, fmt.Sprintf("%s@example.com", id), "Buyer")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	if balance > 0 {
		if _, err := store.Credit(ctx, e.db, id, decimal.NewFromInt(balance)); err != nil {
			t.Fatalf("Credit user: %v", err)
		}
	}
	return user
}

func (e *testEnv) product(t *testing.T) *models.Product {
	t.Helper()

	product, err := store.CreateProduct(context.Background(), e.db, store.ProductInput{
		Name:          "Editor Pro",
		DownloadLink:  "https://example.com/download",
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

func (e *testEnv) keys(t *testing.T, productID uuid.UUID, plan models.Plan, n int) {
	t.Helper()

	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", productID.String()[:8], plan, i)
	}
	if _, err := e.svc.Licenses.BulkAdd(context.Background(), productID, plan, keys); err != nil {
		t.Fatalf("Add keys: %v", err)
	}
}

func (e *testEnv) assignedCount(t *testing.T, productID uuid.UUID) int {
	t.Helper()

	var n int
	err := e.db.QueryRow(
		`SELECT COUNT(*) FROM license_keys WHERE product_id = $1 AND status = 'assigned'`, productID,
	).Scan(&n)
	if err != nil {
		t.Fatalf("Count assigned keys: %v", err)
	}
	return n
}
