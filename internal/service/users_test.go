package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/auth"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/store"
	"github.com/shopspring/decimal"
)

func TestSyncCreatesUserOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id := &auth.Identity{UserID: uuid.New(), Email: "new@example.com", Name: "New"}

	first, err := env.svc.Users.Sync(ctx, id)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if first.Role != models.RoleUser || !first.Balance.IsZero() {
		t.Errorf("Unexpected new user: %+v", first)
	}

	id.Name = "Renamed"
	second, err := env.svc.Users.Sync(ctx, id)
	if err != nil {
		t.Fatalf("Second sync: %v", err)
	}
	if second.FullName != "New" {
		t.Errorf("Sync must not overwrite an existing profile, got %q", second.FullName)
	}
}

func TestUpdateProfileValidatesCurrency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.user(t, 0)

	updated, err := env.svc.Users.UpdateProfile(ctx, user.ID, " Jo ", "gbp")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.FullName != "Jo" || updated.Currency != "GBP" {
		t.Errorf("Unexpected profile: %+v", updated)
	}

	for _, bad := range []string{"", "US", "EURO", "U$D"} {
		var verr *database.ValidationError
		if _, err := env.svc.Users.UpdateProfile(ctx, user.ID, "Jo", bad); !errors.As(err, &verr) {
			t.Errorf("Currency %q should be rejected, got %v", bad, err)
		}
	}
}

func TestProductDetailIncludesStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	product := env.product(t)
	env.keys(t, product.ID, models.Plan7Days, 3)
	env.keys(t, product.ID, models.PlanLifetime, 1)

	detail, err := env.svc.Products.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Stock[models.Plan7Days] != 3 || detail.Stock[models.PlanLifetime] != 1 {
		t.Errorf("Unexpected stock: %v", detail.Stock)
	}

	image := &File{Name: "logo.png", Content: strings.NewReader("png")}
	if _, err := env.svc.Products.Create(ctx, store.ProductInput{Name: "No uploader", Price1Day: decimal.NewFromInt(1)}, image); err != nil {
		t.Errorf("Create without an uploader should ignore the image, got %v", err)
	}
}

func TestQuoteAppliesOverrideAndPromo(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	product, err := env.svc.Products.Create(ctx, store.ProductInput{
		Name:       "Regional",
		Price7Days: decimal.NewFromInt(10),
		CurrencyPrices: models.CurrencyPrices{
			"INR": {models.Plan7Days: decimal.NewFromInt(8)},
		},
	}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.svc.Promos.Create(ctx, store.PromoInput{
		Code: "TWO", Type: models.PromoTypeFixed, Value: decimal.NewFromInt(2), IsActive: true,
	}); err != nil {
		t.Fatalf("Create promo: %v", err)
	}

	quote, err := env.svc.Pricing.Quote(ctx, product.ID, models.Plan7Days, "inr", "TWO")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !quote.BasePrice.Equal(decimal.NewFromInt(8)) || !quote.FinalPrice.Equal(decimal.NewFromInt(6)) {
		t.Errorf("Unexpected quote: base %s final %s", quote.BasePrice, quote.FinalPrice)
	}

	promo, err := store.GetPromoByCode(ctx, env.db, "TWO")
	if err != nil || promo.UsesCount != 0 {
		t.Errorf("Quoting must not consume uses, got %+v %v", promo, err)
	}

	if _, err := env.svc.Promos.Validate(ctx, "NOPE", decimal.NewFromInt(10)); !errors.Is(err, database.ErrPromoNotFound) {
		t.Errorf("Expected ErrPromoNotFound, got %v", err)
	}
}
