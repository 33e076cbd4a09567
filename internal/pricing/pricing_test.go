package pricing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestResolvePriceFallsBackToBase(t *testing.T) {
	product := &models.Product{Price7Days: d("10")}

	got, err := ResolvePrice(product, models.Plan7Days, "EUR")
	if err != nil {
		t.Fatalf("ResolvePrice: %v", err)
	}
	if !got.Equal(d("10")) {
		t.Errorf("Expected base price 10, got %s", got)
	}

	product.CurrencyPrices = models.CurrencyPrices{"EUR": {models.Plan7Days: d("9")}}
	got, err = ResolvePrice(product, models.Plan7Days, "eur")
	if err != nil {
		t.Fatalf("ResolvePrice: %v", err)
	}
	if !got.Equal(d("9")) {
		t.Errorf("Expected EUR override 9, got %s", got)
	}
}

func TestResolvePriceIgnoresZeroOverride(t *testing.T) {
	product := &models.Product{
		Price30Days:    d("25"),
		CurrencyPrices: models.CurrencyPrices{"GBP": {models.Plan30Days: decimal.Zero}},
	}

	got, err := ResolvePrice(product, models.Plan30Days, "GBP")
	if err != nil {
		t.Fatalf("ResolvePrice: %v", err)
	}
	if !got.Equal(d("25")) {
		t.Errorf("Zero override must fall back to base, got %s", got)
	}
}

func TestResolvePricePlans(t *testing.T) {
	product := &models.Product{PriceLifetime: d("99")}

	if got, _ := ResolvePrice(product, models.PlanTrial2Days, "USD"); !got.IsZero() {
		t.Errorf("Trial plans are free, got %s", got)
	}
	if _, err := ResolvePrice(product, models.Plan("weekly"), "USD"); !errors.Is(err, database.ErrInvalidPlan) {
		t.Errorf("Expected ErrInvalidPlan, got %v", err)
	}
}

func TestApplyPromo(t *testing.T) {
	tests := []struct {
		name         string
		price        string
		promoType    string
		value        string
		wantDiscount string
		wantFinal    string
	}{
		{"percent", "10", models.PromoTypePercent, "15", "1.5", "8.5"},
		{"percent rounds to cents", "9.99", models.PromoTypePercent, "33", "3.3", "6.69"},
		{"fixed", "10", models.PromoTypeFixed, "4", "4", "6"},
		{"fixed clamps to price", "3", models.PromoTypeFixed, "5", "3", "0"},
		{"full percent", "25", models.PromoTypePercent, "100", "25", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyPromo(d(tt.price), &models.PromoCode{Code: "X", Type: tt.promoType, Value: d(tt.value)})
			if !got.DiscountAmount.Equal(d(tt.wantDiscount)) {
				t.Errorf("Discount = %s, want %s", got.DiscountAmount, tt.wantDiscount)
			}
			if !got.FinalPrice.Equal(d(tt.wantFinal)) {
				t.Errorf("Final = %s, want %s", got.FinalPrice, tt.wantFinal)
			}
		})
	}
}

func TestRatesToUSD(t *testing.T) {
	rates := DefaultRates()

	tests := []struct {
		amount, currency, want string
	}{
		{"100", "USD", "100"},
		{"835", "INR", "10"},
		{"79", "gbp", "100"},
		{"50", "XYZ", "50"},
		{"1000", "PKR", "3.6"},
	}

	for _, tt := range tests {
		if got := rates.ToUSD(d(tt.amount), tt.currency); !got.Equal(d(tt.want)) {
			t.Errorf("ToUSD(%s %s) = %s, want %s", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestLoadRatesOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	content := "rates:\n  inr: 80\n  EUR: 0.92\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Write rates file: %v", err)
	}

	rates, err := LoadRates(path)
	if err != nil {
		t.Fatalf("LoadRates: %v", err)
	}

	if !rates.Rate("INR").Equal(d("80")) {
		t.Errorf("Expected INR override 80, got %s", rates.Rate("INR"))
	}
	if !rates.Rate("EUR").Equal(d("0.92")) {
		t.Errorf("Expected EUR 0.92, got %s", rates.Rate("EUR"))
	}
	if !rates.Rate("GBP").Equal(d("0.79")) {
		t.Errorf("Defaults should survive, got GBP %s", rates.Rate("GBP"))
	}
}

func TestLoadRatesRejectsNonPositive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	if err := os.WriteFile(path, []byte("rates:\n  INR: 0\n"), 0o600); err != nil {
		t.Fatalf("Write rates file: %v", err)
	}

	if _, err := LoadRates(path); err == nil {
		t.Error("Expected error for zero rate")
	}
	if rates, err := LoadRates(""); err != nil || len(rates) != len(DefaultRates()) {
		t.Errorf("Empty path should return defaults, got %v %v", rates, err)
	}
}
