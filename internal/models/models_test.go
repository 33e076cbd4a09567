package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPlanClassification(t *testing.T) {
	tests := []struct {
		plan  Plan
		valid bool
		trial bool
	}{
		{Plan1Day, true, false},
		{PlanLifetime, true, false},
		{PlanTrial2Days, true, true},
		{Plan("weekly"), false, false},
		{Plan(""), false, false},
	}

	for _, tt := range tests {
		if got := tt.plan.Valid(); got != tt.valid {
			t.Errorf("%q.Valid() = %v, want %v", tt.plan, got, tt.valid)
		}
		if got := tt.plan.IsTrial(); got != tt.trial {
			t.Errorf("%q.IsTrial() = %v, want %v", tt.plan, got, tt.trial)
		}
	}
}

func TestBasePrice(t *testing.T) {
	p := &Product{Price7Days: decimal.NewFromInt(10), PriceLifetime: decimal.NewFromInt(99)}

	if price, ok := p.BasePrice(Plan7Days); !ok || !price.Equal(decimal.NewFromInt(10)) {
		t.Errorf("7_days = %s %v", price, ok)
	}
	if price, ok := p.BasePrice(PlanTrial1Day); !ok || !price.IsZero() {
		t.Errorf("Trial plans should be free, got %s %v", price, ok)
	}
	if _, ok := p.BasePrice(Plan("weekly")); ok {
		t.Error("Unknown plan should not have a price")
	}
}

func TestCurrencyPricesScanValue(t *testing.T) {
	in := CurrencyPrices{"EUR": {Plan7Days: decimal.RequireFromString("9.50")}}

	v, err := in.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	s, ok := v.(string)
	if !ok {
		t.Fatalf("Value should be a string for JSONB, got %T", v)
	}

	var out CurrencyPrices
	if err := out.Scan([]byte(s)); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := out["EUR"][Plan7Days]; !got.Equal(decimal.RequireFromString("9.5")) {
		t.Errorf("Expected 9.5 after scan, got %s", got)
	}

	if err := out.Scan(nil); err != nil || len(out) != 0 {
		t.Errorf("NULL should scan to an empty map, got %v %v", out, err)
	}
	if err := out.Scan(42); err == nil {
		t.Error("Expected error for unsupported source type")
	}

	var empty CurrencyPrices
	if v, _ := empty.Value(); v != "{}" {
		t.Errorf("nil map should store as {}, got %v", v)
	}
}
