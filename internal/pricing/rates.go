package pricing

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Rates maps a currency code to units of that currency per one USD.
type Rates map[string]decimal.Decimal

func DefaultRates() Rates {
	return Rates{
		"USD": decimal.NewFromInt(1),
		"GBP": decimal.RequireFromString("0.79"),
		"INR": decimal.RequireFromString("83.50"),
		"PKR": decimal.RequireFromString("278.00"),
		"BDT": decimal.RequireFromString("117.00"),
	}
}

type ratesFile struct {
	Rates map[string]float64 `yaml:"rates"`
}

// LoadRates reads a YAML rate table and layers it over the defaults. An empty
// path returns the defaults.
func LoadRates(path string) (Rates, error) {
	rates := DefaultRates()
	if path == "" {
		return rates, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rates file: %w", err)
	}

	var file ratesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rates YAML: %w", err)
	}

	for code, rate := range file.Rates {
		if rate <= 0 {
			return nil, fmt.Errorf("rate for %s must be positive", code)
		}
		rates[strings.ToUpper(code)] = decimal.NewFromFloat(rate)
	}

	return rates, nil
}

// Rate returns the rate for currency, or 1 when the currency is unknown.
func (r Rates) Rate(currency string) decimal.Decimal {
	if rate, ok := r[strings.ToUpper(strings.TrimSpace(currency))]; ok && rate.IsPositive() {
		return rate
	}
	return decimal.NewFromInt(1)
}

// ToUSD converts amount in currency to USD, rounded to cents.
func (r Rates) ToUSD(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Div(r.Rate(currency)).Round(2)
}
