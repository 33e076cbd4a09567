package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Plan string

const (
	Plan1Day       Plan = "1_day"
	Plan7Days      Plan = "7_days"
	Plan30Days     Plan = "30_days"
	PlanLifetime   Plan = "lifetime"
	PlanTrial1Day  Plan = "trial_1_day"
	PlanTrial2Days Plan = "trial_2_days"
	PlanTrial3Days Plan = "trial_3_days"
)

var PaidPlans = []Plan{Plan1Day, Plan7Days, Plan30Days, PlanLifetime}

var TrialPlans = []Plan{PlanTrial1Day, PlanTrial2Days, PlanTrial3Days}

func (p Plan) IsTrial() bool {
	for _, t := range TrialPlans {
		if p == t {
			return true
		}
	}
	return false
}

func (p Plan) Valid() bool {
	if p.IsTrial() {
		return true
	}
	for _, paid := range PaidPlans {
		if p == paid {
			return true
		}
	}
	return false
}

// CurrencyPrices maps a currency code to per-plan price overrides. It is
// stored as JSONB and sent as text, since lib/pq encodes []byte as bytea.
type CurrencyPrices map[string]map[Plan]decimal.Decimal

func (c CurrencyPrices) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (c *CurrencyPrices) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*c = CurrencyPrices{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan currency prices: unsupported type %T", src)
	}

	prices := CurrencyPrices{}
	if err := json.Unmarshal(data, &prices); err != nil {
		return fmt.Errorf("scan currency prices: %w", err)
	}
	*c = prices
	return nil
}

type Product struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	ImageURL          string          `json:"image_url,omitempty"`
	DownloadLink      string          `json:"download_link,omitempty"`
	TutorialVideoLink string          `json:"tutorial_video_link,omitempty"`
	ActivationProcess string          `json:"activation_process,omitempty"`
	Price1Day         decimal.Decimal `json:"price_1_day"`
	Price7Days        decimal.Decimal `json:"price_7_days"`
	Price30Days       decimal.Decimal `json:"price_30_days"`
	PriceLifetime     decimal.Decimal `json:"price_lifetime"`
	CurrencyPrices    CurrencyPrices  `json:"currency_prices,omitempty"`
	TrialEnabled      bool            `json:"trial_enabled"`
	TrialPlan         Plan            `json:"trial_plan"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// BasePrice returns the USD list price for plan. Trial plans are free.
func (p *Product) BasePrice(plan Plan) (decimal.Decimal, bool) {
	switch plan {
	case Plan1Day:
		return p.Price1Day, true
	case Plan7Days:
		return p.Price7Days, true
	case Plan30Days:
		return p.Price30Days, true
	case PlanLifetime:
		return p.PriceLifetime, true
	}
	if plan.IsTrial() {
		return decimal.Zero, true
	}
	return decimal.Zero, false
}

const (
	LicenseStatusUnused   = "unused"
	LicenseStatusAssigned = "assigned"
)

type LicenseKey struct {
	ID         uuid.UUID     `json:"id"`
	ProductID  uuid.UUID     `json:"product_id"`
	Plan       Plan          `json:"plan"`
	Key        string        `json:"license_key"`
	Status     string        `json:"status"`
	AssignedTo uuid.NullUUID `json:"assigned_to"`
	AssignedAt *time.Time    `json:"assigned_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

type LicenseView struct {
	LicenseKey
	ProductName   string `json:"product_name"`
	AssigneeEmail string `json:"assignee_email,omitempty"`
}

type User struct {
	ID        uuid.UUID       `json:"id"`
	Email     string          `json:"email"`
	FullName  string          `json:"name"`
	Role      string          `json:"role"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

const (
	PaymentMethodManual    = "manual"
	PaymentMethodWallet    = "wallet"
	PaymentMethodFreeTrial = "free_trial"
)

type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          uuid.UUID       `json:"user_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	Plan            Plan            `json:"plan"`
	Price           decimal.Decimal `json:"price"`
	PaymentMethod   string          `json:"payment_method"`
	TransactionID   string          `json:"transaction_id"`
	PaymentProofURL string          `json:"payment_screenshot_url,omitempty"`
	PromoCode       string          `json:"promo_code,omitempty"`
	Status          string          `json:"status"`
	LicenseKeyID    uuid.NullUUID   `json:"license_key_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
}

// OrderView is an order joined with the display fields its owner needs.
type OrderView struct {
	Order
	ProductName       string  `json:"product_name"`
	ImageURL          string  `json:"image_url,omitempty"`
	DownloadLink      string  `json:"download_link,omitempty"`
	TutorialVideoLink string  `json:"tutorial_video_link,omitempty"`
	ActivationProcess string  `json:"activation_process,omitempty"`
	LicenseKey        *string `json:"license_key,omitempty"`
}

// AdminOrderView is an order joined with buyer and product names.
type AdminOrderView struct {
	Order
	UserEmail   string `json:"user_email"`
	UserName    string `json:"user_name"`
	ProductName string `json:"product_name"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusRejected  = "rejected"
)

const (
	PromoTypePercent = "percent"
	PromoTypeFixed   = "fixed"
)

type PromoCode struct {
	ID        uuid.UUID       `json:"id"`
	Code      string          `json:"code"`
	Type      string          `json:"type"`
	Value     decimal.Decimal `json:"value"`
	MaxUses   *int            `json:"max_uses"`
	UsesCount int             `json:"uses_count"`
	ExpiresAt *time.Time      `json:"expires_at"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
}

const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

type TopUpRequest struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	TransactionID string          `json:"transaction_id"`
	ProofURL      string          `json:"payment_screenshot_url,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
}

type TopUpView struct {
	TopUpRequest
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

type CredentialRequest struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	ProductID     uuid.UUID `json:"product_id"`
	OrderID       uuid.UUID `json:"order_id"`
	Username      string    `json:"username"`
	Password      string    `json:"password"`
	Status        string    `json:"status"`
	AdminResponse string    `json:"admin_response,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CredentialRequestView struct {
	CredentialRequest
	UserEmail   string `json:"user_email,omitempty"`
	UserName    string `json:"user_name,omitempty"`
	ProductName string `json:"product_name"`
}
