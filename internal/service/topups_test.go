package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/models"
	"github.com/shopspring/decimal"
)

func TestConcurrentTopUpApprovalCreditsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.user(t, 0)
	req, err := env.svc.TopUps.Create(ctx, user.ID, TopUpRequest{
		Amount:        decimal.NewFromInt(835),
		Currency:      "inr",
		PaymentMethod: "upi",
		TransactionID: "UTR-99",
	})
	if err != nil {
		t.Fatalf("Create top-up: %v", err)
	}
	if req.Currency != "INR" {
		t.Errorf("Currency should be upper-cased, got %s", req.Currency)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		approved  int
		processed int
	)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := env.svc.TopUps.Process(ctx, req.ID, models.RequestStatusApproved)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				approved++
			case errors.Is(err, database.ErrRequestAlreadyProcessed):
				processed++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	if approved != 1 || processed != 9 {
		t.Errorf("Expected 1 approval and 9 rejections, got %d and %d", approved, processed)
	}

	balance, err := env.svc.Wallet.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Expected 835 INR credited as 10 USD, got %s", balance)
	}

	mails := env.mail.sentTo(user.Email)
	if len(mails) != 1 || !strings.Contains(mails[0].HTML, "10.00") {
		t.Errorf("Expected one approval email mentioning the credit, got %+v", mails)
	}
}

func TestTopUpValidationAndReject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.user(t, 0)

	if _, err := env.svc.TopUps.Create(ctx, user.ID, TopUpRequest{Amount: decimal.Zero, TransactionID: "x"}); !errors.Is(err, database.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}
	var verr *database.ValidationError
	if _, err := env.svc.TopUps.Create(ctx, user.ID, TopUpRequest{Amount: decimal.NewFromInt(5)}); !errors.As(err, &verr) {
		t.Errorf("Missing transaction id should fail validation, got %v", err)
	}

	req, err := env.svc.TopUps.Create(ctx, user.ID, TopUpRequest{Amount: decimal.NewFromInt(5), TransactionID: "T-1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.Currency != "USD" {
		t.Errorf("Expected default currency USD, got %s", req.Currency)
	}

	if _, err := env.svc.TopUps.Process(ctx, req.ID, models.RequestStatusRejected); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if _, err := env.svc.TopUps.Process(ctx, req.ID, models.RequestStatusApproved); !errors.Is(err, database.ErrRequestAlreadyProcessed) {
		t.Errorf("Expected ErrRequestAlreadyProcessed, got %v", err)
	}
	if _, err := env.svc.TopUps.Process(ctx, uuid.New(), models.RequestStatusApproved); !errors.Is(err, database.ErrTopUpNotFound) {
		t.Errorf("Expected ErrTopUpNotFound, got %v", err)
	}

	balance, _ := env.svc.Wallet.Balance(ctx, user.ID)
	if !balance.IsZero() {
		t.Errorf("Rejected top-up must not credit, got %s", balance)
	}
}
