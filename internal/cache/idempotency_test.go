package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/safar/license-store/internal/dbtest"
)

type result struct {
	OrderID string `json:"order_id"`
}

func TestRedisIdempotencyLifecycle(t *testing.T) {
	url := dbtest.SetupRedis(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	idem := NewRedisIdempotency(client, time.Hour)

	var got result
	found, err := idem.Begin(ctx, "user-1:abc", &got)
	if err != nil || found {
		t.Fatalf("First Begin should reserve, got found=%v err=%v", found, err)
	}

	if _, err := idem.Begin(ctx, "user-1:abc", &got); !errors.Is(err, ErrInFlight) {
		t.Errorf("Concurrent Begin should report in-flight, got %v", err)
	}

	if err := idem.Complete(ctx, "user-1:abc", result{OrderID: "o-1"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	found, err = idem.Begin(ctx, "user-1:abc", &got)
	if err != nil || !found || got.OrderID != "o-1" {
		t.Errorf("Expected cached result, got found=%v err=%v result=%+v", found, err, got)
	}

	if _, err := idem.Begin(ctx, "user-1:retry", &got); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := idem.Abort(ctx, "user-1:retry"); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if found, err := idem.Begin(ctx, "user-1:retry", &got); err != nil || found {
		t.Errorf("After Abort the key should be free again, got found=%v err=%v", found, err)
	}
}

func TestDisabledNeverFinds(t *testing.T) {
	var d Disabled
	var got result
	if found, err := d.Begin(context.Background(), "k", &got); found || err != nil {
		t.Errorf("Disabled should never find, got %v %v", found, err)
	}
}
