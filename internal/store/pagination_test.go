package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), ID: uuid.New()}

	got, err := DecodeCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestDecodeEmptyCursorStartsAfterNewest(t *testing.T) {
	c, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if !c.CreatedAt.After(time.Now()) {
		t.Error("Empty cursor should sort after every existing row")
	}
	if c.ID != maxUUID {
		t.Errorf("Expected max uuid, got %s", c.ID)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	if _, err := DecodeCursor("%%%"); err == nil {
		t.Error("Expected error for malformed cursor")
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, DefaultPageSize},
		{3, 10, 3, 10},
		{-1, 1000, 1, MaxPageSize},
	}
	for _, tt := range tests {
		p, s := NormalizePage(tt.page, tt.size)
		if p != tt.wantPage || s != tt.wantSize {
			t.Errorf("NormalizePage(%d, %d) = (%d, %d), want (%d, %d)", tt.page, tt.size, p, s, tt.wantPage, tt.wantSize)
		}
	}
}

func TestNewOffsetPageTotalPages(t *testing.T) {
	page := newOffsetPage(nil, 41, 1, 20)
	if page.TotalPages != 3 {
		t.Errorf("Expected 3 pages, got %d", page.TotalPages)
	}
}
