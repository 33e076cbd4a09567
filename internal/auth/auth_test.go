package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewHMACVerifier("secret", "license-store")
	want := Identity{UserID: uuid.New(), Email: "a@example.com", Name: "Ann"}

	token, err := v.Sign(want, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	got, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if *got != want {
		t.Errorf("Expected %+v, got %+v", want, *got)
	}
}

func TestVerifyRejects(t *testing.T) {
	v := NewHMACVerifier("secret", "license-store")
	id := Identity{UserID: uuid.New(), Email: "a@example.com"}

	expired, _ := v.Sign(id, -time.Minute)
	otherSecret, _ := NewHMACVerifier("other", "license-store").Sign(id, time.Hour)
	otherIssuer, _ := NewHMACVerifier("secret", "someone-else").Sign(id, time.Hour)

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    "license-store",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:            "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.UserID.String(), Issuer: "license-store"},
	}).SignedString([]byte("secret"))

	tests := map[string]string{
		"expired":      expired,
		"wrong secret": otherSecret,
		"wrong issuer": otherIssuer,
		"bad subject":  badSubject,
		"no expiry":    noExpiry,
		"garbage":      "not.a.token",
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Expected ErrInvalidToken, got %v", err)
			}
		})
	}

	if _, err := v.Verify(""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("Expected ErrMissingToken, got %v", err)
	}
}
