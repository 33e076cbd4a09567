package config

import (
	"testing"
	"time"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error when JWT_SECRET is missing")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "7")
	t.Setenv("DATABASE_CONN_MAX_LIFETIME", "90s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Database.MaxOpenConns != 7 {
		t.Errorf("Expected 7 open conns, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnMaxLifetime != 90*time.Second {
		t.Errorf("Expected 90s lifetime, got %s", cfg.Database.ConnMaxLifetime)
	}
	if cfg.RateLimit.RequestsPerSecond != 2.5 {
		t.Errorf("Expected 2.5 rps, got %v", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("Invalid duration should fall back to default, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Redis.URL != "" {
		t.Errorf("Redis should be disabled by default, got %q", cfg.Redis.URL)
	}
}

func TestSMTPEnabled(t *testing.T) {
	if (SMTPConfig{}).Enabled() {
		t.Error("Empty SMTP config should be disabled")
	}
	c := SMTPConfig{Host: "smtp.example.com", Port: "465", FromAddr: "store@example.com"}
	if !c.Enabled() {
		t.Error("SMTP config with host, port and sender should be enabled")
	}
}
