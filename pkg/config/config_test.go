package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/bookmarks_test")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.AccessTokenTTL != time.Hour {
		t.Errorf("AccessTokenTTL = %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 168*time.Hour {
		t.Errorf("RefreshTokenTTL = %v", cfg.RefreshTokenTTL)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development environment")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default development config should validate: %v", err)
	}
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		Port:        "8080",
		PostgresDSN: "postgres://localhost/bookmarks",
		JWTSecret:   defaultJWTSecret,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("production config with default JWT secret must not validate")
	}
}

func TestValidateRequiresDSN(t *testing.T) {
	cfg := &Config{Environment: "development", Port: "8080", JWTSecret: "s"}
	if err := cfg.Validate(); err == nil {
		t.Error("config without POSTGRES_DSN must not validate")
	}
}

func TestAllowedOriginsSplit(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/bookmarks_test")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://a.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}
