package config

import (
	"strings"
	"testing"
)

func baseConfig() *Config {
	return &Config{
		Port:                        "8000",
		Env:                         "development",
		DatabaseURL:                 "postgres://localhost/aba",
		BreachFailedLoginThreshold:  5,
		BreachRecordAccessThreshold: 100,
	}
}

func TestValidate_DevModeDefaults(t *testing.T) {
	cfg := baseConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("dev config should validate: %v", err)
	}
	if mode := cfg.ResolvedAuthMode(); mode != "development" {
		t.Errorf("mode = %q, want development", mode)
	}
}

func TestValidate_ProductionRefusesDevAuth(t *testing.T) {
	cfg := baseConfig()
	cfg.Env = "production"
	cfg.AuthMode = "development"
	cfg.PHIEncryptionKey = strings.Repeat("ab", 32)
	if err := cfg.Validate(); err == nil {
		t.Fatal("production with AUTH_MODE=development should be rejected")
	}
}

func TestValidate_ProductionRequiresEncryptionKey(t *testing.T) {
	cfg := baseConfig()
	cfg.Env = "production"
	cfg.JWTSigningKey = "secret"
	if err := cfg.Validate(); err == nil {
		t.Fatal("production without PHI_ENCRYPTION_KEY should be rejected")
	}
	cfg.PHIEncryptionKey = strings.Repeat("ab", 32)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("production with full config should validate: %v", err)
	}
}

func TestValidate_EncryptionKeyShape(t *testing.T) {
	cfg := baseConfig()
	cfg.PHIEncryptionKey = "not-hex"
	if err := cfg.Validate(); err == nil {
		t.Error("non-hex key accepted")
	}
	cfg.PHIEncryptionKey = "abcd" // 2 bytes
	if err := cfg.Validate(); err == nil {
		t.Error("short key accepted")
	}
	cfg.PHIEncryptionKey = strings.Repeat("0f", 32)
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid 64-hex key rejected: %v", err)
	}
}

func TestResolvedAuthMode_Inference(t *testing.T) {
	cfg := baseConfig()
	cfg.AuthJWKSURL = "https://idp.example.com/jwks"
	if mode := cfg.ResolvedAuthMode(); mode != "jwks" {
		t.Errorf("jwks url set: mode = %q", mode)
	}

	cfg = baseConfig()
	cfg.JWTSigningKey = "secret"
	if mode := cfg.ResolvedAuthMode(); mode != "hmac" {
		t.Errorf("signing key set: mode = %q", mode)
	}

	cfg = baseConfig()
	cfg.Env = "production"
	if mode := cfg.ResolvedAuthMode(); mode != "hmac" {
		t.Errorf("production default: mode = %q (hmac forces the signing-key check)", mode)
	}
}

func TestValidate_JWKSNeedsIssuer(t *testing.T) {
	cfg := baseConfig()
	cfg.AuthMode = "jwks"
	cfg.AuthJWKSURL = "https://idp.example.com/jwks"
	if err := cfg.Validate(); err == nil {
		t.Error("jwks mode without issuer accepted")
	}
	cfg.AuthIssuer = "https://idp.example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("full jwks config rejected: %v", err)
	}
}

func TestValidate_BreachThresholds(t *testing.T) {
	cfg := baseConfig()
	cfg.BreachFailedLoginThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero failed-login threshold accepted")
	}
}
