package auth

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config must be valid: %v", err)
	}
	if cfg.MaxClockSkew != 5*time.Minute {
		t.Errorf("Expected 5m skew, got %v", cfg.MaxClockSkew)
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Errorf("Expected 1 MiB body limit, got %d", cfg.MaxBodyBytes)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"UnknownAlgorithm", func(c *Config) { c.Algorithm = "hmac-md5" }},
		{"EmptySignatureHeader", func(c *Config) { c.SignatureHeader = " " }},
		{"EmptyTimestampHeader", func(c *Config) { c.TimestampHeader = "" }},
		{"SameHeaders", func(c *Config) { c.TimestampHeader = "X-HMAC-AUTH-SIGNATURE" }},
		{"NegativeSkew", func(c *Config) { c.MaxClockSkew = -time.Second }},
		{"ZeroBodyLimit", func(c *Config) { c.MaxBodyBytes = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrConfiguration) {
				t.Errorf("Expected ErrConfiguration, got %v", err)
			}
		})
	}

	t.Run("ZeroSkewAllowed", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxClockSkew = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})
}

func TestNewServiceFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Algorithm = AlgorithmHMACSHA512
	cfg.SignatureHeader = "X-Sig"

	svc, err := NewServiceFromConfig(cfg, newMapStore(nil), WithMetrics(nil))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if svc.Codec().Algorithm() != AlgorithmHMACSHA512 {
		t.Errorf("Expected sha512, got %s", svc.Codec().Algorithm())
	}
	if svc.SignatureHeader() != "X-Sig" || svc.TimestampHeader() != DefaultTimestampHeader {
		t.Errorf("Unexpected headers %s / %s", svc.SignatureHeader(), svc.TimestampHeader())
	}

	cfg.Algorithm = "none"
	if _, err := NewServiceFromConfig(cfg, newMapStore(nil)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}
