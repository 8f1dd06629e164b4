package auth

import (
	"fmt"
	"strings"
	"time"
)

// Config содержит конфигурацию для модуля аутентификации
type Config struct {
	// Algorithm - алгоритм HMAC ("hmac-sha256", "hmac-sha1", "hmac-sha512")
	Algorithm string `yaml:"algorithm" json:"algorithm"`

	// SignatureHeader - заголовок с "<username>:<hex>"
	SignatureHeader string `yaml:"signature_header" json:"signature_header"`

	// TimestampHeader - заголовок с временной меткой RFC 3339
	TimestampHeader string `yaml:"timestamp_header" json:"timestamp_header"`

	// MaxClockSkew - окно свежести запроса; 0 отключает проверку
	MaxClockSkew time.Duration `yaml:"max_clock_skew" json:"max_clock_skew"`

	// MaxBodyBytes - лимит буферизации тела подписанного запроса
	MaxBodyBytes int64 `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Algorithm:       AlgorithmHMACSHA256,
		SignatureHeader: DefaultSignatureHeader,
		TimestampHeader: DefaultTimestampHeader,
		MaxClockSkew:    DefaultMaxClockSkew,
		MaxBodyBytes:    DefaultMaxBodyBytes,
	}
}

// Validate проверяет корректность конфигурации аутентификации
func (c *Config) Validate() error {
	if _, err := NewCodec(c.Algorithm); err != nil {
		return err
	}

	if strings.TrimSpace(c.SignatureHeader) == "" {
		return fmt.Errorf("%w: signature_header is empty", ErrConfiguration)
	}
	if strings.TrimSpace(c.TimestampHeader) == "" {
		return fmt.Errorf("%w: timestamp_header is empty", ErrConfiguration)
	}
	if strings.EqualFold(c.SignatureHeader, c.TimestampHeader) {
		return fmt.Errorf("%w: signature and timestamp headers must differ", ErrConfiguration)
	}

	if c.MaxClockSkew < 0 {
		return fmt.Errorf("%w: max_clock_skew must not be negative", ErrConfiguration)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrConfiguration)
	}

	return nil
}

// NewServiceFromConfig создает сервис проверки подписи на основе конфигурации
func NewServiceFromConfig(cfg Config, store CredentialStore, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec, err := NewCodec(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	// Опции из конфигурации идут первыми, явные опции вызывающего их перекрывают
	base := []Option{
		WithHeaders(cfg.SignatureHeader, cfg.TimestampHeader),
		WithMaxClockSkew(cfg.MaxClockSkew),
	}
	return NewService(store, codec, append(base, opts...)...)
}
