// Package credstore содержит реализации auth.CredentialStore:
// статическую (из конфигурации), Redis и S3.
package credstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hmacgate/auth"
	"hmacgate/logger"
)

// Store - хранилище ключей с проверкой доступности для readiness
type Store interface {
	auth.CredentialStore

	// Provider возвращает тип хранилища
	Provider() string

	// Ping проверяет, что хранилище отвечает
	Ping(ctx context.Context) error

	// Close освобождает соединения
	Close() error
}

// NewFromConfig создает хранилище на основе конфигурации
func NewFromConfig(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("credential store config not provided")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credential store config: %w", err)
	}

	var (
		store Store
		err   error
	)
	switch strings.ToLower(cfg.Provider) {
	case ProviderStatic:
		store, err = NewStaticStore(cfg.Static.Users)
	case ProviderRedis:
		store, err = NewRedisStore(ctx, *cfg.Redis)
	case ProviderS3:
		store, err = NewS3Store(ctx, *cfg.S3)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Credential store initialized: provider=%s", store.Provider())
	return Instrument(store, DefaultMetrics()), nil
}

// instrumented добавляет метрики к любому хранилищу
type instrumented struct {
	Store
	metrics *Metrics
}

// Instrument оборачивает хранилище метриками поиска. nil metrics - без обертки.
func Instrument(store Store, metrics *Metrics) Store {
	if metrics == nil {
		return store
	}
	return &instrumented{Store: store, metrics: metrics}
}

// Lookup вызывает хранилище и фиксирует результат
func (s *instrumented) Lookup(ctx context.Context, username string) (auth.Credential, error) {
	start := time.Now()
	cred, err := s.Store.Lookup(ctx, username)
	s.metrics.observe(s.Provider(), lookupResult(err), time.Since(start).Seconds())
	return cred, err
}

func lookupResult(err error) string {
	switch {
	case err == nil:
		return "found"
	case isNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

// notFound формирует ошибку "пользователь неизвестен" в терминах auth
func notFound(provider, username string) error {
	return fmt.Errorf("%s: %w: %s", provider, auth.ErrCredentialNotFound, username)
}

func isNotFound(err error) bool {
	return errors.Is(err, auth.ErrCredentialNotFound)
}
