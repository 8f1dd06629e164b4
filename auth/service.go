package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Заголовки протокола по умолчанию. Клиенты зашивают их у себя, менять нельзя.
const (
	DefaultSignatureHeader = "x-hmac-auth-signature"
	DefaultTimestampHeader = "x-hmac-auth-date"
)

// DefaultMaxClockSkew - допустимое расхождение часов клиента и сервера
const DefaultMaxClockSkew = 5 * time.Minute

// Service проверяет подпись запроса и классифицирует результат
type Service struct {
	store           CredentialStore
	codec           *Codec
	signatureHeader string
	timestampHeader string
	maxClockSkew    time.Duration
	now             func() time.Time
	diag            Diagnostics
	metrics         *Metrics
}

// Option настраивает Service
type Option func(*Service)

// WithHeaders переопределяет имена заголовков подписи и временной метки
func WithHeaders(signatureHeader, timestampHeader string) Option {
	return func(s *Service) {
		if signatureHeader != "" {
			s.signatureHeader = signatureHeader
		}
		if timestampHeader != "" {
			s.timestampHeader = timestampHeader
		}
	}
}

// WithMaxClockSkew задает окно свежести. 0 отключает проверку.
func WithMaxClockSkew(d time.Duration) Option {
	return func(s *Service) { s.maxClockSkew = d }
}

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDiagnostics задает приемник диагностики
func WithDiagnostics(d Diagnostics) Option {
	return func(s *Service) {
		if d != nil {
			s.diag = d
		}
	}
}

// WithMetrics задает метрики; nil отключает их
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService создает сервис проверки подписи
func NewService(store CredentialStore, codec *Codec, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: credential store is required", ErrConfiguration)
	}
	if codec == nil {
		return nil, fmt.Errorf("%w: signature codec is required", ErrConfiguration)
	}

	s := &Service{
		store:           store,
		codec:           codec,
		signatureHeader: DefaultSignatureHeader,
		timestampHeader: DefaultTimestampHeader,
		maxClockSkew:    DefaultMaxClockSkew,
		now:             time.Now,
		diag:            nopDiagnostics{},
		metrics:         DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxClockSkew < 0 {
		return nil, fmt.Errorf("%w: negative clock skew %v", ErrConfiguration, s.maxClockSkew)
	}

	return s, nil
}

// SignatureHeader возвращает имя заголовка подписи
func (s *Service) SignatureHeader() string { return s.signatureHeader }

// TimestampHeader возвращает имя заголовка временной метки
func (s *Service) TimestampHeader() string { return s.timestampHeader }

// Codec возвращает кодек подписей
func (s *Service) Codec() *Codec { return s.codec }

// HasSignature сообщает, несет ли запрос заголовок подписи
func (s *Service) HasSignature(header interface{ Get(string) string }) bool {
	return strings.TrimSpace(header.Get(s.signatureHeader)) != ""
}

// Validate проверяет подпись буферизованного запроса.
// Ошибка возвращается только для неисправностей сервера (ErrConfiguration)
// и для прерванного контекста запроса (IsAborted); все проблемы клиента -
// это Result со статусом Fail.
func (s *Service) Validate(ctx context.Context, req *BufferedRequest) (Result, error) {
	start := time.Now()

	result, err := s.validate(ctx, req)

	label := strings.ToLower(result.Status().String())
	switch {
	case IsAborted(err):
		label = "aborted"
	case err != nil:
		label = "error"
	}
	s.metrics.observe(label, time.Since(start).Seconds())

	return result, err
}

func (s *Service) validate(ctx context.Context, req *BufferedRequest) (Result, error) {
	// 1. Разбор заголовка подписи "username:hex"
	raw := strings.TrimSpace(req.Header().Get(s.signatureHeader))
	if raw == "" {
		return NotSignedResult(), nil
	}

	username, encoded, ok := strings.Cut(raw, ":")
	username = strings.TrimSpace(username)
	if !ok || username == "" {
		return FailResult(fmt.Errorf("%w: expected <username>:<signature>", ErrMalformedSignature)), nil
	}

	supplied, err := s.codec.Decode(strings.TrimSpace(encoded))
	if err != nil {
		return FailResult(err), nil
	}

	timestamp := strings.TrimSpace(req.Header().Get(s.timestampHeader))
	if timestamp == "" {
		return FailResult(ErrMissingTimestamp), nil
	}

	// 2. Поиск ключа, свежий на каждый запрос
	cred, err := s.store.Lookup(ctx, username)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return FailResult(fmt.Errorf("%w: %s", ErrUnknownUser, username)), nil
		}
		// Клиент ушел или истек срок запроса: сервер исправен
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("credential lookup for %q aborted: %w", username, ctxErr)
		}
		return Result{}, fmt.Errorf("%w: credential lookup for %q: %w", ErrConfiguration, username, err)
	}

	// 3. Проверка свежести
	if err := s.checkFreshness(timestamp); err != nil {
		return FailResult(err), nil
	}

	// 4. Каноническая строка
	sc, err := NewSigningContext(req, s.timestampHeader)
	if err != nil {
		return FailResult(err), nil
	}

	// 5-6. Вычисление и сравнение подписи
	expected := s.codec.Sign(cred.Secret, CanonicalString(sc))
	if !s.codec.Equal(expected, supplied) {
		return FailResult(ErrSignatureMismatch), nil
	}

	return SuccessResult(username), nil
}

// IsAborted сообщает, что проверка прервана контекстом запроса, а не неисправностью сервера
func IsAborted(err error) bool {
	if err == nil || errors.Is(err, ErrConfiguration) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// checkFreshness проверяет, что временная метка попадает в окно maxClockSkew
func (s *Service) checkFreshness(timestamp string) error {
	if s.maxClockSkew == 0 {
		return nil
	}

	ts, err := ParseTimestamp(timestamp)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestExpired, err)
	}

	skew := s.now().Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > s.maxClockSkew {
		return fmt.Errorf("%w: skew %v exceeds %v", ErrRequestExpired, skew.Round(time.Second), s.maxClockSkew)
	}
	return nil
}

// TimestampFormat - формат заголовка временной метки (RFC 3339, дробные секунды допустимы)
const TimestampFormat = time.RFC3339Nano

// ParseTimestamp разбирает значение заголовка временной метки
func ParseTimestamp(value string) (time.Time, error) {
	return time.Parse(TimestampFormat, value)
}

// FormatTimestamp форматирует время для заголовка
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}
