package auth

import (
	"fmt"
	"net/http"
	"time"
)

// Signer подписывает исходящие запросы так же, как их проверяет Service.
// Используется клиентами и тестами.
type Signer struct {
	codec           *Codec
	signatureHeader string
	timestampHeader string
	maxBody         int64
	now             func() time.Time
}

// SignerOption настраивает Signer
type SignerOption func(*Signer)

// WithSignerHeaders переопределяет имена заголовков
func WithSignerHeaders(signatureHeader, timestampHeader string) SignerOption {
	return func(s *Signer) {
		if signatureHeader != "" {
			s.signatureHeader = signatureHeader
		}
		if timestampHeader != "" {
			s.timestampHeader = timestampHeader
		}
	}
}

// WithSignerClock подменяет источник времени для заголовка даты
func WithSignerClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSigner создает подписчик запросов
func NewSigner(codec *Codec, opts ...SignerOption) *Signer {
	s := &Signer{
		codec:           codec,
		signatureHeader: DefaultSignatureHeader,
		timestampHeader: DefaultTimestampHeader,
		maxBody:         DefaultMaxBodyBytes,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignRequest выставляет заголовки даты (если его нет) и подписи.
// Тело вычитывается и возвращается в запрос.
func (s *Signer) SignRequest(r *http.Request, username string, secret []byte) error {
	if username == "" {
		return fmt.Errorf("sign request: empty username")
	}

	if r.Header.Get(s.timestampHeader) == "" {
		r.Header.Set(s.timestampHeader, FormatTimestamp(s.now()))
	}

	buffered, err := Wrap(r, s.maxBody)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	sc, err := NewSigningContext(buffered, s.timestampHeader)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	sig := s.codec.Sign(secret, CanonicalString(sc))
	r.Header.Set(s.signatureHeader, username+":"+s.codec.Encode(sig))

	return nil
}
