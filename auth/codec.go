package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// Поддерживаемые алгоритмы. Выбор алгоритма - часть контракта с клиентом.
const (
	AlgorithmHMACSHA1   = "hmac-sha1"
	AlgorithmHMACSHA256 = "hmac-sha256"
	AlgorithmHMACSHA512 = "hmac-sha512"
)

var hashConstructors = map[string]func() hash.Hash{
	AlgorithmHMACSHA1:   sha1.New,
	AlgorithmHMACSHA256: sha256.New,
	AlgorithmHMACSHA512: sha512.New,
}

// Signature - дайджест HMAC фиксированной длины
type Signature []byte

// Codec вычисляет, кодирует и сравнивает подписи
type Codec struct {
	algorithm string
	newHash   func() hash.Hash
	size      int
}

// NewCodec создает кодек для указанного алгоритма. Пустая строка означает hmac-sha256.
func NewCodec(algorithm string) (*Codec, error) {
	algorithm = strings.ToLower(strings.TrimSpace(algorithm))
	if algorithm == "" {
		algorithm = AlgorithmHMACSHA256
	}

	newHash, ok := hashConstructors[algorithm]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrConfiguration, algorithm)
	}

	return &Codec{
		algorithm: algorithm,
		newHash:   newHash,
		size:      newHash().Size(),
	}, nil
}

// Algorithm возвращает имя алгоритма
func (c *Codec) Algorithm() string { return c.algorithm }

// Size возвращает длину подписи в байтах
func (c *Codec) Size() int { return c.size }

// Sign вычисляет HMAC сообщения на секрете пользователя
func (c *Codec) Sign(secret []byte, message string) Signature {
	mac := hmac.New(c.newHash, secret)
	mac.Write([]byte(message))
	return mac.Sum(nil)
}

// Encode возвращает подпись в виде hex в нижнем регистре
func (c *Codec) Encode(sig Signature) string {
	return hex.EncodeToString(sig)
}

// Decode разбирает hex-представление подписи и проверяет длину
func (c *Codec) Decode(text string) (Signature, error) {
	if len(text) != hex.EncodedLen(c.size) {
		return nil, fmt.Errorf("%w: expected %d hex characters, got %d", ErrMalformedSignature, hex.EncodedLen(c.size), len(text))
	}

	sig, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return sig, nil
}

// Equal сравнивает подписи за время, не зависящее от позиции первого различия
func (c *Codec) Equal(a, b Signature) bool {
	return hmac.Equal(a, b)
}
