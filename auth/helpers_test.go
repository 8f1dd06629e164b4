package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// fixedNow - время, от которого считаются все временные метки в тестах
var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// mapStore - хранилище ключей в памяти, считает обращения
type mapStore struct {
	mu      sync.Mutex
	secrets map[string]string
	err     error
	calls   int
}

func newMapStore(secrets map[string]string) *mapStore {
	return &mapStore{secrets: secrets}
}

func (m *mapStore) Lookup(ctx context.Context, username string) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	if m.err != nil {
		return Credential{}, m.err
	}
	secret, ok := m.secrets[username]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return Credential{Username: username, Secret: Secret(secret)}, nil
}

func (m *mapStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// recordingDiagnostics запоминает сообщения
type recordingDiagnostics struct {
	mu     sync.Mutex
	debugs []string
	errors []string
}

func (r *recordingDiagnostics) Debug(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debugs = append(r.debugs, fmt.Sprintf(format, args...))
}

func (r *recordingDiagnostics) Error(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recordingDiagnostics) all() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(append(append([]string{}, r.debugs...), r.errors...), "\n")
}

func newTestService(t *testing.T, store CredentialStore, opts ...Option) *Service {
	t.Helper()

	codec, err := NewCodec(AlgorithmHMACSHA256)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithMetrics(NewMetrics(prometheus.NewRegistry())),
	}
	svc, err := NewService(store, codec, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

// newSignedRequest строит запрос и подписывает его ключом secret
func newSignedRequest(t *testing.T, method, target, body, username, secret string) *http.Request {
	t.Helper()

	r := httptest.NewRequest(method, target, strings.NewReader(body))
	codec, _ := NewCodec(AlgorithmHMACSHA256)
	signer := NewSigner(codec, WithSignerClock(func() time.Time { return fixedNow }))
	if err := signer.SignRequest(r, username, []byte(secret)); err != nil {
		t.Fatalf("SignRequest: %v", err)
	}
	return r
}

func wrap(t *testing.T, r *http.Request) *BufferedRequest {
	t.Helper()
	b, err := Wrap(r, 0)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	return b
}

var errStoreDown = errors.New("store is down")
