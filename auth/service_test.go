package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const orderSignature = "8389217c58656e00550b556e0a4c9d01fb3e15f50bc025a025190c235c2932f7"

func TestService_KnownSignature(t *testing.T) {
	store := newMapStore(map[string]string{"alice": "s3cr3t"})
	svc := newTestService(t, store)

	r := httptest.NewRequest("POST", "/orders", strings.NewReader(`{"id":1}`))
	r.Header.Set(DefaultTimestampHeader, "2024-05-01T12:00:00Z")
	r.Header.Set(DefaultSignatureHeader, "alice:"+orderSignature)

	result, err := svc.Validate(context.Background(), wrap(t, r))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Status() != Success {
		t.Fatalf("Expected SUCCESS, got %s (%v)", result.Status(), result.Reason())
	}
	if result.Username() != "alice" {
		t.Errorf("Expected alice, got %s", result.Username())
	}
}

func TestService_Validate(t *testing.T) {
	store := newMapStore(map[string]string{"alice": "s3cr3t", "bob": "other"})

	tests := []struct {
		name    string
		build   func(t *testing.T) *BufferedRequest
		want    Status
		wantErr error
	}{
		{
			name: "Unsigned",
			build: func(t *testing.T) *BufferedRequest {
				return wrap(t, httptest.NewRequest("GET", "/whoami", nil))
			},
			want: NotSigned,
		},
		{
			name: "SignedByClient",
			build: func(t *testing.T) *BufferedRequest {
				return wrap(t, newSignedRequest(t, "POST", "/orders?dry=1", `{"id":1}`, "alice", "s3cr3t"))
			},
			want: Success,
		},
		{
			name: "BodyTampered",
			build: func(t *testing.T) *BufferedRequest {
				r := newSignedRequest(t, "POST", "/orders", `{"id":1}`, "alice", "s3cr3t")
				tampered := httptest.NewRequest("POST", "/orders", strings.NewReader(`{"id":2}`))
				tampered.Header = r.Header.Clone()
				return wrap(t, tampered)
			},
			want:    Fail,
			wantErr: ErrSignatureMismatch,
		},
		{
			name: "QueryTampered",
			build: func(t *testing.T) *BufferedRequest {
				r := newSignedRequest(t, "GET", "/orders?page=1", "", "alice", "s3cr3t")
				tampered := httptest.NewRequest("GET", "/orders?page=2", nil)
				tampered.Header = r.Header.Clone()
				return wrap(t, tampered)
			},
			want:    Fail,
			wantErr: ErrSignatureMismatch,
		},
		{
			name: "MethodTampered",
			build: func(t *testing.T) *BufferedRequest {
				r := newSignedRequest(t, "GET", "/orders", "", "alice", "s3cr3t")
				tampered := httptest.NewRequest("DELETE", "/orders", nil)
				tampered.Header = r.Header.Clone()
				return wrap(t, tampered)
			},
			want:    Fail,
			wantErr: ErrSignatureMismatch,
		},
		{
			name: "WrongSecret",
			build: func(t *testing.T) *BufferedRequest {
				return wrap(t, newSignedRequest(t, "POST", "/orders", `{"id":1}`, "alice", "guess"))
			},
			want:    Fail,
			wantErr: ErrSignatureMismatch,
		},
		{
			name: "ImpersonationWithOwnSecret",
			build: func(t *testing.T) *BufferedRequest {
				return wrap(t, newSignedRequest(t, "POST", "/orders", `{"id":1}`, "alice", "other"))
			},
			want:    Fail,
			wantErr: ErrSignatureMismatch,
		},
		{
			name: "UnknownUser",
			build: func(t *testing.T) *BufferedRequest {
				return wrap(t, newSignedRequest(t, "POST", "/orders", `{"id":1}`, "mallory", "s3cr3t"))
			},
			want:    Fail,
			wantErr: ErrUnknownUser,
		},
		{
			name: "NoUsernamePrefix",
			build: func(t *testing.T) *BufferedRequest {
				r := httptest.NewRequest("GET", "/", nil)
				r.Header.Set(DefaultTimestampHeader, FormatTimestamp(fixedNow))
				r.Header.Set(DefaultSignatureHeader, orderSignature)
				return wrap(t, r)
			},
			want:    Fail,
			wantErr: ErrMalformedSignature,
		},
		{
			name: "EmptyUsername",
			build: func(t *testing.T) *BufferedRequest {
				r := httptest.NewRequest("GET", "/", nil)
				r.Header.Set(DefaultTimestampHeader, FormatTimestamp(fixedNow))
				r.Header.Set(DefaultSignatureHeader, ":"+orderSignature)
				return wrap(t, r)
			},
			want:    Fail,
			wantErr: ErrMalformedSignature,
		},
		{
			name: "NotHex",
			build: func(t *testing.T) *BufferedRequest {
				r := httptest.NewRequest("GET", "/", nil)
				r.Header.Set(DefaultTimestampHeader, FormatTimestamp(fixedNow))
				r.Header.Set(DefaultSignatureHeader, "alice:"+strings.Repeat("g", 64))
				return wrap(t, r)
			},
			want:    Fail,
			wantErr: ErrMalformedSignature,
		},
		{
			name: "MissingTimestamp",
			build: func(t *testing.T) *BufferedRequest {
				r := newSignedRequest(t, "GET", "/", "", "alice", "s3cr3t")
				r.Header.Del(DefaultTimestampHeader)
				return wrap(t, r)
			},
			want:    Fail,
			wantErr: ErrMissingTimestamp,
		},
		{
			name: "TimestampTampered",
			build: func(t *testing.T) *BufferedRequest {
				r := newSignedRequest(t, "GET", "/", "", "alice", "s3cr3t")
				r.Header.Set(DefaultTimestampHeader, FormatTimestamp(fixedNow.Add(time.Second)))
				return wrap(t, r)
			},
			want:    Fail,
			wantErr: ErrSignatureMismatch,
		},
		{
			name: "BodyNotUTF8",
			build: func(t *testing.T) *BufferedRequest {
				r := newSignedRequest(t, "POST", "/", "", "alice", "s3cr3t")
				bad := httptest.NewRequest("POST", "/", strings.NewReader("\xff\xfe"))
				bad.Header = r.Header.Clone()
				return wrap(t, bad)
			},
			want:    Fail,
			wantErr: ErrBodyNotUTF8,
		},
	}

	svc := newTestService(t, store)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Validate(context.Background(), tt.build(t))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result.Status() != tt.want {
				t.Fatalf("Expected %s, got %s (%v)", tt.want, result.Status(), result.Reason())
			}
			if tt.wantErr != nil && !errors.Is(result.Reason(), tt.wantErr) {
				t.Errorf("Expected reason %v, got %v", tt.wantErr, result.Reason())
			}
			if tt.want != Success && result.Username() != "" {
				t.Errorf("Username must be empty on %s", result.Status())
			}
		})
	}
}

func TestService_Freshness(t *testing.T) {
	store := newMapStore(map[string]string{"alice": "s3cr3t"})

	signedAt := func(t *testing.T, at time.Time) *BufferedRequest {
		r := httptest.NewRequest("GET", "/whoami", nil)
		r.Header.Set(DefaultTimestampHeader, FormatTimestamp(at))
		codec, _ := NewCodec("")
		if err := NewSigner(codec).SignRequest(r, "alice", []byte("s3cr3t")); err != nil {
			t.Fatalf("SignRequest: %v", err)
		}
		return wrap(t, r)
	}

	tests := []struct {
		name string
		skew time.Duration
		at   time.Time
		want Status
	}{
		{"InsideWindow", 5 * time.Minute, fixedNow.Add(-4 * time.Minute), Success},
		{"FutureInsideWindow", 5 * time.Minute, fixedNow.Add(4 * time.Minute), Success},
		{"TooOld", 5 * time.Minute, fixedNow.Add(-6 * time.Minute), Fail},
		{"TooFarInFuture", 5 * time.Minute, fixedNow.Add(6 * time.Minute), Fail},
		{"DisabledAcceptsAnything", 0, fixedNow.Add(-48 * time.Hour), Success},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, store, WithMaxClockSkew(tt.skew))
			result, err := svc.Validate(context.Background(), signedAt(t, tt.at))
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result.Status() != tt.want {
				t.Errorf("Expected %s, got %s (%v)", tt.want, result.Status(), result.Reason())
			}
			if tt.want == Fail && !errors.Is(result.Reason(), ErrRequestExpired) {
				t.Errorf("Expected ErrRequestExpired, got %v", result.Reason())
			}
		})
	}

	t.Run("UnparsableTimestamp", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set(DefaultTimestampHeader, "yesterday")
		codec, _ := NewCodec("")
		_ = NewSigner(codec).SignRequest(r, "alice", []byte("s3cr3t"))

		svc := newTestService(t, store)
		result, _ := svc.Validate(context.Background(), wrap(t, r))
		if result.Status() != Fail || !errors.Is(result.Reason(), ErrRequestExpired) {
			t.Errorf("Expected expired FAIL, got %s (%v)", result.Status(), result.Reason())
		}
	})
}

func TestService_StoreFailureIsConfigurationError(t *testing.T) {
	store := newMapStore(nil)
	store.err = errStoreDown
	svc := newTestService(t, store)

	_, err := svc.Validate(context.Background(), wrap(t, newSignedRequest(t, "GET", "/", "", "alice", "s3cr3t")))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Expected ErrConfiguration, got %v", err)
	}
	if !errors.Is(err, errStoreDown) {
		t.Errorf("Store cause must stay in the chain, got %v", err)
	}
	if IsAborted(err) {
		t.Error("Store failure must not be reported as aborted")
	}
}

func TestService_CancelledLookup(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	store := newMapStore(map[string]string{"alice": "s3cr3t"})
	svc := newTestService(t, store, WithMetrics(metrics))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Validate(ctx, wrap(t, newSignedRequest(t, "GET", "/", "", "alice", "s3cr3t")))
	if err == nil {
		t.Fatal("Expected an error for cancelled lookup")
	}
	if errors.Is(err, ErrConfiguration) {
		t.Errorf("Cancelled request must not be a configuration error: %v", err)
	}
	if !errors.Is(err, context.Canceled) || !IsAborted(err) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	if got := testutil.ToFloat64(metrics.AuthRequestsTotal.WithLabelValues("aborted")); got != 1 {
		t.Errorf("Expected aborted=1, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.AuthRequestsTotal.WithLabelValues("error")); got != 0 {
		t.Errorf("Expected error=0, got %v", got)
	}
}

func TestService_StoreTimeoutIsConfigurationError(t *testing.T) {
	store := newMapStore(nil)
	store.err = fmt.Errorf("redis: %w", context.DeadlineExceeded)
	svc := newTestService(t, store)

	// Собственный таймаут хранилища при живом запросе - неисправность сервера
	_, err := svc.Validate(context.Background(), wrap(t, newSignedRequest(t, "GET", "/", "", "alice", "s3cr3t")))
	if !errors.Is(err, ErrConfiguration) || IsAborted(err) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestService_UnsignedDoesNotTouchStore(t *testing.T) {
	store := newMapStore(map[string]string{"alice": "s3cr3t"})
	svc := newTestService(t, store)

	for i := 0; i < 3; i++ {
		result, err := svc.Validate(context.Background(), wrap(t, httptest.NewRequest("GET", "/", nil)))
		if err != nil || result.Status() != NotSigned {
			t.Fatalf("Expected NOT_SIGNED, got %s, %v", result.Status(), err)
		}
	}
	if store.Calls() != 0 {
		t.Errorf("Store consulted %d times for unsigned requests", store.Calls())
	}
}

func TestService_Deterministic(t *testing.T) {
	store := newMapStore(map[string]string{"alice": "s3cr3t"})
	svc := newTestService(t, store)

	r := newSignedRequest(t, "POST", "/orders", `{"id":1}`, "alice", "s3cr3t")
	b := wrap(t, r)
	for i := 0; i < 3; i++ {
		result, _ := svc.Validate(context.Background(), b)
		if result.Status() != Success {
			t.Fatalf("Attempt %d: expected SUCCESS, got %s", i, result.Status())
		}
	}
}

func TestService_CustomHeaders(t *testing.T) {
	store := newMapStore(map[string]string{"alice": "s3cr3t"})
	svc := newTestService(t, store, WithHeaders("X-Sig", "X-Date"))

	r := httptest.NewRequest("GET", "/", nil)
	codec, _ := NewCodec("")
	signer := NewSigner(codec, WithSignerHeaders("X-Sig", "X-Date"), WithSignerClock(func() time.Time { return fixedNow }))
	if err := signer.SignRequest(r, "alice", []byte("s3cr3t")); err != nil {
		t.Fatal(err)
	}

	result, err := svc.Validate(context.Background(), wrap(t, r))
	if err != nil || result.Status() != Success {
		t.Errorf("Expected SUCCESS, got %s, %v", result.Status(), err)
	}
}

func TestNewService_Errors(t *testing.T) {
	codec, _ := NewCodec("")
	if _, err := NewService(nil, codec); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for nil store, got %v", err)
	}
	if _, err := NewService(newMapStore(nil), nil); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for nil codec, got %v", err)
	}
	if _, err := NewService(newMapStore(nil), codec, WithMaxClockSkew(-time.Second)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for negative skew, got %v", err)
	}
}

func TestService_Metrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	store := newMapStore(map[string]string{"alice": "s3cr3t"})
	svc := newTestService(t, store, WithMetrics(metrics))

	_, _ = svc.Validate(context.Background(), wrap(t, httptest.NewRequest("GET", "/", nil)))
	_, _ = svc.Validate(context.Background(), wrap(t, newSignedRequest(t, "GET", "/", "", "alice", "s3cr3t")))
	_, _ = svc.Validate(context.Background(), wrap(t, newSignedRequest(t, "GET", "/", "", "alice", "nope")))

	for label, want := range map[string]float64{"not_signed": 1, "success": 1, "fail": 1, "error": 0} {
		if got := testutil.ToFloat64(metrics.AuthRequestsTotal.WithLabelValues(label)); got != want {
			t.Errorf("Expected %s=%v, got %v", label, want, got)
		}
	}
}
