package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestNewCodec(t *testing.T) {
	tests := []struct {
		algorithm string
		wantName  string
		wantSize  int
		wantErr   bool
	}{
		{"", AlgorithmHMACSHA256, 32, false},
		{"hmac-sha256", AlgorithmHMACSHA256, 32, false},
		{"HMAC-SHA1", AlgorithmHMACSHA1, 20, false},
		{"hmac-sha512", AlgorithmHMACSHA512, 64, false},
		{"hmac-md5", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			codec, err := NewCodec(tt.algorithm)
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Fatalf("Expected ErrConfiguration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if codec.Algorithm() != tt.wantName {
				t.Errorf("Expected algorithm %s, got %s", tt.wantName, codec.Algorithm())
			}
			if codec.Size() != tt.wantSize {
				t.Errorf("Expected size %d, got %d", tt.wantSize, codec.Size())
			}
		})
	}
}

func TestCodec_KnownVectors(t *testing.T) {
	const message = "The quick brown fox jumps over the lazy dog"

	tests := []struct {
		algorithm string
		want      string
	}{
		{AlgorithmHMACSHA256, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"},
		{AlgorithmHMACSHA1, "de7c9b85b8b78aa6bc8a7a36f70a90701c9db4d9"},
	}

	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			codec, _ := NewCodec(tt.algorithm)
			got := codec.Encode(codec.Sign([]byte("key"), message))
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCodec_Decode(t *testing.T) {
	codec, _ := NewCodec(AlgorithmHMACSHA256)
	valid := "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"

	t.Run("Lowercase", func(t *testing.T) {
		sig, err := codec.Decode(valid)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if codec.Encode(sig) != valid {
			t.Errorf("Round trip mismatch")
		}
	})

	t.Run("UppercaseAccepted", func(t *testing.T) {
		sig, err := codec.Decode(strings.ToUpper(valid))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if codec.Encode(sig) != valid {
			t.Errorf("Expected lowercase re-encoding")
		}
	})

	t.Run("WrongLength", func(t *testing.T) {
		_, err := codec.Decode(valid[:40])
		if !errors.Is(err, ErrMalformedSignature) {
			t.Errorf("Expected ErrMalformedSignature, got %v", err)
		}
	})

	t.Run("NotHex", func(t *testing.T) {
		_, err := codec.Decode(strings.Repeat("zz", 32))
		if !errors.Is(err, ErrMalformedSignature) {
			t.Errorf("Expected ErrMalformedSignature, got %v", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := codec.Decode("")
		if !errors.Is(err, ErrMalformedSignature) {
			t.Errorf("Expected ErrMalformedSignature, got %v", err)
		}
	})
}

func TestCodec_Equal(t *testing.T) {
	codec, _ := NewCodec(AlgorithmHMACSHA256)
	a := codec.Sign([]byte("k"), "message")
	b := codec.Sign([]byte("k"), "message")
	c := codec.Sign([]byte("k"), "massage")

	if !codec.Equal(a, b) {
		t.Error("Expected equal signatures to compare equal")
	}
	if codec.Equal(a, c) {
		t.Error("Expected different signatures to differ")
	}
	if codec.Equal(a, a[:len(a)-1]) {
		t.Error("Expected different lengths to differ")
	}

	// Различие в первом и последнем байте дает один и тот же ответ
	first := append(Signature{}, a...)
	first[0] ^= 0xff
	last := append(Signature{}, a...)
	last[len(last)-1] ^= 0xff
	if codec.Equal(a, first) || codec.Equal(a, last) {
		t.Error("Expected mismatch regardless of differing position")
	}
}
