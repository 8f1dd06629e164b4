package auth

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestSigner_SignRequest(t *testing.T) {
	codec, _ := NewCodec("")
	signer := NewSigner(codec, WithSignerClock(func() time.Time { return fixedNow }))

	r, err := http.NewRequest("POST", "http://api.example.com/orders", strings.NewReader(`{"id":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := signer.SignRequest(r, "alice", []byte("s3cr3t")); err != nil {
		t.Fatalf("SignRequest: %v", err)
	}

	if got := r.Header.Get(DefaultTimestampHeader); got != "2024-05-01T12:00:00Z" {
		t.Errorf("Unexpected date header %q", got)
	}
	if got := r.Header.Get(DefaultSignatureHeader); got != "alice:"+orderSignature {
		t.Errorf("Unexpected signature header %q", got)
	}

	body, _ := io.ReadAll(r.Body)
	if string(body) != `{"id":1}` {
		t.Errorf("Body must be restored, got %q", body)
	}
}

func TestSigner_KeepsExistingDate(t *testing.T) {
	codec, _ := NewCodec("")
	r, _ := http.NewRequest("GET", "http://api.example.com/", nil)
	r.Header.Set(DefaultTimestampHeader, "2020-01-01T00:00:00Z")

	if err := NewSigner(codec).SignRequest(r, "alice", []byte("k")); err != nil {
		t.Fatal(err)
	}
	if r.Header.Get(DefaultTimestampHeader) != "2020-01-01T00:00:00Z" {
		t.Error("Existing date header must be kept")
	}
}

func TestSigner_Errors(t *testing.T) {
	codec, _ := NewCodec("")
	r, _ := http.NewRequest("POST", "http://api.example.com/", strings.NewReader("\xff"))

	if err := NewSigner(codec).SignRequest(r, "", []byte("k")); err == nil {
		t.Error("Expected error for empty username")
	}
	if err := NewSigner(codec).SignRequest(r, "alice", []byte("k")); err == nil {
		t.Error("Expected error for non UTF-8 body")
	}
}
