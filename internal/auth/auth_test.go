package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

// testSecret is base64("streaming-test-secret-key").
var testSecret = base64.StdEncoding.EncodeToString([]byte("streaming-test-secret-key"))

func TestSign(t *testing.T) {
	msg := "1705328200000+stream"

	got, err := Sign(msg, testSecret)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	mac := hmac.New(sha256.New, []byte("streaming-test-secret-key"))
	mac.Write([]byte(msg))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if got != want {
		t.Errorf("Sign = %q, want %q", got, want)
	}

	// Deterministic for the same input.
	again, err := Sign(msg, testSecret)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if again != got {
		t.Errorf("Sign not deterministic: %q vs %q", again, got)
	}
}

func TestSign_InvalidSecret(t *testing.T) {
	if _, err := Sign("msg", "not!!valid!!base64"); err == nil {
		t.Error("expected error for non-base64 secret")
	}
}

func TestSign_DistinctSecrets(t *testing.T) {
	other := base64.StdEncoding.EncodeToString([]byte("another-secret"))

	a, err := Sign("1+stream", testSecret)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	b, err := Sign("1+stream", other)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if a == b {
		t.Error("signatures under distinct secrets should differ")
	}
}

func TestCredentials_Headers(t *testing.T) {
	creds := &Credentials{Key: "key-id", Secret: testSecret}

	headers, err := creds.Headers(1705328200000, "assets")
	if err != nil {
		t.Fatalf("Headers failed: %v", err)
	}

	if headers["x-auth-key"] != "key-id" {
		t.Errorf("x-auth-key = %q, want %q", headers["x-auth-key"], "key-id")
	}
	if headers["x-auth-timestamp"] != "1705328200000" {
		t.Errorf("x-auth-timestamp = %q, want %q", headers["x-auth-timestamp"], "1705328200000")
	}

	want, err := Sign("1705328200000+assets", testSecret)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if headers["x-auth-signature"] != want {
		t.Errorf("x-auth-signature = %q, want %q", headers["x-auth-signature"], want)
	}
}

func TestCredentials_Configured(t *testing.T) {
	tests := []struct {
		name  string
		creds *Credentials
		want  bool
	}{
		{"nil", nil, false},
		{"empty", &Credentials{}, false},
		{"key only", &Credentials{Key: "k"}, false},
		{"secret only", &Credentials{Secret: "s"}, false},
		{"both", &Credentials{Key: "k", Secret: "s"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}
