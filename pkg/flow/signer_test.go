package flow

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner("  "); err == nil {
		t.Fatal("expected error for blank secret")
	}
	if _, err := NewSigner("s3cret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSignSortsKeysAndConcatenatesWithoutSeparator(t *testing.T) {
	signer, err := NewSigner("s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := signer.Sign(map[string]string{
		"commerceOrder": "oc-1",
		"amount":        "9990",
		"apiKey":        "abc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Keys sorted ascending, each name glued to its value.
	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write([]byte("amount9990apiKeyabccommerceOrderoc-1"))
	want := hex.EncodeToString(mac.Sum(nil))

	if got != want {
		t.Fatalf("signature mismatch: got %s want %s", got, want)
	}
}

func TestSignIsOrderIndependent(t *testing.T) {
	signer, err := NewSigner("s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := signer.Sign(map[string]string{"b": "2", "a": "1", "c": "3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := signer.Sign(map[string]string{"c": "3", "a": "1", "b": "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("same params must sign identically: %s vs %s", first, second)
	}
}

func TestSignChangesWithAnyValue(t *testing.T) {
	signer, err := NewSigner("s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	base, err := signer.Sign(map[string]string{"token": "tok-1", "apiKey": "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	changed, err := signer.Sign(map[string]string{"token": "tok-2", "apiKey": "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base == changed {
		t.Fatal("different values must produce different signatures")
	}
}
