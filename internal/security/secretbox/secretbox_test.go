package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

func setKey(t *testing.T, seed byte) {
	t.Helper()
	UnsafeResetForTests()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	t.Setenv("SECRETBOX_MASTER_KEY", base64.StdEncoding.EncodeToString(raw))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	setKey(t, 1)

	msg := "p@ssw0rd for tenant acme ✓"
	ct, err := Encrypt(msg)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if pt != msg {
		t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
	}
}

func TestDecryptDetectsTamper(t *testing.T) {
	setKey(t, 9)

	ct, err := Encrypt("top secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	parts := strings.Split(ct, "|")
	if len(parts) != 2 {
		t.Fatalf("unexpected format: %q", ct)
	}
	bs, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	bs[0] ^= 0xff
	tampered := parts[0] + "|" + base64.StdEncoding.EncodeToString(bs)

	if _, err := Decrypt(tampered); err == nil {
		t.Fatal("expected decrypt failure on tampered ciphertext")
	}
}

func TestMissingMasterKey(t *testing.T) {
	UnsafeResetForTests()
	t.Setenv("SECRETBOX_MASTER_KEY", "")

	if _, err := Encrypt("x"); err == nil {
		t.Fatal("expected error with unset master key")
	}
	if Ready() {
		t.Fatal("Ready must be false without a key")
	}
}
