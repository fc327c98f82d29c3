package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// AES-256-GCM sealed box for secrets stored in the control store
// (tenant db_password_enc). Wire format: base64(nonce)|base64(ciphertext).

const (
	masterKeyEnvVar   = "SECRETBOX_MASTER_KEY"
	nonceSizeGCM      = 12 // 96-bit nonce, the GCM recommendation
	requiredKeyLength = 32 // AES-256
	sep               = "|"
)

var (
	mu        sync.RWMutex
	masterKey []byte
	loadOnce  sync.Once
	loadErr   error
)

// ensureLoaded reads SECRETBOX_MASTER_KEY (base64, 32 bytes) exactly once.
func ensureLoaded() error {
	loadOnce.Do(func() {
		b64 := strings.TrimSpace(os.Getenv(masterKeyEnvVar))
		if b64 == "" {
			loadErr = fmt.Errorf("%s not set; generate one with: openssl rand -base64 32", masterKeyEnvVar)
			return
		}
		k, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			loadErr = fmt.Errorf("decode %s: %w", masterKeyEnvVar, err)
			return
		}
		if len(k) != requiredKeyLength {
			loadErr = fmt.Errorf("%s must decode to %d bytes, got %d", masterKeyEnvVar, requiredKeyLength, len(k))
			return
		}
		mu.Lock()
		masterKey = append([]byte(nil), k...)
		mu.Unlock()
	})
	return loadErr
}

// Ready reports whether the master key is available, loading it on first
// call. Used by readiness probes.
func Ready() bool {
	if err := ensureLoaded(); err != nil {
		return false
	}
	mu.RLock()
	defer mu.RUnlock()
	return len(masterKey) == requiredKeyLength
}

func gcm() (cipher.AEAD, error) {
	mu.RLock()
	key := append([]byte(nil), masterKey...)
	mu.RUnlock()

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under the master key.
func Encrypt(plaintext string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}
	aead, err := gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	ct := aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt opens a value produced by Encrypt.
func Decrypt(ciphertext string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	parts := strings.Split(ciphertext, sep)
	if len(parts) != 2 {
		return "", errors.New("bad format: expected base64(nonce)|base64(ciphertext)")
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	if len(nonce) != nonceSizeGCM {
		return "", fmt.Errorf("bad nonce length: want %d bytes, got %d", nonceSizeGCM, len(nonce))
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	aead, err := gcm()
	if err != nil {
		return "", err
	}
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", errors.New("decrypt failed: wrong key or tampered value")
	}
	return string(pt), nil
}

// UnsafeResetForTests clears the loaded key so tests can swap the env var.
// Never call this outside of _test files.
func UnsafeResetForTests() {
	mu.Lock()
	masterKey = nil
	mu.Unlock()
	loadOnce = sync.Once{}
	loadErr = nil
}
