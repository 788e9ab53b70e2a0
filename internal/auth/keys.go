package auth

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key purposes. Service tokens and webhook signatures must never share a
// signing key, even though both derive from the one configured secret.
const (
	PurposeServiceToken = "docbridge/service-token/v1"
	PurposeWebhook      = "docbridge/webhook-signature/v1"
)

// DeriveKey expands the shared secret into a purpose-bound 32-byte key via
// HKDF-SHA256.
func DeriveKey(secret, purpose string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}
