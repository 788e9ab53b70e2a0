// Package webhook authenticates inbound Plane events: an HMAC signature over
// the raw body, a bounded-age timestamp, and a per-delivery replay check.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

// Headers the sender must set on every delivery.
const (
	HeaderSignature = "X-Plane-Signature"
	HeaderTimestamp = "X-Plane-Timestamp"
	HeaderDelivery  = "X-Plane-Delivery"
)

var (
	ErrBadSignature = errors.New("webhook signature mismatch")
	ErrStaleEvent   = errors.New("webhook timestamp outside replay window")
	ErrMissingField = errors.New("webhook missing signature headers")
)

// Verifier checks webhook authenticity. The signing key must be the
// webhook-purpose derived key, never the raw shared secret.
type Verifier struct {
	key    []byte
	window time.Duration
}

func NewVerifier(key []byte, window time.Duration) *Verifier {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Verifier{key: key, window: window}
}

// Signature computes the hex HMAC-SHA256 of timestamp + "." + body. The
// timestamp is bound into the MAC so an attacker cannot re-send an old body
// with a fresh timestamp.
func (v *Verifier) Signature(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature and the timestamp freshness at the given now.
func (v *Verifier) Verify(body []byte, signature, timestamp string, now time.Time) error {
	if signature == "" || timestamp == "" {
		return ErrMissingField
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrStaleEvent
	}
	age := now.Sub(time.Unix(unix, 0))
	if age > v.window || age < -v.window {
		return ErrStaleEvent
	}

	expected := v.Signature(timestamp, body)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrBadSignature
	}
	return nil
}
