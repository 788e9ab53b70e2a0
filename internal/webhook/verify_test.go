package webhook

import (
	"strconv"
	"testing"
	"time"
)

func testVerifier() *Verifier {
	return NewVerifier([]byte("webhook-test-key"), 5*time.Minute)
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	v := testVerifier()
	now := time.Now()
	body := []byte(`{"project_id":"proj_1"}`)
	timestamp := strconv.FormatInt(now.Unix(), 10)

	signature := v.Signature(timestamp, body)
	if err := v.Verify(body, signature, timestamp, now); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	v := testVerifier()
	now := time.Now()
	timestamp := strconv.FormatInt(now.Unix(), 10)
	signature := v.Signature(timestamp, []byte(`{"project_id":"proj_1"}`))

	err := v.Verify([]byte(`{"project_id":"proj_2"}`), signature, timestamp, now)
	if err != ErrBadSignature {
		t.Errorf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	v := testVerifier()
	now := time.Now()
	body := []byte(`{}`)
	stale := strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10)
	signature := v.Signature(stale, body)

	if err := v.Verify(body, signature, stale, now); err != ErrStaleEvent {
		t.Errorf("expected ErrStaleEvent, got %v", err)
	}
}

func TestVerifyRejectsFreshTimestampOnOldBody(t *testing.T) {
	// Re-signing is impossible without the key, so moving the timestamp
	// forward must invalidate the original signature.
	v := testVerifier()
	now := time.Now()
	body := []byte(`{"project_id":"proj_1"}`)
	oldTimestamp := strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10)
	signature := v.Signature(oldTimestamp, body)
	freshTimestamp := strconv.FormatInt(now.Unix(), 10)

	if err := v.Verify(body, signature, freshTimestamp, now); err != ErrBadSignature {
		t.Errorf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	v := testVerifier()
	if err := v.Verify([]byte(`{}`), "", "123", time.Now()); err != ErrMissingField {
		t.Errorf("expected ErrMissingField for empty signature, got %v", err)
	}
	if err := v.Verify([]byte(`{}`), "sig", "", time.Now()); err != ErrMissingField {
		t.Errorf("expected ErrMissingField for empty timestamp, got %v", err)
	}
}

func TestVerifyRejectsNonNumericTimestamp(t *testing.T) {
	v := testVerifier()
	if err := v.Verify([]byte(`{}`), "sig", "yesterday", time.Now()); err != ErrStaleEvent {
		t.Errorf("expected ErrStaleEvent for unparsable timestamp, got %v", err)
	}
}
