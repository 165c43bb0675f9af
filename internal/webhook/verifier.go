// Package webhook authenticates payment gateway callbacks.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"time"
)

const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingHeader     = errors.New("webhook: missing signature header")
	ErrBadTimestamp      = errors.New("webhook: malformed timestamp")
	ErrStaleTimestamp    = errors.New("webhook: timestamp outside tolerance")
	ErrSignatureMismatch = errors.New("webhook: signature mismatch")
)

// Verifier checks gateway signatures. The signed string is
// "{eventID}.{timestamp}.{body}", MACed with HMAC-SHA256 and encoded as
// standard base64.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	nowFn     func() time.Time
}

// NewVerifier returns a Verifier for the shared secret. A zero tolerance
// falls back to DefaultTolerance.
func NewVerifier(secret string, tolerance time.Duration, nowFn func() time.Time) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Verifier{secret: []byte(secret), tolerance: tolerance, nowFn: nowFn}
}

// Verify validates the signature and timestamp for one delivery. The raw
// body must be the exact bytes received, before any JSON decoding.
func (verifier *Verifier) Verify(eventID string, timestamp string, signature string, body []byte) error {
	if eventID == "" || timestamp == "" || signature == "" {
		return ErrMissingHeader
	}
	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrBadTimestamp
	}
	drift := verifier.nowFn().Unix() - unix
	if drift < 0 {
		drift = -drift
	}
	if time.Duration(drift)*time.Second > verifier.tolerance {
		return ErrStaleTimestamp
	}
	expected := verifier.Sign(eventID, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign computes the signature the gateway is expected to send. Exposed so
// tests and sandbox tooling can produce valid deliveries.
func (verifier *Verifier) Sign(eventID string, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, verifier.secret)
	mac.Write([]byte(eventID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
