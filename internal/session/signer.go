// Package session provides tamper-evident session handling: an HMAC-SHA256
// signer for state that leaves the server, and a Redis-backed store for
// session data and one-shot flash messages.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrInvalidSignature is returned for any verification failure. It is
// deliberately opaque: callers never learn why verification failed.
var ErrInvalidSignature = errors.New("invalid signature")

// Signer computes and verifies HMAC-SHA256 tags over byte payloads using a
// long-lived server secret.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer from the server secret
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Sign returns the HMAC-SHA256 tag of the payload.
func (s *Signer) Sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignHex returns the tag hex-encoded for use in URLs and cookies.
func (s *Signer) SignHex(payload []byte) string {
	return hex.EncodeToString(s.Sign(payload))
}

// Verify recomputes the tag and compares it in constant time.
func (s *Signer) Verify(payload, tag []byte) error {
	if !hmac.Equal(s.Sign(payload), tag) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyHex verifies a hex-encoded tag against the payload.
func (s *Signer) VerifyHex(payload []byte, tagHex string) error {
	tag, err := hex.DecodeString(tagHex)
	if err != nil {
		return ErrInvalidSignature
	}
	return s.Verify(payload, tag)
}
