package domain

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/rivo/uniseg"
)

// ValidationError reports input that failed domain validation. It never
// touches storage and maps to a 400-class response at the HTTP boundary.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// maxNameGraphemes is the upper bound on subscriber name length, counted in
// Unicode grapheme clusters rather than bytes or runes.
const maxNameGraphemes = 256

// forbiddenNameCharacters are rejected anywhere in a subscriber name.
const forbiddenNameCharacters = `/()<>\{}`

// SubscriberName is a validated subscriber display name. The zero value is
// not valid; use ParseSubscriberName.
type SubscriberName struct {
	value string
}

// ParseSubscriberName validates a raw name string. It fails when the input
// is empty or whitespace-only, longer than 256 grapheme clusters, or
// contains one of the forbidden characters.
func ParseSubscriberName(raw string) (SubscriberName, error) {
	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if uniseg.GraphemeClusterCount(raw) > maxNameGraphemes {
		return SubscriberName{}, &ValidationError{
			Field:  "name",
			Reason: fmt.Sprintf("must not exceed %d characters", maxNameGraphemes),
		}
	}
	if strings.ContainsAny(raw, forbiddenNameCharacters) {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "contains a forbidden character"}
	}
	return SubscriberName{value: raw}, nil
}

// String returns the validated name.
func (n SubscriberName) String() string { return n.value }

// SubscriberEmail is a validated email address. The zero value is not
// valid; use ParseSubscriberEmail.
type SubscriberEmail struct {
	value string
}

// ParseSubscriberEmail validates a raw email string against an RFC 5322
// address grammar plus the structural checks a mail gateway expects
// (single @, non-empty local part, dotted domain).
func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "must not be empty"}
	}

	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "is not a valid email address"}
	}

	parts := strings.Split(trimmed, "@")
	if len(parts) != 2 {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "is not a valid email address"}
	}
	local, dom := parts[0], parts[1]
	if len(local) == 0 || len(local) > 64 {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "local part out of range"}
	}
	if !strings.Contains(dom, ".") {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "domain is missing a dot"}
	}
	return SubscriberEmail{value: trimmed}, nil
}

// String returns the validated address.
func (e SubscriberEmail) String() string { return e.value }

// NewSubscriber aggregates a validated name and email. It can only be built
// from validated parts, never from raw strings directly.
type NewSubscriber struct {
	Name  SubscriberName
	Email SubscriberEmail
}

// NewSubscriberFromRaw parses both fields and returns the first validation
// failure, if any.
func NewSubscriberFromRaw(nameRaw, emailRaw string) (NewSubscriber, error) {
	name, err := ParseSubscriberName(nameRaw)
	if err != nil {
		return NewSubscriber{}, err
	}
	email, err := ParseSubscriberEmail(emailRaw)
	if err != nil {
		return NewSubscriber{}, err
	}
	return NewSubscriber{Name: name, Email: email}, nil
}
