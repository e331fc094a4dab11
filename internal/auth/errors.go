package auth

import (
	"errors"
	"fmt"
)

// Kind classifies authentication failures so flow boundaries can decide
// whether to abort, redirect or merely warn.
type Kind string

const (
	// KindNetwork means the request could not complete.
	KindNetwork Kind = "network_error"
	// KindRejectedCredentials means the backend explicitly denied the credentials.
	KindRejectedCredentials Kind = "rejected_credentials"
	// KindMissingCode means the SSO callback was reached without a uckey parameter.
	KindMissingCode Kind = "missing_code"
	// KindExchangeFailed means the verification endpoint rejected the uckey.
	KindExchangeFailed Kind = "exchange_failed"
	// KindConfigSync means login or logout succeeded locally but the provider
	// configuration push or clear failed. Non-fatal to the session.
	KindConfigSync Kind = "config_sync_error"
)

// Error is a classified authentication failure. Message is safe to display;
// the wrapped cause carries transport detail for logs.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "auth: unknown error"
	}
	if e.cause != nil {
		return fmt.Sprintf("auth: %s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("auth: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// NewError builds a classified error wrapping an optional cause.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the classification from err, or an empty Kind when err is
// not an auth error.
func KindOf(err error) Kind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return ""
}

// DisplayMessage returns the user-facing message for err, falling back to a
// generic failure string for unclassified errors.
func DisplayMessage(err error) string {
	var authErr *Error
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return "login verification failed"
}
