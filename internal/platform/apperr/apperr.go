// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

/*
Package apperr defines the centralized error handling framework for the gateway.

It provides a rich error type that bridges the gap between low-level Storage/Provider
errors and the localized chat messages shown to connected clients.

Architecture:

  - AppError: A struct containing a machine-readable Code and a translation key.
  - Localization: The TranslationKey is resolved against the read-cache in the
    client's own locale before being sent.
  - Mapping: Handlers translate every AppError into a chat message; only
    unexpected errors propagate to the per-connection recovery path.

Every error that leaves a handler or service should be wrapped as an [AppError]
to ensure clients never see internal detail.
*/
package apperr

import (
	"errors"
)

// Code classifies a failure per the gateway's error taxonomy.
type Code string

const (
	// CodeFraming marks a malformed wire frame. The frame is dropped; the
	// connection survives.
	CodeFraming Code = "FRAMING"

	// CodeUnauthorized marks a handler precondition failure (not authed,
	// not admin). No state change occurs.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeValidation marks entity fields out of bounds. The mutation is
	// rejected with no partial write.
	CodeValidation Code = "VALIDATION"

	// CodeAuthFailed marks any verification failure. Deliberately generic:
	// the client is never told which check failed.
	CodeAuthFailed Code = "AUTH_FAILED"

	// CodeSecurity marks an identity mismatch on an already-trusted path.
	// The connection is force-disabled and standing credentials purged.
	CodeSecurity Code = "SECURITY"

	// CodeRateLimited marks an admission-control rejection (handshake throttle).
	CodeRateLimited Code = "RATE_LIMITED"

	// CodeUnavailable marks a transient store/cache failure. The user is
	// told to retry shortly.
	CodeUnavailable Code = "UNAVAILABLE"

	// CodeNotFound marks a missing entity or token.
	CodeNotFound Code = "NOT_FOUND"
)

// AppError is the canonical error type for the gateway.
//
// It carries a machine-readable code, a translation key resolved in the
// client's locale, and an optional wrapped cause.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is the machine-readable error classification.
	Code Code
	// TranslationKey names the localized message shown to the client.
	TranslationKey string
	// Cause is the underlying error, used for server-side logging only.
	Cause error
}

// Error implements the error interface. It returns the translation key, which
// doubles as a safe fallback message when no translation exists.
func (e *AppError) Error() string { return string(e.Code) + ": " + e.TranslationKey }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Constructors

// NotFound creates an [AppError] for a missing entity or token.
func NotFound(translationKey string) *AppError {
	return &AppError{Code: CodeNotFound, TranslationKey: translationKey}
}

// Unauthorized creates an [AppError] for a failed handler precondition.
func Unauthorized() *AppError {
	return &AppError{Code: CodeUnauthorized, TranslationKey: "loadout.noPermission"}
}

// Validation creates an [AppError] for a rejected mutation.
func Validation(translationKey string) *AppError {
	return &AppError{Code: CodeValidation, TranslationKey: translationKey}
}

// AuthFailed creates the generic verification-failure [AppError].
func AuthFailed(cause error) *AppError {
	return &AppError{Code: CodeAuthFailed, TranslationKey: "loadout.authFailed", Cause: cause}
}

// Security creates an [AppError] for a detected identity mismatch.
func Security(cause error) *AppError {
	return &AppError{Code: CodeSecurity, TranslationKey: "loadout.securityViolation", Cause: cause}
}

// RateLimited creates an [AppError] for the handshake throttle.
func RateLimited() *AppError {
	return &AppError{Code: CodeRateLimited, TranslationKey: "loadout.tooFast"}
}

// Unavailable creates an [AppError] for transient infrastructure failures.
func Unavailable(cause error) *AppError {
	return &AppError{Code: CodeUnavailable, TranslationKey: "loadout.tryAgain", Cause: cause}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err carries the given classification.
func HasCode(err error, code Code) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
