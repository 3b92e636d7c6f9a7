// Copyright (c) 2026 Hydroline. All rights reserved.
// Author: Hydroline Services Team

/*
Package apperr defines the centralized error handling framework for Hydroline.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable Code and a client-safe message.
  - Taxonomy: Identity failures (credentials, tokens, sessions, RBAC) have their
    own codes so callers and tests can tell them apart without string matching.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Error Codes

const (
	CodeNotFound               = "NOT_FOUND"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeForbidden              = "FORBIDDEN"
	CodeConflict               = "CONFLICT"
	CodeValidation             = "VALIDATION_ERROR"
	CodeRateLimited            = "RATE_LIMITED"
	CodeInternal               = "INTERNAL_ERROR"
	CodeServiceUnavailable     = "SERVICE_UNAVAILABLE"
	CodeBadCredentials         = "BAD_CREDENTIALS"
	CodeAccountDisabled        = "ACCOUNT_DISABLED"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeTokenExpired           = "TOKEN_EXPIRED"
	CodeTokenInvalidated       = "TOKEN_INVALIDATED"
	CodeSessionRevoked         = "SESSION_REVOKED"
	CodeInsufficientRole       = "INSUFFICIENT_ROLE"
	CodeInsufficientPermission = "INSUFFICIENT_PERMISSION"
	CodeFeatureDisabled        = "FEATURE_DISABLED"
	CodeMisconfigured          = "MISCONFIGURED"
	CodeUnknownTarget          = "UNKNOWN_TARGET"
	CodeNoPasswordSet          = "NO_PASSWORD_SET"
	CodeWrongPassword          = "WRONG_PASSWORD"
)

// AppError is the canonical error type for the Hydroline API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "CONFLICT").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// WithStatus returns a copy of the error answering with a different HTTP status.
//
// The refresh endpoint uses it to surface token failures as 400 instead of 401.
func (e *AppError) WithStatus(status int) *AppError {
	clone := *e
	clone.HTTPStatus = status
	return &clone
}

func newError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Message: msg, HTTPStatus: status}
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Session") // Returns "Session not found"
func NotFound(resource string) *AppError {
	return newError(CodeNotFound, http.StatusNotFound, resource+" not found")
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, msg)
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return newError(CodeForbidden, http.StatusForbidden, msg)
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return newError(CodeConflict, http.StatusConflict, msg)
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	err := newError(CodeValidation, http.StatusBadRequest, msg)
	err.Details = details
	return err
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return newError(CodeRateLimited, http.StatusTooManyRequests,
		fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds))
}

// # Identity Errors

// BadCredentials never says whether the account exists.
func BadCredentials() *AppError {
	return newError(CodeBadCredentials, http.StatusUnauthorized, "Invalid username or password")
}

// AccountDisabled is returned once the credentials are known to be correct.
func AccountDisabled() *AppError {
	return newError(CodeAccountDisabled, http.StatusForbidden, "Account is disabled")
}

// InvalidToken covers malformed, unsigned and wrong-secret tokens.
func InvalidToken(msg string) *AppError {
	return newError(CodeInvalidToken, http.StatusUnauthorized, msg)
}

// TokenExpired means the signature is fine but the token is past its expiry.
func TokenExpired() *AppError {
	return newError(CodeTokenExpired, http.StatusUnauthorized, "Token has expired")
}

// TokenInvalidated means the token-version stamp is stale.
func TokenInvalidated() *AppError {
	return newError(CodeTokenInvalidated, http.StatusUnauthorized, "Token is no longer valid, please log in again")
}

// SessionRevoked means the session behind the jti is gone or inactive.
func SessionRevoked() *AppError {
	return newError(CodeSessionRevoked, http.StatusUnauthorized, "Session has been revoked, please log in again")
}

// InsufficientRole creates a 403 naming the roles that would have been accepted.
func InsufficientRole(msg string) *AppError {
	return newError(CodeInsufficientRole, http.StatusForbidden, msg)
}

// InsufficientPermission creates a 403 naming the missing permissions.
func InsufficientPermission(msg string) *AppError {
	return newError(CodeInsufficientPermission, http.StatusForbidden, msg)
}

// FeatureDisabled reports a feature switched off in configuration.
func FeatureDisabled(msg string) *AppError {
	return newError(CodeFeatureDisabled, http.StatusBadRequest, msg)
}

// Misconfigured reports a feature that is enabled but missing settings.
func Misconfigured(msg string) *AppError {
	return newError(CodeMisconfigured, http.StatusBadRequest, msg)
}

// UnknownTarget reports a lookup key outside an allow-list.
func UnknownTarget(msg string) *AppError {
	return newError(CodeUnknownTarget, http.StatusBadRequest, msg)
}

// NoPasswordSet is returned for externally provisioned accounts.
func NoPasswordSet() *AppError {
	return newError(CodeNoPasswordSet, http.StatusBadRequest, "This account has no password, sign in with a linked provider")
}

// WrongPassword is returned when the current password does not match.
func WrongPassword() *AppError {
	return newError(CodeWrongPassword, http.StatusBadRequest, "Current password is incorrect")
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	err := newError(CodeInternal, http.StatusInternalServerError, "An unexpected error occurred")
	err.Cause = cause
	return err
}

// ServiceUnavailable creates a 503 [AppError] for an unavailable dependency.
func ServiceUnavailable(msg string) *AppError {
	return newError(CodeServiceUnavailable, http.StatusServiceUnavailable, msg)
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

// HasCode reports whether err carries an [*AppError] with the given code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}

// IsNotFound reports whether err is a NOT_FOUND [*AppError].
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}
