package domain

import "errors"

// Kind classifies a failure for the route layer. Every error that leaves
// the services package is one of these kinds or an internal fault.
type Kind string

const (
	KindConflict        Kind = "CONFLICT"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindNotFound        Kind = "NOT_FOUND"
	KindExpired         Kind = "EXPIRED"
	KindTooManyAttempts Kind = "TOO_MANY_ATTEMPTS"
	KindInvalidToken    Kind = "INVALID_TOKEN"
	KindValidation      Kind = "VALIDATION_ERROR"
	KindInternal        Kind = "INTERNAL_ERROR"
)

// Error is a classified, user-safe failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Authentication errors
var (
	ErrUserNotFound       = newError(KindNotFound, "user not found")
	ErrInvalidCredentials = newError(KindUnauthorized, "invalid credentials")
	ErrUserAlreadyExists  = newError(KindConflict, "user already exists")
	ErrPasswordTooLong    = newError(KindValidation, "password must be at most 72 bytes")
)

// MaxPasswordBytes is the longest secret bcrypt accepts
const MaxPasswordBytes = 72

// OTP errors
var (
	ErrOTPExpired     = newError(KindExpired, "otp has expired")
	ErrOTPInvalid     = newError(KindUnauthorized, "invalid otp code")
	ErrOTPMaxAttempts = newError(KindTooManyAttempts, "maximum otp attempts exceeded")
	ErrOTPNotFound    = newError(KindNotFound, "otp not found")
	ErrOTPResendLimit = newError(KindTooManyAttempts, "otp resend limit exceeded")
)

// Token errors
var (
	ErrTokenInvalid = newError(KindInvalidToken, "invalid token")
	ErrTokenExpired = newError(KindExpired, "token has expired")

	// ErrAccessTokenExpired is what a protected route reports for an
	// expired bearer token.
	ErrAccessTokenExpired = newError(KindUnauthorized, "access token has expired")
)
