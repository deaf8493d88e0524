package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository is the narrow credential store the auth core needs.
// Email and username are unique; Insert returns ErrUserAlreadyExists on a
// duplicate.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Insert(ctx context.Context, user *User) error
}

// OTPChallengeStore holds in-flight OTP challenges keyed by target.
// Reserve and Consume are atomic per target.
type OTPChallengeStore interface {
	// Save replaces any existing challenge for the target.
	Save(ctx context.Context, challenge *OTPChallenge) error
	// Reserve takes one attempt from the challenge and returns it. It fails
	// with ErrOTPNotFound, ErrOTPExpired or ErrOTPMaxAttempts, deleting the
	// challenge in the last two cases.
	Reserve(ctx context.Context, target string, now time.Time) (*OTPChallenge, error)
	// Consume deletes the challenge; false means another caller got there first.
	Consume(ctx context.Context, target string) (bool, error)
	Delete(ctx context.Context, target string) error
	// Throttle marks target as recently served for window and reports
	// whether it was free. A zero window always returns true.
	Throttle(ctx context.Context, target string, window time.Duration) (bool, error)
	// ReleaseThrottle frees target before its window ends.
	ReleaseThrottle(ctx context.Context, target string) error
}

// AuthService defines authentication business logic
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*User, error)
	LoginWithPassword(ctx context.Context, email, password string) (*AuthResult, error)
	IssueRefreshToken(ctx context.Context, result *AuthResult) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthResult, error)
}

// OTPService defines OTP login operations
type OTPService interface {
	RequestOTP(ctx context.Context, email string) (*OTPDispatch, error)
	VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error)
}

// PasswordService hashes and verifies secrets (passwords and OTP codes)
type PasswordService interface {
	Hash(secret string) (string, error)
	Verify(hashed, secret string) bool
}

// TokenService signs and verifies access and refresh tokens
type TokenService interface {
	IssueAccess(subject string, companyID, roleID *uuid.UUID, jti, sid string) (string, error)
	IssueRefresh(subject, jti string, expiry time.Time, companyID, roleID *uuid.UUID) (string, error)
	DecodeAccess(token string) (*AccessClaims, error)
	DecodeRefresh(token string, allowExpired bool) (*RefreshClaims, error)
	AccessTTL() time.Duration
}

// NotificationService defines notification operations
type NotificationService interface {
	SendSMS(ctx context.Context, to, message string) error
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}
