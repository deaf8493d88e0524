package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the credential record of a client. PasswordHash only ever holds
// bcrypt output.
type User struct {
	ID            uuid.UUID
	Email         string
	Username      string
	Name          string
	Phone         string
	Address       string
	Country       string
	RoleInCompany string
	PasswordHash  string
	RoleID        *uuid.UUID
	CompanyID     *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RegisterInput carries the fields accepted on registration
type RegisterInput struct {
	Email         string
	Username      string
	Password      string
	Name          string
	Phone         string
	Address       string
	Country       string
	RoleInCompany string
	CompanyID     *uuid.UUID
}

// AuthResult represents authentication outcome
type AuthResult struct {
	User             *User
	Subject          string
	AccessToken      string
	RefreshToken     string
	SessionID        string
	ExpiresIn        int64
	RefreshExpiresAt time.Time
	RoleID           *uuid.UUID
	CompanyID        *uuid.UUID
}

// OTPChallenge is an in-flight one-time-code verification for one target.
// Only the bcrypt hash of the code is kept.
type OTPChallenge struct {
	Target       string    `json:"target"`
	CodeHash     string    `json:"code_hash"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	AttemptsLeft int       `json:"attempts_left"`
	Consumed     bool      `json:"consumed"`
}

// Expired reports whether the challenge is past its expiry at now.
func (c *OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// OTPDispatch describes an issued challenge without the code itself
type OTPDispatch struct {
	Target    string
	Channel   string
	ExpiresAt time.Time
	Attempts  int
}

// AccessClaims are the decoded claims of an access token
type AccessClaims struct {
	ID        string
	SessionID string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
	Audience  string
	RoleID    *uuid.UUID
	CompanyID *uuid.UUID
}

// RefreshClaims are the decoded claims of a refresh token
type RefreshClaims struct {
	ID        string
	Subject   string
	Type      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
	Audience  string
	RoleID    *uuid.UUID
	CompanyID *uuid.UUID
}

// RefreshTokenType is the "type" marker carried by refresh tokens
const RefreshTokenType = "refresh"
