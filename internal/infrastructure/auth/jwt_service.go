package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/you/clientcore/domain"
)

// baseClaims holds the registered claims shared by access and refresh
// tokens. aud is a single string on the wire.
type baseClaims struct {
	ID        string           `json:"jti"`
	Subject   string           `json:"sub"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
	Issuer    string           `json:"iss"`
	Audience  string           `json:"aud"`
}

func (c baseClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c baseClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c baseClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c baseClaims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c baseClaims) GetSubject() (string, error)                  { return c.Subject, nil }
func (c baseClaims) GetAudience() (jwt.ClaimStrings, error) {
	if c.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{c.Audience}, nil
}

type accessTokenClaims struct {
	baseClaims
	SessionID string     `json:"sid"`
	RoleID    *uuid.UUID `json:"role_id,omitempty"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
	// Type is never set on access tokens; a non-empty value on decode
	// means a refresh token was presented.
	Type string `json:"type,omitempty"`
}

type refreshTokenClaims struct {
	baseClaims
	Type      string     `json:"type"`
	RoleID    *uuid.UUID `json:"role_id,omitempty"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
}

// JWTServiceImpl implements domain.TokenService with HS256
type JWTServiceImpl struct {
	secretKey []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	now       func() time.Time
}

// JWTOption customises a JWTServiceImpl
type JWTOption func(*JWTServiceImpl)

// WithClock overrides the time source used for iat/exp and expiry checks
func WithClock(now func() time.Time) JWTOption {
	return func(j *JWTServiceImpl) { j.now = now }
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey, issuer, audience string, accessTTL time.Duration, opts ...JWTOption) domain.TokenService {
	j := &JWTServiceImpl{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// AccessTTL implements domain.TokenService
func (j *JWTServiceImpl) AccessTTL() time.Duration { return j.accessTTL }

// IssueAccess implements domain.TokenService
func (j *JWTServiceImpl) IssueAccess(subject string, companyID, roleID *uuid.UUID, jti, sid string) (string, error) {
	now := j.now()
	claims := accessTokenClaims{
		baseClaims: baseClaims{
			ID:        jti,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTTL)),
			Issuer:    j.issuer,
			Audience:  j.audience,
		},
		SessionID: sid,
		RoleID:    optionalID(roleID),
		CompanyID: optionalID(companyID),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
}

// IssueRefresh implements domain.TokenService. The expiry is chosen by the
// caller so rotation can shorten or extend the lifetime.
func (j *JWTServiceImpl) IssueRefresh(subject, jti string, expiry time.Time, companyID, roleID *uuid.UUID) (string, error) {
	claims := refreshTokenClaims{
		baseClaims: baseClaims{
			ID:        jti,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(j.now()),
			ExpiresAt: jwt.NewNumericDate(expiry),
			Issuer:    j.issuer,
			Audience:  j.audience,
		},
		Type:      domain.RefreshTokenType,
		RoleID:    optionalID(roleID),
		CompanyID: optionalID(companyID),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
}

// DecodeAccess implements domain.TokenService
func (j *JWTServiceImpl) DecodeAccess(tokenString string) (*domain.AccessClaims, error) {
	var claims accessTokenClaims
	if _, err := j.parser().ParseWithClaims(tokenString, &claims, j.keyFunc); err != nil {
		return nil, classify(err)
	}

	// The parser already enforced exp; check again against our own clock.
	if claims.ExpiresAt.Time.Before(j.now()) {
		return nil, domain.ErrTokenExpired
	}
	if claims.Type != "" || claims.SessionID == "" {
		return nil, domain.ErrTokenInvalid
	}

	return &domain.AccessClaims{
		ID:        claims.ID,
		SessionID: claims.SessionID,
		Subject:   claims.Subject,
		IssuedAt:  timeOf(claims.IssuedAt),
		ExpiresAt: claims.ExpiresAt.Time,
		Issuer:    claims.Issuer,
		Audience:  claims.Audience,
		RoleID:    claims.RoleID,
		CompanyID: claims.CompanyID,
	}, nil
}

// DecodeRefresh implements domain.TokenService. With allowExpired the
// signature, issuer, audience and type are still enforced; only expiry is
// skipped. That path must never feed an authorization decision.
func (j *JWTServiceImpl) DecodeRefresh(tokenString string, allowExpired bool) (*domain.RefreshClaims, error) {
	var claims refreshTokenClaims
	if allowExpired {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		)
		if _, err := parser.ParseWithClaims(tokenString, &claims, j.keyFunc); err != nil {
			return nil, domain.ErrTokenInvalid
		}
		if claims.Issuer != j.issuer || claims.Audience != j.audience || claims.ExpiresAt == nil {
			return nil, domain.ErrTokenInvalid
		}
	} else {
		if _, err := j.parser().ParseWithClaims(tokenString, &claims, j.keyFunc); err != nil {
			return nil, classify(err)
		}
		if claims.ExpiresAt.Time.Before(j.now()) {
			return nil, domain.ErrTokenExpired
		}
	}

	if claims.Type != domain.RefreshTokenType {
		return nil, domain.ErrTokenInvalid
	}

	return &domain.RefreshClaims{
		ID:        claims.ID,
		Subject:   claims.Subject,
		Type:      claims.Type,
		IssuedAt:  timeOf(claims.IssuedAt),
		ExpiresAt: claims.ExpiresAt.Time,
		Issuer:    claims.Issuer,
		Audience:  claims.Audience,
		RoleID:    claims.RoleID,
		CompanyID: claims.CompanyID,
	}, nil
}

func (j *JWTServiceImpl) parser() *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
}

func (j *JWTServiceImpl) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, domain.ErrTokenInvalid
	}
	return j.secretKey, nil
}

// classify maps parser errors onto the token taxonomy. Only a token whose
// sole problem is its age is reported as expired.
func classify(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) &&
		!errors.Is(err, jwt.ErrTokenInvalidIssuer) &&
		!errors.Is(err, jwt.ErrTokenInvalidAudience) {
		return domain.ErrTokenExpired
	}
	return domain.ErrTokenInvalid
}

func optionalID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	v := *id
	return &v
}

func timeOf(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
