package mocks

import (
	"time"

	"github.com/google/uuid"
	"github.com/you/clientcore/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	IssueAccessFunc   func(subject string, companyID, roleID *uuid.UUID, jti, sid string) (string, error)
	IssueRefreshFunc  func(subject, jti string, expiry time.Time, companyID, roleID *uuid.UUID) (string, error)
	DecodeAccessFunc  func(token string) (*domain.AccessClaims, error)
	DecodeRefreshFunc func(token string, allowExpired bool) (*domain.RefreshClaims, error)
	TTL               time.Duration
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{TTL: 30 * time.Minute}
}

// IssueAccess issues an access token
func (m *MockTokenService) IssueAccess(subject string, companyID, roleID *uuid.UUID, jti, sid string) (string, error) {
	if m.IssueAccessFunc != nil {
		return m.IssueAccessFunc(subject, companyID, roleID, jti, sid)
	}
	// Default behavior: return mock token
	return "mock_access_token_" + subject, nil
}

// IssueRefresh issues a refresh token
func (m *MockTokenService) IssueRefresh(subject, jti string, expiry time.Time, companyID, roleID *uuid.UUID) (string, error) {
	if m.IssueRefreshFunc != nil {
		return m.IssueRefreshFunc(subject, jti, expiry, companyID, roleID)
	}
	// Default behavior: return mock token
	return "mock_refresh_token_" + subject, nil
}

// DecodeAccess decodes an access token
func (m *MockTokenService) DecodeAccess(token string) (*domain.AccessClaims, error) {
	if m.DecodeAccessFunc != nil {
		return m.DecodeAccessFunc(token)
	}
	// Default behavior: reject
	return nil, domain.ErrTokenInvalid
}

// DecodeRefresh decodes a refresh token
func (m *MockTokenService) DecodeRefresh(token string, allowExpired bool) (*domain.RefreshClaims, error) {
	if m.DecodeRefreshFunc != nil {
		return m.DecodeRefreshFunc(token, allowExpired)
	}
	// Default behavior: reject
	return nil, domain.ErrTokenInvalid
}

// AccessTTL returns the configured access token lifetime
func (m *MockTokenService) AccessTTL() time.Duration {
	return m.TTL
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
