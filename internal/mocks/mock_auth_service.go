package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/you/clientcore/domain"
)

// MockAuthService implements domain.AuthService interface for testing
type MockAuthService struct {
	RegisterFunc           func(ctx context.Context, in domain.RegisterInput) (*domain.User, error)
	LoginWithPasswordFunc  func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	IssueRefreshTokenFunc  func(ctx context.Context, result *domain.AuthResult) error
	RefreshAccessTokenFunc func(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
}

// NewMockAuthService creates a new MockAuthService with default behaviors
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

// Register registers a new user
func (m *MockAuthService) Register(ctx context.Context, in domain.RegisterInput) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	// Default behavior: return a mock user
	return &domain.User{
		ID:           uuid.New(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: "hashed_" + in.Password,
		CompanyID:    in.CompanyID,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}, nil
}

// LoginWithPassword authenticates a user and returns auth result
func (m *MockAuthService) LoginWithPassword(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if m.LoginWithPasswordFunc != nil {
		return m.LoginWithPasswordFunc(ctx, email, password)
	}
	// Default behavior: return successful auth result
	return &domain.AuthResult{
		Subject:     "mock-subject",
		AccessToken: "mock_access_token",
		SessionID:   "mock-session",
		ExpiresIn:   30 * 60,
	}, nil
}

// IssueRefreshToken attaches a refresh token to the result
func (m *MockAuthService) IssueRefreshToken(ctx context.Context, result *domain.AuthResult) error {
	if m.IssueRefreshTokenFunc != nil {
		return m.IssueRefreshTokenFunc(ctx, result)
	}
	// Default behavior: attach a mock refresh token
	result.RefreshToken = "mock_refresh_token"
	result.RefreshExpiresAt = time.Now().Add(24 * time.Hour)
	return nil
}

// RefreshAccessToken rotates a refresh token
func (m *MockAuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if m.RefreshAccessTokenFunc != nil {
		return m.RefreshAccessTokenFunc(ctx, refreshToken)
	}
	// Default behavior: return new token pair
	return &domain.AuthResult{
		Subject:      "mock-subject",
		AccessToken:  "new_mock_access_token",
		RefreshToken: "new_mock_refresh_token",
		SessionID:    "mock-session",
		ExpiresIn:    30 * 60,
	}, nil
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)
