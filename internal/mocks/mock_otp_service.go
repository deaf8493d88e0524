package mocks

import (
	"context"
	"time"

	"github.com/you/clientcore/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	RequestOTPFunc func(ctx context.Context, email string) (*domain.OTPDispatch, error)
	VerifyOTPFunc  func(ctx context.Context, email, code string) (*domain.AuthResult, error)
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// RequestOTP issues a challenge for the given email
func (m *MockOTPService) RequestOTP(ctx context.Context, email string) (*domain.OTPDispatch, error) {
	if m.RequestOTPFunc != nil {
		return m.RequestOTPFunc(ctx, email)
	}
	// Default behavior: pretend the code went out by email
	return &domain.OTPDispatch{
		Target:    email,
		Channel:   "email",
		ExpiresAt: time.Now().Add(3 * time.Minute),
		Attempts:  3,
	}, nil
}

// VerifyOTP verifies an OTP code for the given email
func (m *MockOTPService) VerifyOTP(ctx context.Context, email, code string) (*domain.AuthResult, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, email, code)
	}
	// Default behavior: accept "123456" as valid OTP
	if code != "123456" {
		return nil, domain.ErrOTPInvalid
	}
	return &domain.AuthResult{
		Subject:     "mock-subject",
		AccessToken: "mock_access_token",
		SessionID:   "mock-session",
		ExpiresIn:   30 * 60,
	}, nil
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
