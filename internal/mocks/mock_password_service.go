package mocks

import "github.com/you/clientcore/domain"

// MockPasswordService implements domain.PasswordService interface for testing
type MockPasswordService struct {
	HashFunc   func(secret string) (string, error)
	VerifyFunc func(hashed, secret string) bool
}

// NewMockPasswordService creates a new MockPasswordService with default behaviors
func NewMockPasswordService() *MockPasswordService {
	return &MockPasswordService{}
}

// Hash generates a hash for the given secret
func (m *MockPasswordService) Hash(secret string) (string, error) {
	if m.HashFunc != nil {
		return m.HashFunc(secret)
	}
	// Default behavior: return simple hash (for testing only)
	return "hashed_" + secret, nil
}

// Verify verifies a secret against its hash
func (m *MockPasswordService) Verify(hashed, secret string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(hashed, secret)
	}
	// Default behavior: simple check for testing
	return hashed == "hashed_"+secret
}

// Compile-time interface compliance verification
var _ domain.PasswordService = (*MockPasswordService)(nil)
