package mocks

import (
	"context"

	"github.com/you/clientcore/domain"
)

// MockUserRepository implements domain.UserRepository interface for testing
type MockUserRepository struct {
	FindByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
	InsertFunc      func(ctx context.Context, user *domain.User) error
}

// NewMockUserRepository creates a new MockUserRepository with default behaviors
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

// FindByEmail finds a user by email
func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	// Default behavior: not found
	return nil, domain.ErrUserNotFound
}

// Insert stores a new user
func (m *MockUserRepository) Insert(ctx context.Context, user *domain.User) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, user)
	}
	// Default behavior: success
	return nil
}

// Compile-time interface compliance verification
var _ domain.UserRepository = (*MockUserRepository)(nil)
