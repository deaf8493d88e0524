package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/you/clientcore/domain"
	"github.com/you/clientcore/internal/infrastructure/auth"
	"github.com/you/clientcore/internal/infrastructure/repositories"
	"github.com/you/clientcore/internal/mocks"
	"golang.org/x/crypto/bcrypt"
)

const testOTPCode = "482913"

// testClock is a settable time source shared by a service under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// authDeps groups the collaborators of an AuthServiceImpl under test
type authDeps struct {
	userRepo    *mocks.MockUserRepository
	passwordSvc *mocks.MockPasswordService
	tokenSvc    *mocks.MockTokenService
	audit       *mocks.MockAuditLogger
	clock       *testClock
}

// createAuthServiceForTest creates an AuthService with mock dependencies for testing
func createAuthServiceForTest(t *testing.T, config AuthConfig) (domain.AuthService, *authDeps) {
	t.Helper()

	deps := &authDeps{
		userRepo:    mocks.NewMockUserRepository(),
		passwordSvc: mocks.NewMockPasswordService(),
		tokenSvc:    mocks.NewMockTokenService(),
		audit:       mocks.NewMockAuditLogger(),
		clock:       newTestClock(),
	}
	config.Clock = deps.clock.Now

	svc := NewAuthService(deps.userRepo, deps.passwordSvc, deps.tokenSvc, deps.audit, zerolog.Nop(), config)
	return svc, deps
}

// otpDeps groups the collaborators of an OTPServiceImpl under test
type otpDeps struct {
	userRepo        *mocks.MockUserRepository
	store           *repositories.MemoryOTPChallengeStore
	tokenSvc        *mocks.MockTokenService
	notificationSvc *mocks.MockNotificationService
	audit           *mocks.MockAuditLogger
	clock           *testClock
}

// createOTPServiceForTest wires an OTPService with a real in-memory
// challenge store, real bcrypt hashing and a fixed code generator.
func createOTPServiceForTest(t *testing.T, config OTPConfig) (*OTPServiceImpl, *otpDeps) {
	t.Helper()

	deps := &otpDeps{
		userRepo:        mocks.NewMockUserRepository(),
		store:           repositories.NewMemoryOTPChallengeStore(time.Hour),
		tokenSvc:        mocks.NewMockTokenService(),
		notificationSvc: mocks.NewMockNotificationService(),
		audit:           mocks.NewMockAuditLogger(),
		clock:           newTestClock(),
	}
	t.Cleanup(func() { deps.store.Close() })
	config.Clock = deps.clock.Now

	svc := NewOTPService(
		deps.userRepo,
		deps.store,
		auth.NewPasswordService(bcrypt.MinCost),
		deps.tokenSvc,
		deps.notificationSvc,
		deps.audit,
		zerolog.Nop(),
		config,
	).(*OTPServiceImpl)
	svc.generate = func(int) (string, error) { return testOTPCode, nil }

	return svc, deps
}

// createValidUser creates a valid user entity for testing
func createValidUser(t *testing.T) *domain.User {
	t.Helper()

	roleID := uuid.MustParse("6f1c2b1e-7a43-4f0e-9a52-3c1d2e4f5a6b")
	return &domain.User{
		ID:           uuid.MustParse("0b8f3d4e-1c2a-4b5d-8e6f-7a9b0c1d2e3f"),
		Email:        "test@example.com",
		Username:     "tester",
		Phone:        "+1234567890",
		PasswordHash: "hashed_password123",
		RoleID:       &roleID,
		CreatedAt:    time.Now().Add(-24 * time.Hour),
		UpdatedAt:    time.Now().Add(-1 * time.Hour),
	}
}

// userLookup returns a FindByEmailFunc that knows exactly one user
func userLookup(user *domain.User) func(ctx context.Context, email string) (*domain.User, error) {
	return func(ctx context.Context, email string) (*domain.User, error) {
		if email == user.Email {
			return user, nil
		}
		return nil, domain.ErrUserNotFound
	}
}

// createTestContext creates a context for testing with timeout
func createTestContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
