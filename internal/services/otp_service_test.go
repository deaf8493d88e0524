package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/clientcore/domain"
)

func defaultOTPConfig() OTPConfig {
	return OTPConfig{
		Length:      6,
		TTL:         3 * time.Minute,
		MaxAttempts: 3,
	}
}

func TestOTPServiceImpl_RequestOTP(t *testing.T) {
	user := createValidUser(t)

	tests := []struct {
		name          string
		email         string
		config        OTPConfig
		setupMocks    func(*otpDeps)
		expectedError error
		expectedKind  domain.Kind
		validate      func(t *testing.T, dispatch *domain.OTPDispatch, deps *otpDeps)
	}{
		{
			name:   "successful request by email",
			email:  "Test@Example.com",
			config: defaultOTPConfig(),
			validate: func(t *testing.T, dispatch *domain.OTPDispatch, deps *otpDeps) {
				assert.Equal(t, "test@example.com", dispatch.Target)
				assert.Equal(t, ChannelEmail, dispatch.Channel)
				assert.Equal(t, 3, dispatch.Attempts)
				assert.Equal(t, deps.clock.Now().Add(3*time.Minute), dispatch.ExpiresAt)

				mail, ok := deps.notificationSvc.LastEmail()
				require.True(t, ok)
				assert.Equal(t, "test@example.com", mail.To)
				assert.Equal(t, OTPEmailSubject, mail.Subject)
				assert.Contains(t, mail.Body, testOTPCode)
				assert.Contains(t, mail.Body, "valid for 3 minutes")
			},
		},
		{
			name:   "sms channel uses the phone number",
			email:  "test@example.com",
			config: func() OTPConfig { c := defaultOTPConfig(); c.Channel = ChannelSMS; return c }(),
			validate: func(t *testing.T, dispatch *domain.OTPDispatch, deps *otpDeps) {
				assert.Equal(t, ChannelSMS, dispatch.Channel)
				require.Len(t, deps.notificationSvc.SMS, 1)
				assert.Equal(t, user.Phone, deps.notificationSvc.SMS[0].To)
				assert.Contains(t, deps.notificationSvc.SMS[0].Body, testOTPCode)
				assert.Empty(t, deps.notificationSvc.Emails)
			},
		},
		{
			name:          "unknown email",
			email:         "ghost@example.com",
			config:        defaultOTPConfig(),
			expectedError: domain.ErrUserNotFound,
			expectedKind:  domain.KindNotFound,
		},
		{
			name:   "delivery failure removes the challenge",
			email:  "test@example.com",
			config: defaultOTPConfig(),
			setupMocks: func(deps *otpDeps) {
				deps.notificationSvc.SendEmailFunc = func(ctx context.Context, to, subject, htmlBody string) error {
					return errors.New("smtp down")
				}
			},
			expectedKind: domain.KindInternal,
			validate: func(t *testing.T, dispatch *domain.OTPDispatch, deps *otpDeps) {
				_, err := deps.store.Reserve(context.Background(), "test@example.com", deps.clock.Now())
				assert.ErrorIs(t, err, domain.ErrOTPNotFound)
			},
		},
		{
			name:  "resend window throttles a second request",
			email: "test@example.com",
			config: func() OTPConfig {
				c := defaultOTPConfig()
				c.ResendWindow = time.Minute
				return c
			}(),
			setupMocks: func(deps *otpDeps) {
				_, err := deps.store.Throttle(context.Background(), "test@example.com", time.Minute)
				require.NoError(t, err)
			},
			expectedError: domain.ErrOTPResendLimit,
			expectedKind:  domain.KindTooManyAttempts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := createOTPServiceForTest(t, tt.config)
			deps.userRepo.FindByEmailFunc = userLookup(user)
			if tt.setupMocks != nil {
				tt.setupMocks(deps)
			}

			dispatch, err := svc.RequestOTP(createTestContext(t), tt.email)

			if tt.expectedKind != "" {
				require.Error(t, err)
				assert.Nil(t, dispatch)
				assert.Equal(t, tt.expectedKind, domain.KindOf(err))
				if tt.expectedError != nil {
					assert.ErrorIs(t, err, tt.expectedError)
				}
				if tt.validate != nil {
					tt.validate(t, dispatch, deps)
				}
				return
			}

			require.NoError(t, err)
			tt.validate(t, dispatch, deps)
		})
	}
}

func TestOTPServiceImpl_RequestOTPResendWindow(t *testing.T) {
	config := defaultOTPConfig()
	config.ResendWindow = time.Minute
	svc, deps := createOTPServiceForTest(t, config)
	deps.userRepo.FindByEmailFunc = userLookup(createValidUser(t))
	ctx := createTestContext(t)

	deps.notificationSvc.SendEmailFunc = func(ctx context.Context, to, subject, htmlBody string) error {
		return errors.New("smtp down")
	}
	_, err := svc.RequestOTP(ctx, "test@example.com")
	require.Error(t, err)

	// an undelivered code does not hold the window
	deps.notificationSvc.SendEmailFunc = nil
	dispatch, err := svc.RequestOTP(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, ChannelEmail, dispatch.Channel)

	// a delivered code does
	_, err = svc.RequestOTP(ctx, "test@example.com")
	assert.ErrorIs(t, err, domain.ErrOTPResendLimit)
}

// The stored challenge only ever holds a hash of the code.
func TestOTPServiceImpl_RequestOTPStoresHashOnly(t *testing.T) {
	svc, deps := createOTPServiceForTest(t, defaultOTPConfig())
	deps.userRepo.FindByEmailFunc = userLookup(createValidUser(t))

	_, err := svc.RequestOTP(createTestContext(t), "test@example.com")
	require.NoError(t, err)

	challenge, err := deps.store.Reserve(context.Background(), "test@example.com", deps.clock.Now())
	require.NoError(t, err)
	assert.NotContains(t, challenge.CodeHash, testOTPCode)
	assert.True(t, strings.HasPrefix(challenge.CodeHash, "$2"))
}

func TestOTPServiceImpl_VerifyOTP(t *testing.T) {
	user := createValidUser(t)

	t.Run("correct code issues an access token once", func(t *testing.T) {
		svc, deps := createOTPServiceForTest(t, defaultOTPConfig())
		deps.userRepo.FindByEmailFunc = userLookup(user)
		ctx := createTestContext(t)

		_, err := svc.RequestOTP(ctx, "test@example.com")
		require.NoError(t, err)

		result, err := svc.VerifyOTP(ctx, "TEST@example.com", testOTPCode)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), result.Subject)
		assert.Equal(t, "mock_access_token_"+user.ID.String(), result.AccessToken)
		assert.NotEmpty(t, result.SessionID)
		assert.Empty(t, result.RefreshToken)
		assert.Len(t, deps.audit.EventsOfType(domain.OTPVerifyEvent), 1)

		// The challenge is consumed.
		_, err = svc.VerifyOTP(ctx, "test@example.com", testOTPCode)
		assert.ErrorIs(t, err, domain.ErrOTPNotFound)
	})

	t.Run("wrong code then correct code", func(t *testing.T) {
		svc, deps := createOTPServiceForTest(t, defaultOTPConfig())
		deps.userRepo.FindByEmailFunc = userLookup(user)
		ctx := createTestContext(t)

		_, err := svc.RequestOTP(ctx, "test@example.com")
		require.NoError(t, err)

		_, err = svc.VerifyOTP(ctx, "test@example.com", "000000")
		assert.ErrorIs(t, err, domain.ErrOTPInvalid)
		assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

		_, err = svc.VerifyOTP(ctx, "test@example.com", testOTPCode)
		assert.NoError(t, err)
	})

	t.Run("attempts run out after max wrong codes", func(t *testing.T) {
		svc, deps := createOTPServiceForTest(t, defaultOTPConfig())
		deps.userRepo.FindByEmailFunc = userLookup(user)
		ctx := createTestContext(t)

		_, err := svc.RequestOTP(ctx, "test@example.com")
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			_, err = svc.VerifyOTP(ctx, "test@example.com", "000000")
			assert.ErrorIs(t, err, domain.ErrOTPInvalid, "attempt %d", i+1)
		}

		// Even the right code is refused once attempts are exhausted.
		_, err = svc.VerifyOTP(ctx, "test@example.com", testOTPCode)
		assert.ErrorIs(t, err, domain.ErrOTPMaxAttempts)
		assert.Equal(t, domain.KindTooManyAttempts, domain.KindOf(err))

		_, err = svc.VerifyOTP(ctx, "test@example.com", testOTPCode)
		assert.ErrorIs(t, err, domain.ErrOTPNotFound)
		assert.Len(t, deps.audit.EventsOfType(domain.OTPFailureEvent), 5)
	})

	t.Run("expired challenge", func(t *testing.T) {
		svc, deps := createOTPServiceForTest(t, defaultOTPConfig())
		deps.userRepo.FindByEmailFunc = userLookup(user)
		ctx := createTestContext(t)

		_, err := svc.RequestOTP(ctx, "test@example.com")
		require.NoError(t, err)

		deps.clock.Advance(3*time.Minute + time.Second)

		_, err = svc.VerifyOTP(ctx, "test@example.com", testOTPCode)
		assert.ErrorIs(t, err, domain.ErrOTPExpired)
		assert.Equal(t, domain.KindExpired, domain.KindOf(err))
	})

	t.Run("no challenge", func(t *testing.T) {
		svc, _ := createOTPServiceForTest(t, defaultOTPConfig())

		_, err := svc.VerifyOTP(createTestContext(t), "test@example.com", testOTPCode)
		assert.ErrorIs(t, err, domain.ErrOTPNotFound)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("new request replaces the previous challenge", func(t *testing.T) {
		svc, deps := createOTPServiceForTest(t, defaultOTPConfig())
		deps.userRepo.FindByEmailFunc = userLookup(user)
		ctx := createTestContext(t)

		_, err := svc.RequestOTP(ctx, "test@example.com")
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			_, _ = svc.VerifyOTP(ctx, "test@example.com", "000000")
		}

		svc.generate = func(int) (string, error) { return "111111", nil }
		dispatch, err := svc.RequestOTP(ctx, "test@example.com")
		require.NoError(t, err)
		assert.Equal(t, 3, dispatch.Attempts)

		_, err = svc.VerifyOTP(ctx, "test@example.com", testOTPCode)
		assert.ErrorIs(t, err, domain.ErrOTPInvalid)
		_, err = svc.VerifyOTP(ctx, "test@example.com", "111111")
		assert.NoError(t, err)
	})
}

// Concurrent verifies of the right code, one per attempt, produce exactly
// one session.
func TestOTPServiceImpl_VerifyOTPConcurrent(t *testing.T) {
	svc, deps := createOTPServiceForTest(t, defaultOTPConfig())
	deps.userRepo.FindByEmailFunc = userLookup(createValidUser(t))
	ctx := createTestContext(t)

	_, err := svc.RequestOTP(ctx, "test@example.com")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes int32
		start     = make(chan struct{})
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := svc.VerifyOTP(ctx, "test@example.com", testOTPCode); err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes)
}

// More concurrent verifies than attempts never yield two sessions.
func TestOTPServiceImpl_VerifyOTPConcurrentOversubscribed(t *testing.T) {
	svc, deps := createOTPServiceForTest(t, defaultOTPConfig())
	deps.userRepo.FindByEmailFunc = userLookup(createValidUser(t))
	ctx := createTestContext(t)

	_, err := svc.RequestOTP(ctx, "test@example.com")
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes int32
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.VerifyOTP(ctx, "test@example.com", testOTPCode); err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, successes, int32(1))
}
