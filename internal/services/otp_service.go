package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/rs/zerolog"
	"github.com/you/clientcore/domain"
	"github.com/you/clientcore/internal/infrastructure/auth"
)

// Delivery channels for OTP codes
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// OTPEmailSubject is the subject line of OTP mails
const OTPEmailSubject = "Your account verification code"

// OTPServiceImpl implements domain.OTPService on top of a challenge store
type OTPServiceImpl struct {
	userRepo        domain.UserRepository
	store           domain.OTPChallengeStore
	passwordSvc     domain.PasswordService
	tokenSvc        domain.TokenService
	notificationSvc domain.NotificationService
	audit           domain.AuditLogger
	logger          zerolog.Logger
	config          OTPConfig
	generate        func(length int) (string, error)
}

type OTPConfig struct {
	Length       int
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration
	Channel      string
	Clock        func() time.Time
}

// NewOTPService creates a new OTP login service
func NewOTPService(
	userRepo domain.UserRepository,
	store domain.OTPChallengeStore,
	passwordSvc domain.PasswordService,
	tokenSvc domain.TokenService,
	notificationSvc domain.NotificationService,
	auditLogger domain.AuditLogger,
	logger zerolog.Logger,
	config OTPConfig,
) domain.OTPService {
	if config.Length <= 0 {
		config.Length = auth.DefaultOTPLength
	}
	if config.TTL <= 0 {
		config.TTL = 3 * time.Minute
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Channel == "" {
		config.Channel = ChannelEmail
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &OTPServiceImpl{
		userRepo:        userRepo,
		store:           store,
		passwordSvc:     passwordSvc,
		tokenSvc:        tokenSvc,
		notificationSvc: notificationSvc,
		audit:           auditLogger,
		logger:          logger.With().Str("component", "otp").Logger(),
		config:          config,
		generate:        auth.GenerateOTP,
	}
}

// RequestOTP implements domain.OTPService
func (s *OTPServiceImpl) RequestOTP(ctx context.Context, email string) (*domain.OTPDispatch, error) {
	target := NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, target)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// Check resend throttle
	free, err := s.store.Throttle(ctx, target, s.config.ResendWindow)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, domain.ErrOTPResendLimit
	}

	code, err := s.generate(s.config.Length)
	if err != nil {
		s.releaseThrottle(ctx, target)
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}
	codeHash, err := s.passwordSvc.Hash(code)
	if err != nil {
		s.releaseThrottle(ctx, target)
		return nil, fmt.Errorf("failed to hash OTP code: %w", err)
	}

	now := s.config.Clock()
	challenge := &domain.OTPChallenge{
		Target:       target,
		CodeHash:     codeHash,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.config.TTL),
		AttemptsLeft: s.config.MaxAttempts,
	}
	if err := s.store.Save(ctx, challenge); err != nil {
		s.releaseThrottle(ctx, target)
		return nil, err
	}

	channel, err := s.deliver(ctx, user, target, code)
	if err != nil {
		if delErr := s.store.Delete(ctx, target); delErr != nil {
			s.logger.Error().Err(delErr).Str("email", target).Msg("failed to remove undelivered otp challenge")
		}
		s.releaseThrottle(ctx, target)
		audit(ctx, s.audit, domain.NewAuditEvent(domain.OTPRequestEvent).WithEmail(target).WithError(err))
		return nil, fmt.Errorf("failed to deliver OTP: %w", err)
	}

	audit(ctx, s.audit, domain.NewAuditEvent(domain.OTPRequestEvent).
		WithEmail(target).
		WithSubject(user.ID.String(), "").
		WithMetadata("channel", channel))

	return &domain.OTPDispatch{
		Target:    target,
		Channel:   channel,
		ExpiresAt: challenge.ExpiresAt,
		Attempts:  challenge.AttemptsLeft,
	}, nil
}

// VerifyOTP implements domain.OTPService
func (s *OTPServiceImpl) VerifyOTP(ctx context.Context, email, code string) (*domain.AuthResult, error) {
	target := NormalizeEmail(email)

	challenge, err := s.store.Reserve(ctx, target, s.config.Clock())
	if err != nil {
		s.verifyFailed(ctx, target, err)
		return nil, err
	}

	if !s.passwordSvc.Verify(challenge.CodeHash, code) {
		s.verifyFailed(ctx, target, domain.ErrOTPInvalid)
		return nil, domain.ErrOTPInvalid
	}

	won, err := s.store.Consume(ctx, target)
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent verify consumed the challenge first.
		s.verifyFailed(ctx, target, domain.ErrOTPNotFound)
		return nil, domain.ErrOTPNotFound
	}

	user, err := s.userRepo.FindByEmail(ctx, target)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	result, err := issueAccess(s.tokenSvc, user)
	if err != nil {
		return nil, err
	}

	audit(ctx, s.audit, domain.NewAuditEvent(domain.OTPVerifyEvent).
		WithEmail(target).
		WithSubject(result.Subject, result.SessionID).
		WithMetadata("attempts_left", challenge.AttemptsLeft))

	return result, nil
}

func (s *OTPServiceImpl) deliver(ctx context.Context, user *domain.User, target, code string) (string, error) {
	minutes := int(s.config.TTL.Minutes())
	if minutes < 1 {
		minutes = 1
	}

	if s.config.Channel == ChannelSMS && user.Phone != "" {
		message := fmt.Sprintf("Your verification code is: %s. Valid for %d minutes.", code, minutes)
		return ChannelSMS, s.notificationSvc.SendSMS(ctx, user.Phone, message)
	}

	return ChannelEmail, s.notificationSvc.SendEmail(ctx, target, OTPEmailSubject, otpEmailBody(code, minutes))
}

// releaseThrottle frees the resend window when no code reached the user
func (s *OTPServiceImpl) releaseThrottle(ctx context.Context, target string) {
	if s.config.ResendWindow <= 0 {
		return
	}
	if err := s.store.ReleaseThrottle(ctx, target); err != nil {
		s.logger.Error().Err(err).Str("email", target).Msg("failed to release otp resend throttle")
	}
}

func (s *OTPServiceImpl) verifyFailed(ctx context.Context, target string, err error) {
	s.logger.Debug().Str("email", target).Str("reason", string(domain.KindOf(err))).Msg("otp verification rejected")
	audit(ctx, s.audit, domain.NewAuditEvent(domain.OTPFailureEvent).WithEmail(target).WithError(err))
}

func otpEmailBody(code string, minutes int) string {
	return fmt.Sprintf(`<html><body style="font-family:Helvetica,Arial,sans-serif;text-align:center">`+
		`<h1>Please use the code below for account verification</h1>`+
		`<p style="font-size:32px;font-weight:700;letter-spacing:6px">%s</p>`+
		`<p>This code is valid for %d minutes</p>`+
		`<p>If you didn't request a code, you can ignore this email.</p>`+
		`</body></html>`, html.EscapeString(code), minutes)
}
