package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/you/clientcore/domain"
)

// AuthConfig holds the token lifecycle policy for AuthServiceImpl
type AuthConfig struct {
	RefreshTTL    time.Duration
	RotateRefresh bool
	DefaultRoleID *uuid.UUID
	Clock         func() time.Time
}

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	userRepo    domain.UserRepository
	passwordSvc domain.PasswordService
	tokenSvc    domain.TokenService
	audit       domain.AuditLogger
	logger      zerolog.Logger
	config      AuthConfig
	dummyHash   string
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	passwordSvc domain.PasswordService,
	tokenSvc domain.TokenService,
	auditLogger domain.AuditLogger,
	logger zerolog.Logger,
	config AuthConfig,
) domain.AuthService {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.RefreshTTL <= 0 {
		config.RefreshTTL = 24 * time.Hour
	}

	// Compared against on unknown emails so both login failures cost one bcrypt run.
	dummyHash, err := passwordSvc.Hash(uuid.NewString())
	if err != nil {
		logger.Warn().Err(err).Msg("failed to prepare dummy password hash")
	}

	return &AuthServiceImpl{
		userRepo:    userRepo,
		passwordSvc: passwordSvc,
		tokenSvc:    tokenSvc,
		audit:       auditLogger,
		logger:      logger.With().Str("component", "auth").Logger(),
		config:      config,
		dummyHash:   dummyHash,
	}
}

// Register implements domain.AuthService
func (s *AuthServiceImpl) Register(ctx context.Context, in domain.RegisterInput) (*domain.User, error) {
	email := NormalizeEmail(in.Email)
	if len(in.Password) > domain.MaxPasswordBytes {
		return nil, domain.ErrPasswordTooLong
	}

	// Check if user already exists
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hashedPassword, err := s.passwordSvc.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.config.Clock()
	user := &domain.User{
		Email:         email,
		Username:      in.Username,
		Name:          in.Name,
		Phone:         in.Phone,
		Address:       in.Address,
		Country:       in.Country,
		RoleInCompany: in.RoleInCompany,
		PasswordHash:  hashedPassword,
		RoleID:        copyID(s.config.DefaultRoleID),
		CompanyID:     copyID(in.CompanyID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.userRepo.Insert(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	audit(ctx, s.audit, domain.NewAuditEvent(domain.UserRegistrationEvent).
		WithEmail(email).
		WithSubject(user.ID.String(), ""))

	return user, nil
}

// LoginWithPassword implements domain.AuthService
func (s *AuthServiceImpl) LoginWithPassword(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	email = NormalizeEmail(email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		s.passwordSvc.Verify(s.dummyHash, password)
		s.loginFailed(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}

	if !s.passwordSvc.Verify(user.PasswordHash, password) {
		s.loginFailed(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}

	result, err := issueAccess(s.tokenSvc, user)
	if err != nil {
		return nil, err
	}

	audit(ctx, s.audit, domain.NewAuditEvent(domain.UserLoginEvent).
		WithEmail(email).
		WithSubject(result.Subject, result.SessionID).
		WithMetadata("method", "password"))

	return result, nil
}

// IssueRefreshToken implements domain.AuthService
func (s *AuthServiceImpl) IssueRefreshToken(_ context.Context, result *domain.AuthResult) error {
	if result == nil || result.Subject == "" {
		return errors.New("refresh token requires an authenticated subject")
	}

	expiry := s.config.Clock().Add(s.config.RefreshTTL)
	token, err := s.tokenSvc.IssueRefresh(result.Subject, uuid.NewString(), expiry, result.CompanyID, result.RoleID)
	if err != nil {
		return fmt.Errorf("failed to generate refresh token: %w", err)
	}

	result.RefreshToken = token
	result.RefreshExpiresAt = expiry
	return nil
}

// RefreshAccessToken implements domain.AuthService
func (s *AuthServiceImpl) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	claims, err := s.tokenSvc.DecodeRefresh(refreshToken, false)
	if err != nil {
		audit(ctx, s.audit, domain.NewAuditEvent(domain.TokenRefreshEvent).WithError(err))
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	result := &domain.AuthResult{
		Subject:   claims.Subject,
		RoleID:    claims.RoleID,
		CompanyID: claims.CompanyID,
	}
	if err := attachAccess(s.tokenSvc, result); err != nil {
		return nil, err
	}

	if s.config.RotateRefresh {
		if err := s.IssueRefreshToken(ctx, result); err != nil {
			return nil, err
		}
	} else {
		result.RefreshToken = refreshToken
		result.RefreshExpiresAt = claims.ExpiresAt
	}

	audit(ctx, s.audit, domain.NewAuditEvent(domain.TokenRefreshEvent).
		WithSubject(result.Subject, result.SessionID).
		WithMetadata("rotated", s.config.RotateRefresh))

	return result, nil
}

func (s *AuthServiceImpl) loginFailed(ctx context.Context, email string) {
	s.logger.Debug().Str("email", email).Msg("password login rejected")
	audit(ctx, s.audit, domain.NewAuditEvent(domain.UserLoginFailureEvent).
		WithEmail(email).
		WithMetadata("method", "password").
		WithError(domain.ErrInvalidCredentials))
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
