package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/you/clientcore/domain"
	"github.com/you/clientcore/internal/config"
	httpx "github.com/you/clientcore/internal/http"
	"github.com/you/clientcore/internal/http/handlers"
	"github.com/you/clientcore/internal/http/middleware"
	"github.com/you/clientcore/internal/infrastructure/auth"
	"github.com/you/clientcore/internal/infrastructure/database"
	"github.com/you/clientcore/internal/infrastructure/notifications"
	"github.com/you/clientcore/internal/infrastructure/repositories"
	"github.com/you/clientcore/internal/logging"
	"github.com/you/clientcore/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger zerolog.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client

	// Repositories
	UserRepo       domain.UserRepository
	ChallengeStore domain.OTPChallengeStore

	// Services
	AuditLogger     domain.AuditLogger
	PasswordSvc     domain.PasswordService
	TokenSvc        domain.TokenService
	NotificationSvc domain.NotificationService
	OTPSvc          domain.OTPService
	AuthSvc         domain.AuthService

	// HTTP
	Router *gin.Engine

	// closers run in reverse order on Close
	closers []io.Closer
}

// NewContainer creates and initializes all dependencies. The logger is
// passed in so startup failures are reported through the same sink.
func NewContainer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	// Initialize infrastructure
	if err := c.initDatabase(); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.initRedis(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	// Initialize repositories
	c.initRepositories()

	// Initialize services
	c.initServices()

	c.initHTTP()

	return c, nil
}

func (c *Container) initDatabase() error {
	db, err := database.Open(c.Config.DBDriver, c.Config.DSN, c.Logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	c.DB = db

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("database migration: %w", err)
	}
	return nil
}

func (c *Container) initRedis(ctx context.Context) error {
	if c.Config.RedisAddr == "" {
		c.Logger.Warn().Msg("no redis address configured, otp challenges kept in process memory")
		return nil
	}

	rdb, err := database.NewRedis(ctx, c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	c.RedisClient = rdb
	c.closers = append(c.closers, rdb)
	return nil
}

func (c *Container) initRepositories() {
	c.UserRepo = repositories.NewUserRepository(c.DB)

	if c.RedisClient != nil {
		c.ChallengeStore = repositories.NewOTPChallengeRepository(c.RedisClient, c.Config.OTP_Retention)
		return
	}
	mem := repositories.NewMemoryOTPChallengeStore(c.Config.OTP_Retention)
	c.ChallengeStore = mem
	c.closers = append(c.closers, mem)
}

func (c *Container) initServices() {
	c.AuditLogger = logging.NewAuditLogger(c.Logger)
	c.PasswordSvc = auth.NewPasswordService(c.Config.BcryptCost)
	c.TokenSvc = auth.NewJWTService(
		c.Config.JWTSecret,
		c.Config.JWTIssuer,
		c.Config.JWTAudience,
		c.Config.AccessTTL,
	)

	sms := notifications.NewTwilioSMSSender(
		c.Config.TwilioSID,
		c.Config.TwilioToken,
		c.Config.TwilioFrom,
		c.Logger,
	)
	mail := notifications.NewSMTPEmailSender(notifications.SMTPConfig{
		Host:     c.Config.SMTPHost,
		Port:     c.Config.SMTPPort,
		Username: c.Config.SMTPUsername,
		Password: c.Config.SMTPPassword,
		From:     c.Config.SMTPFrom,
		FromName: c.Config.SMTPFromName,
	}, c.Logger)
	c.NotificationSvc = notifications.NewNotifier(sms, mail)

	c.AuthSvc = services.NewAuthService(
		c.UserRepo,
		c.PasswordSvc,
		c.TokenSvc,
		c.AuditLogger,
		c.Logger,
		services.AuthConfig{
			RefreshTTL:    c.Config.RefreshTTL,
			RotateRefresh: c.Config.RotateRefresh,
			DefaultRoleID: c.Config.DefaultRoleID,
		},
	)

	c.OTPSvc = services.NewOTPService(
		c.UserRepo,
		c.ChallengeStore,
		c.PasswordSvc,
		c.TokenSvc,
		c.NotificationSvc,
		c.AuditLogger,
		c.Logger,
		services.OTPConfig{
			Length:       c.Config.OTP_Length,
			TTL:          c.Config.OTP_TTL,
			MaxAttempts:  c.Config.OTP_MaxAttempts,
			ResendWindow: c.Config.OTP_ResendWindow,
			Channel:      c.Config.OTP_Channel,
		},
	)
}

func (c *Container) initHTTP() {
	gin.SetMode(c.Config.GinMode)
	authH := handlers.NewAuthHandlers(c.AuthSvc, c.OTPSvc)
	jwtMW := middleware.NewAuthMW(c.TokenSvc)
	c.Router = httpx.BuildRouter(c.Config.APIPrefix, authH, jwtMW, c.Logger)
}

// Close closes all connections
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			errs = append(errs, err)
		} else if err := sqlDB.Close(); err != nil {
			errs = append(errs, err)
		}
		c.DB = nil
	}

	return errors.Join(errs...)
}
