package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config/config.yml"

type AppConfig struct {
	Port        int    `yaml:"port"`
	GinMode     string `yaml:"gin_mode"`
	Environment string `yaml:"environment"`
	APIPrefix   string `yaml:"api_prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Used to build a postgres DSN when dsn is empty
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret        string `yaml:"secret"`
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
	AccessTTL     string `yaml:"access_ttl"`
	RefreshTTL    string `yaml:"refresh_ttl"`
	RotateRefresh *bool  `yaml:"rotate_refresh"`
}

type AuthConfig struct {
	DefaultRoleID string `yaml:"default_role_id"`
	BcryptCost    int    `yaml:"bcrypt_cost"`
}

type OTPConfig struct {
	TTL          string `yaml:"ttl"`
	Length       int    `yaml:"length"`
	MaxAttempts  int    `yaml:"max_attempts"`
	ResendWindow string `yaml:"resend_window"`
	Retention    string `yaml:"retention"`
	Channel      string `yaml:"channel"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

type ConfigFile struct {
	App      AppConfig      `yaml:"app"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Auth     AuthConfig     `yaml:"auth"`
	OTP      OTPConfig      `yaml:"otp"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	SMTP     SMTPConfig     `yaml:"smtp"`
}

type Config struct {
	Port        string
	GinMode     string
	Environment string
	APIPrefix   string

	LogLevel  string
	LogPretty bool

	DBDriver string
	DSN      string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret     string
	JWTIssuer     string
	JWTAudience   string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RotateRefresh bool

	DefaultRoleID *uuid.UUID
	BcryptCost    int

	OTP_TTL          time.Duration
	OTP_Length       int
	OTP_MaxAttempts  int
	OTP_ResendWindow time.Duration
	OTP_Retention    time.Duration
	OTP_Channel      string

	TwilioSID   string
	TwilioToken string
	TwilioFrom  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads .env (if present), the YAML file named by CONFIG_PATH and the
// CLIENTCORE_* environment overrides, then applies defaults.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	configFile, err := loadConfigFile(env("CONFIG_PATH", defaultConfigPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	applyEnvOverrides(configFile)
	return fromFile(configFile)
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

func applyEnvOverrides(f *ConfigFile) {
	f.JWT.Secret = env("CLIENTCORE_JWT_SECRET", f.JWT.Secret)
	f.Database.DSN = env("CLIENTCORE_DATABASE_DSN", f.Database.DSN)
	f.Database.Driver = env("CLIENTCORE_DATABASE_DRIVER", f.Database.Driver)
	f.Redis.Addr = env("CLIENTCORE_REDIS_ADDR", f.Redis.Addr)
	f.Redis.Password = env("CLIENTCORE_REDIS_PASSWORD", f.Redis.Password)
	f.App.Environment = env("CLIENTCORE_ENVIRONMENT", f.App.Environment)
	f.Twilio.AuthToken = env("CLIENTCORE_TWILIO_AUTH_TOKEN", f.Twilio.AuthToken)
	f.SMTP.Password = env("CLIENTCORE_SMTP_PASSWORD", f.SMTP.Password)
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			f.App.Port = p
		}
	}
}

func fromFile(f *ConfigFile) (*Config, error) {
	accTTL, err := parseDuration(f.JWT.AccessTTL, 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT access TTL: %w", err)
	}
	refTTL, err := parseDuration(f.JWT.RefreshTTL, 1440*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT refresh TTL: %w", err)
	}
	otpTTL, err := parseDuration(f.OTP.TTL, 3*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP TTL: %w", err)
	}
	resWnd, err := parseDuration(f.OTP.ResendWindow, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP resend window: %w", err)
	}
	retention, err := parseDuration(f.OTP.Retention, 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP retention: %w", err)
	}

	var defaultRole *uuid.UUID
	if s := strings.TrimSpace(f.Auth.DefaultRoleID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid default role id: %w", err)
		}
		defaultRole = &id
	}

	rotate := true
	if f.JWT.RotateRefresh != nil {
		rotate = *f.JWT.RotateRefresh
	}

	environment := orDefault(f.App.Environment, "production")
	port := f.App.Port
	if port == 0 {
		port = 8080
	}

	cfg := &Config{
		Port:        strconv.Itoa(port),
		GinMode:     orDefault(f.App.GinMode, ginModeFor(environment)),
		Environment: environment,
		APIPrefix:   orDefault(f.App.APIPrefix, "/api/v1"),

		LogLevel:  orDefault(f.Log.Level, "info"),
		LogPretty: f.Log.Pretty,

		DBDriver: orDefault(f.Database.Driver, "postgres"),
		DSN:      f.Database.DSN,

		RedisAddr:     f.Redis.Addr,
		RedisPassword: f.Redis.Password,
		RedisDB:       f.Redis.DB,

		JWTSecret:     f.JWT.Secret,
		JWTIssuer:     orDefault(f.JWT.Issuer, "client-core"),
		JWTAudience:   orDefault(f.JWT.Audience, "client-web"),
		AccessTTL:     accTTL,
		RefreshTTL:    refTTL,
		RotateRefresh: rotate,

		DefaultRoleID: defaultRole,
		BcryptCost:    f.Auth.BcryptCost,

		OTP_TTL:          otpTTL,
		OTP_Length:       orDefaultInt(f.OTP.Length, 6),
		OTP_MaxAttempts:  orDefaultInt(f.OTP.MaxAttempts, 3),
		OTP_ResendWindow: resWnd,
		OTP_Retention:    retention,
		OTP_Channel:      orDefault(f.OTP.Channel, "email"),

		TwilioSID:   f.Twilio.AccountSID,
		TwilioToken: f.Twilio.AuthToken,
		TwilioFrom:  f.Twilio.FromNumber,

		SMTPHost:     f.SMTP.Host,
		SMTPPort:     orDefaultInt(f.SMTP.Port, 587),
		SMTPUsername: f.SMTP.Username,
		SMTPPassword: f.SMTP.Password,
		SMTPFrom:     f.SMTP.From,
		SMTPFromName: orDefault(f.SMTP.FromName, "Client Core"),
	}

	if cfg.DSN == "" && cfg.DBDriver == "postgres" && f.Database.Host != "" {
		cfg.DSN = postgresDSN(f.Database)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("jwt secret is required (set CLIENTCORE_JWT_SECRET)"))
	}
	if c.DSN == "" {
		errs = append(errs, errors.New("database dsn is required"))
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.DBDriver))
	}
	switch c.OTP_Channel {
	case "email", "sms":
	default:
		errs = append(errs, fmt.Errorf("unsupported otp channel %q", c.OTP_Channel))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.OTP_TTL <= 0 {
		errs = append(errs, errors.New("token and otp lifetimes must be positive"))
	}
	if c.OTP_Length > 12 {
		errs = append(errs, fmt.Errorf("otp length %d is too long", c.OTP_Length))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs in the development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func ginModeFor(environment string) string {
	if environment == "development" {
		return "debug"
	}
	return "release"
}

func postgresDSN(db DatabaseConfig) string {
	port := db.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(db.User, db.Password),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(port)),
		Path:   "/" + db.Name,
	}
	return u.String()
}
