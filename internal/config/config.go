package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName            = "SwiftShip Auth"
	defaultAppEnv             = "development"
	defaultPort               = "8080"
	defaultLogLevel           = "info"
	defaultShutdownDelay      = 10 * time.Second
	defaultCountryCode        = "84"
	defaultOTPTTL             = 5 * time.Minute
	defaultOTPLength          = 6
	defaultOTPMaxAttempts     = 5
	defaultOTPResendCooldown  = 60 * time.Second
	defaultNotifyTimeout      = 5 * time.Second
	defaultAccessTokenTTL     = time.Hour
	defaultRefreshTokenTTL    = 30 * 24 * time.Hour
	defaultAuthRatePerMinute  = 10
	defaultMinPasswordLength  = 6
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName     string
	AppEnv      string
	Port        string
	LogLevel    string
	DatabaseURL string
	RedisURL    string

	ShutdownPeriod time.Duration

	// Phone normalization.
	CountryCode string

	// OTP policy.
	OTPTTL            time.Duration
	OTPLength         int
	OTPMaxAttempts    int
	OTPResendCooldown time.Duration
	NotifyTimeout     time.Duration

	// Development-only instrumentation: include the OTP code in issue
	// responses. Must never be enabled outside dev.
	OTPDevExpose bool

	// Token signing. Access and refresh use distinct secrets so a leaked
	// access secret cannot forge refresh tokens.
	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Rate limiting across the auth surface, per phone/IP per minute.
	AuthRatePerMinute int

	MinPasswordLength int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		AppEnv:            strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		ShutdownPeriod:    defaultShutdownDelay,
		CountryCode:       getEnv("DEFAULT_COUNTRY_CODE", defaultCountryCode),
		OTPTTL:            defaultOTPTTL,
		OTPLength:         defaultOTPLength,
		OTPMaxAttempts:    defaultOTPMaxAttempts,
		OTPResendCooldown: defaultOTPResendCooldown,
		NotifyTimeout:     defaultNotifyTimeout,
		JWTSecret:         os.Getenv("JWT_SECRET"),
		RefreshSecret:     os.Getenv("REFRESH_SECRET"),
		AccessTokenTTL:    defaultAccessTokenTTL,
		RefreshTokenTTL:   defaultRefreshTokenTTL,
		AuthRatePerMinute: defaultAuthRatePerMinute,
		MinPasswordLength: defaultMinPasswordLength,
	}

	var err error
	if cfg.ShutdownPeriod, err = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = getDuration("OTP_TTL", cfg.OTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPLength, err = getInt("OTP_LENGTH", cfg.OTPLength); err != nil {
		return Config{}, err
	}
	if cfg.OTPMaxAttempts, err = getInt("OTP_MAX_ATTEMPTS", cfg.OTPMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.OTPResendCooldown, err = getDuration("OTP_RESEND_COOLDOWN", cfg.OTPResendCooldown); err != nil {
		return Config{}, err
	}
	if cfg.NotifyTimeout, err = getDuration("NOTIFY_TIMEOUT", cfg.NotifyTimeout); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.AuthRatePerMinute, err = getInt("AUTH_RATE_PER_MINUTE", cfg.AuthRatePerMinute); err != nil {
		return Config{}, err
	}
	if cfg.MinPasswordLength, err = getInt("MIN_PASSWORD_LENGTH", cfg.MinPasswordLength); err != nil {
		return Config{}, err
	}

	cfg.OTPDevExpose = getEnv("OTP_DEV_EXPOSE", "") == "true" && cfg.IsDev()

	if !cfg.IsDev() {
		if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
			return Config{}, fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-access-secret"
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = "dev-refresh-secret"
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
