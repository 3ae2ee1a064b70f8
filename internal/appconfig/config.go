// Package appconfig loads the authd process configuration from the
// environment, optionally seeded from .env files.
package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/httpapi"
	"github.com/joho/godotenv"
)

// Config is the authd process configuration.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// DatabaseURL selects the Postgres credential store. Empty means in-memory.
	DatabaseURL string

	JWTSecret         string
	JWTIssuer         string
	JWTAudience       string
	AccessTTL         time.Duration
	ChangePasswordTTL time.Duration
	RefreshTTL        time.Duration

	ProductionMode            bool
	RevokeAllOnPasswordChange bool
	LoginThrottle             bool
	IPThrottle                bool
	MaxLoginAttempts          int
	LoginCooldown             time.Duration

	CookieSecure   bool
	TrustProxy     bool
	AllowedOrigins []string

	AuditLog bool
	Metrics  bool
}

// Load reads the environment after applying files with godotenv. Missing
// files are skipped; variables already set in the environment win.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	def := authcore.DefaultConfig()
	cfg := Config{
		HTTPAddr:        EnvString("AUTH_HTTP_ADDR", ":8080"),
		LogLevel:        EnvString("AUTH_LOG_LEVEL", "info"),
		ShutdownTimeout: EnvDuration("AUTH_SHUTDOWN_TIMEOUT", 10*time.Second),

		RedisAddr:     EnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: EnvString("REDIS_PASSWORD", ""),
		RedisDB:       EnvInt("REDIS_DB", 0),

		DatabaseURL: EnvString("DATABASE_URL", ""),

		JWTSecret:         EnvString("AUTH_JWT_SECRET", ""),
		JWTIssuer:         EnvString("AUTH_JWT_ISSUER", ""),
		JWTAudience:       EnvString("AUTH_JWT_AUDIENCE", ""),
		AccessTTL:         EnvDuration("AUTH_ACCESS_TTL", def.JWT.AccessTTL),
		ChangePasswordTTL: EnvDuration("AUTH_CHANGE_PASSWORD_TTL", def.JWT.ChangePasswordTTL),
		RefreshTTL:        EnvDuration("AUTH_REFRESH_TTL", def.JWT.RefreshTTL),

		ProductionMode:            EnvBool("AUTH_PRODUCTION", false),
		RevokeAllOnPasswordChange: EnvBool("AUTH_REVOKE_ALL_ON_PASSWORD_CHANGE", def.Session.RevokeAllOnPasswordChange),
		LoginThrottle:             EnvBool("AUTH_LOGIN_THROTTLE", def.Security.EnableLoginThrottle),
		IPThrottle:                EnvBool("AUTH_IP_THROTTLE", false),
		MaxLoginAttempts:          EnvInt("AUTH_MAX_LOGIN_ATTEMPTS", def.Security.MaxLoginAttempts),
		LoginCooldown:             EnvDuration("AUTH_LOGIN_COOLDOWN", def.Security.LoginCooldownDuration),

		CookieSecure:   EnvBool("AUTH_COOKIE_SECURE", false),
		TrustProxy:     EnvBool("AUTH_TRUST_PROXY", false),
		AllowedOrigins: EnvList("AUTH_CORS_ORIGINS"),

		AuditLog: EnvBool("AUTH_AUDIT_LOG", false),
		Metrics:  EnvBool("AUTH_METRICS", true),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("AUTH_JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

// Engine maps the process configuration onto an engine configuration.
func (c Config) Engine() authcore.Config {
	cfg := authcore.DefaultConfig()

	cfg.JWT.PrivateKey = []byte(c.JWTSecret)
	cfg.JWT.Issuer = c.JWTIssuer
	cfg.JWT.Audience = c.JWTAudience
	cfg.JWT.AccessTTL = c.AccessTTL
	cfg.JWT.ChangePasswordTTL = c.ChangePasswordTTL
	cfg.JWT.RefreshTTL = c.RefreshTTL

	cfg.Session.RevokeAllOnPasswordChange = c.RevokeAllOnPasswordChange

	cfg.Security.ProductionMode = c.ProductionMode
	cfg.Security.EnableLoginThrottle = c.LoginThrottle
	cfg.Security.EnableIPThrottle = c.LoginThrottle && c.IPThrottle
	cfg.Security.MaxLoginAttempts = c.MaxLoginAttempts
	cfg.Security.LoginCooldownDuration = c.LoginCooldown

	cfg.Audit.Enabled = c.AuditLog
	cfg.Metrics.Enabled = c.Metrics
	cfg.Metrics.EnableLatencyHistograms = c.Metrics

	if c.ProductionMode && cfg.Password.MinLength < 8 {
		cfg.Password.MinLength = 8
	}

	return cfg
}

// HTTP maps the process configuration onto transport options.
func (c Config) HTTP() httpapi.Options {
	opts := httpapi.DefaultOptions()
	opts.CookieSecure = c.CookieSecure
	opts.CookieMaxAge = c.RefreshTTL
	opts.TrustProxy = c.TrustProxy
	opts.AllowedOrigins = c.AllowedOrigins
	return opts
}
