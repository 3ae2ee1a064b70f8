package authcore

import (
	"errors"
	"time"

	"github.com/MrEthical07/authcore/password"
)

// Config is the complete engine configuration. Builder clones it, so later
// edits by the caller have no effect on a built Engine.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Store    StoreConfig
	Session  SessionConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access and change-password token issuance plus the
// refresh token lifetime.
type JWTConfig struct {
	AccessTTL         time.Duration
	ChangePasswordTTL time.Duration
	RefreshTTL        time.Duration
	SigningMethod     string // "hs256" (default) or "ed25519"
	PrivateKey        []byte
	PublicKey         []byte
	Issuer            string
	Audience          string
	KeyID             string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hasher and its cost. Memory is in KiB.
type PasswordConfig struct {
	Algorithm      string // "argon2id" (default) or "bcrypt"
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	BcryptCost     int
	MinLength      int
	MaxLength      int
	UpgradeOnLogin bool
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig bounds every Redis and credential store round trip.
type StoreConfig struct {
	OperationTimeout  time.Duration
	RetryBackoff      time.Duration
	RefreshPrefix     string
	RefreshUserPrefix string
	RevocationPrefix  string
}

// SessionConfig controls refresh session policy.
type SessionConfig struct {
	// RevokeAllOnPasswordChange deletes every refresh session of the user
	// after a successful password change.
	RevokeAllOnPasswordChange bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds the login throttle and production hardening switches.
type SecurityConfig struct {
	ProductionMode        bool
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// AuditConfig defines a public type used by authcore APIs.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authcore APIs.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. JWT.PrivateKey must
// still be supplied before Build.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:         15 * time.Minute,
			ChangePasswordTTL: 15 * time.Minute,
			RefreshTTL:        30 * 24 * time.Hour,
			SigningMethod:     "hs256",
		},
		Password: PasswordConfig{
			Algorithm:      string(password.AlgorithmArgon2id),
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			BcryptCost:     password.DefaultBcryptCost,
			MinLength:      3,
			MaxLength:      50,
			UpgradeOnLogin: true,
		},
		Store: StoreConfig{
			OperationTimeout: 2 * time.Second,
			RetryBackoff:     50 * time.Millisecond,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   true,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c PasswordConfig) hasherConfig() password.Config {
	return password.Config{
		Algorithm: password.Algorithm(c.Algorithm),
		Argon2: password.Argon2Params{
			Memory:      c.Memory,
			Time:        c.Time,
			Parallelism: c.Parallelism,
			SaltLength:  c.SaltLength,
			KeyLength:   c.KeyLength,
		},
		BcryptCost: c.BcryptCost,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate returns the first violated constraint. ProductionMode adds hardening
// checks on top of the structural ones.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.ChangePasswordTTL <= 0 {
		return errors.New("JWT ChangePasswordTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}

	// Password
	switch password.Algorithm(c.Password.Algorithm) {
	case password.AlgorithmArgon2id, password.AlgorithmBcrypt:
	default:
		return errors.New("unsupported Password Algorithm")
	}
	if c.Password.MinLength <= 0 {
		return errors.New("Password MinLength must be > 0")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}

	// Store
	if c.Store.OperationTimeout <= 0 {
		return errors.New("Store OperationTimeout must be > 0")
	}
	if c.Store.RetryBackoff < 0 {
		return errors.New("Store RetryBackoff must be >= 0")
	}
	if c.Store.RetryBackoff >= c.Store.OperationTimeout {
		return errors.New("Store RetryBackoff must be < OperationTimeout")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableIPThrottle && !c.Security.EnableLoginThrottle {
		return errors.New("Security EnableIPThrottle requires EnableLoginThrottle")
	}

	// Audit / metrics
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	if c.Security.ProductionMode {
		if c.JWT.AccessTTL > 15*time.Minute {
			return errors.New("ProductionMode requires JWT AccessTTL <= 15m")
		}
		if c.JWT.ChangePasswordTTL > 15*time.Minute {
			return errors.New("ProductionMode requires JWT ChangePasswordTTL <= 15m")
		}
		if c.JWT.RefreshTTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires JWT RefreshTTL <= 30d")
		}
		if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
			return errors.New("ProductionMode requires hs256 key length >= 256 bits")
		}
		if c.Password.MinLength < 8 {
			return errors.New("ProductionMode requires Password MinLength >= 8")
		}
		if c.Password.Algorithm == string(password.AlgorithmArgon2id) {
			if c.Password.Memory < 64*1024 {
				return errors.New("ProductionMode requires Password Memory >= 65536 KB")
			}
			if c.Password.Time < 2 {
				return errors.New("ProductionMode requires Password Time >= 2")
			}
			if c.Password.KeyLength < 32 {
				return errors.New("ProductionMode requires Password KeyLength >= 32")
			}
			if c.Password.SaltLength < 16 {
				return errors.New("ProductionMode requires Password SaltLength >= 16")
			}
		}
		if !c.Security.EnableLoginThrottle {
			return errors.New("ProductionMode requires EnableLoginThrottle")
		}
	}

	return nil
}
