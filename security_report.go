package authcore

import "time"

// SecurityReport summarizes the security posture of a built Engine. It holds
// no key material and is safe to log.
type SecurityReport struct {
	ProductionMode            bool
	SigningAlgorithm          string
	AccessTTL                 time.Duration
	ChangePasswordTTL         time.Duration
	RefreshTTL                time.Duration
	PasswordAlgorithm         string
	Argon2                    PasswordConfigReport
	PasswordMinLength         int
	HashUpgradeOnLogin        bool
	LoginThrottleActive       bool
	IPThrottleActive          bool
	RevokeAllOnPasswordChange bool
	AuditEnabled              bool
}

// PasswordConfigReport carries the argon2id cost parameters.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport returns the posture of e. A nil Engine reports zero values.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	c := e.config
	return SecurityReport{
		ProductionMode:    c.Security.ProductionMode,
		SigningAlgorithm:  c.JWT.SigningMethod,
		AccessTTL:         c.JWT.AccessTTL,
		ChangePasswordTTL: c.JWT.ChangePasswordTTL,
		RefreshTTL:        c.JWT.RefreshTTL,
		PasswordAlgorithm: c.Password.Algorithm,
		Argon2: PasswordConfigReport{
			Memory:      c.Password.Memory,
			Time:        c.Password.Time,
			Parallelism: c.Password.Parallelism,
			SaltLength:  c.Password.SaltLength,
			KeyLength:   c.Password.KeyLength,
		},
		PasswordMinLength:         c.Password.MinLength,
		HashUpgradeOnLogin:        c.Password.UpgradeOnLogin,
		LoginThrottleActive:       e.limiter != nil,
		IPThrottleActive:          e.limiter != nil && c.Security.EnableIPThrottle,
		RevokeAllOnPasswordChange: c.Session.RevokeAllOnPasswordChange,
		AuditEnabled:              e.audit != nil,
	}
}
