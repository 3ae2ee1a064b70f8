package httpapi

import (
	"net/http"
	"time"
)

// Options configures the HTTP transport.
type Options struct {
	// CookieName names the refresh token cookie.
	CookieName string
	// CookieSecure sets the Secure attribute. Enable it behind TLS.
	CookieSecure bool
	// CookieMaxAge should match the engine's refresh TTL.
	CookieMaxAge time.Duration
	// MaxBodyBytes bounds JSON request bodies.
	MaxBodyBytes int64
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
	// AllowedOrigins enables credentialed CORS for the listed origins.
	AllowedOrigins []string
	// Metrics is served on GET /metrics when set.
	Metrics http.Handler
}

// DefaultOptions returns the transport defaults.
func DefaultOptions() Options {
	return Options{
		CookieName:   "refreshToken",
		CookieMaxAge: 30 * 24 * time.Hour,
		MaxBodyBytes: 16 << 10,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.CookieName == "" {
		o.CookieName = def.CookieName
	}
	if o.CookieMaxAge <= 0 {
		o.CookieMaxAge = def.CookieMaxAge
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = def.MaxBodyBytes
	}
	return o
}
