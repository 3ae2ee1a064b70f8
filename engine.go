package authcore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/refresh"
)

type refreshStore interface {
	Issue(ctx context.Context, userID string, ttl time.Duration) (string, error)
	Redeem(ctx context.Context, raw string) (*refresh.Session, error)
	Delete(ctx context.Context, raw string) error
	RevokeAll(ctx context.Context, userID string) error
	Ping(ctx context.Context) (time.Duration, error)
}

type revocationRegistry interface {
	Revoke(ctx context.Context, tokenID string, remaining time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Engine is the session orchestrator. It is the only writer of refresh
// sessions and deny-list entries.
//
// Engine methods are safe for concurrent use after [Builder.Build].
type Engine struct {
	config      Config
	credentials CredentialStore
	hasher      *password.Hasher
	tokens      *jwt.Manager
	refresh     refreshStore
	revocations revocationRegistry
	limiter     *rate.Limiter
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	log         *slog.Logger
	now         func() time.Time
}

// Close flushes and stops the audit dispatcher. It does not close the Redis client.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the engine counters; a nil Engine yields empty maps.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return emptySnapshot()
	}
	return e.metrics.Snapshot()
}

// Ping checks the Redis backend and returns the round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	latency, err := e.refresh.Ping(opCtx)
	if err != nil {
		return 0, unavailable(err)
	}
	return latency, nil
}

// Config returns a copy of the engine configuration without key material.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	cfg := cloneConfig(e.config)
	cfg.JWT.PrivateKey = nil
	cfg.JWT.PublicKey = nil
	return cfg
}

func (e *Engine) ready() error {
	if e == nil || e.credentials == nil || e.tokens == nil || e.refresh == nil || e.revocations == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// opContext bounds a single store or collaborator call.
func (e *Engine) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(orBackground(ctx), e.config.Store.OperationTimeout)
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}
