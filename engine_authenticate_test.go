package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAuthenticateTokenErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addUser(t, "u1", "alice", "correct-horse", false)
	res := env.login(t, "alice", "correct-horse")
	ctx := context.Background()

	if _, err := env.engine.Authenticate(ctx, ""); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("empty token: expected ErrTokenInvalid, got %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, res.AccessToken+"x"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("tampered token: expected ErrTokenInvalid, got %v", err)
	}

	env.clock.add(-time.Minute)
	if _, err := env.engine.Authenticate(ctx, res.AccessToken); !errors.Is(err, ErrTokenNotYetValid) {
		t.Fatalf("future token: expected ErrTokenNotYetValid, got %v", err)
	}

	env.clock.add(16 * time.Minute)
	if _, err := env.engine.Authenticate(ctx, res.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	snap := env.engine.MetricsSnapshot()
	if got := snap.Counters[MetricAuthenticateFailure]; got != 4 {
		t.Fatalf("expected 4 authenticate failures, got %d", got)
	}
	var observed uint64
	for _, v := range snap.Histograms[MetricAuthenticateLatency] {
		observed += v
	}
	if observed != 4 {
		t.Fatalf("expected 4 latency observations, got %d", observed)
	}
}

func TestAuthenticateRetriesRevocationCheckOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addUser(t, "u1", "alice", "correct-horse", false)
	res := env.login(t, "alice", "correct-horse")

	stub := &stubRegistry{next: env.engine.revocations}
	stub.isRevokedErrs.Store(1)
	env.engine.revocations = stub

	if _, err := env.engine.Authenticate(context.Background(), res.AccessToken); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := stub.isRevokedCall.Load(); got != 2 {
		t.Fatalf("expected 2 revocation lookups, got %d", got)
	}
}

func TestAuthenticateRevocationOutageFailsClosed(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addUser(t, "u1", "alice", "correct-horse", false)
	res := env.login(t, "alice", "correct-horse")

	stub := &stubRegistry{next: env.engine.revocations}
	stub.isRevokedErrs.Store(100)
	env.engine.revocations = stub

	if _, err := env.engine.Authenticate(context.Background(), res.AccessToken); !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}
	if got := stub.isRevokedCall.Load(); got != 2 {
		t.Fatalf("expected exactly one retry, got %d lookups", got)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricRevocationCheckFailure]; got != 1 {
		t.Fatalf("expected revocation failure metric 1, got %d", got)
	}
}

func TestAuthenticateAllowedTypes(t *testing.T) {
	env := newTestEnv(t, nil)
	env.addUser(t, "u1", "alice", "correct-horse", false)
	res := env.login(t, "alice", "correct-horse")

	if _, err := env.engine.Authenticate(context.Background(), res.AccessToken, TokenChangePassword); !errors.Is(err, ErrTokenTypeNotAllowed) {
		t.Fatalf("expected ErrTokenTypeNotAllowed, got %v", err)
	}
	if _, err := env.engine.Authenticate(context.Background(), res.AccessToken, TokenAccess, TokenChangePassword); err != nil {
		t.Fatalf("expected access token accepted, got %v", err)
	}
}

func TestAuditEventsCarryIPAndNoSecrets(t *testing.T) {
	sink := NewChannelSink(16)
	env := newTestEnvWithSink(t, func(cfg *Config) {
		cfg.Audit.Enabled = true
		cfg.Audit.BufferSize = 16
	}, sink)
	env.addUser(t, "u1", "alice", "correct-horse", false)

	ctx := WithClientIP(context.Background(), "198.51.100.33")
	_, _ = env.engine.Login(ctx, "alice", "super-secret-password")

	select {
	case ev := <-sink.Events():
		if ev.EventType != auditEventLoginFailure {
			t.Fatalf("expected %s, got %s", auditEventLoginFailure, ev.EventType)
		}
		if ev.IP != "198.51.100.33" || ev.UserID != "u1" {
			t.Fatalf("unexpected event fields: %+v", ev)
		}
		if ev.Error != string(auditErrInvalidCredentials) {
			t.Fatalf("unexpected error code %q", ev.Error)
		}
		for _, v := range ev.Metadata {
			if v == "super-secret-password" {
				t.Fatal("password leaked into audit metadata")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event")
	}
}
