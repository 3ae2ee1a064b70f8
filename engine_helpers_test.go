package authcore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var testSigningKey = []byte("authcore-test-signing-key-0123456789")

type mockCredentialStore struct {
	mu      sync.Mutex
	users   map[string]UserCredential
	byLogin map[string]string

	findErr   error
	updateErr error

	updatePasswordCalls int
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{
		users:   make(map[string]UserCredential),
		byLogin: make(map[string]string),
	}
}

func (m *mockCredentialStore) put(u UserCredential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.byLogin[u.Login] = u.ID
}

func (m *mockCredentialStore) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		delete(m.byLogin, u.Login)
	}
	delete(m.users, id)
}

func (m *mockCredentialStore) get(id string) UserCredential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *mockCredentialStore) updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatePasswordCalls
}

func (m *mockCredentialStore) FindByLogin(_ context.Context, login string) (*UserCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	id, ok := m.byLogin[login]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	u := m.users[id]
	return &u, nil
}

func (m *mockCredentialStore) FindByID(_ context.Context, id string) (*UserCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	return &u, nil
}

func (m *mockCredentialStore) UpdatePassword(_ context.Context, id, newHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updatePasswordCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	u, ok := m.users[id]
	if !ok {
		return ErrCredentialNotFound
	}
	u.PasswordHash = newHash
	u.MustChangePassword = false
	m.users[id] = u
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubRegistry wraps the real registry with injectable failures.
type stubRegistry struct {
	next          revocationRegistry
	revokeErr     error
	isRevokedErrs atomic.Int32 // number of leading IsRevoked calls that fail
	isRevokedCall atomic.Int32
}

func (s *stubRegistry) Revoke(ctx context.Context, tokenID string, remaining time.Duration) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	return s.next.Revoke(ctx, tokenID, remaining)
}

func (s *stubRegistry) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n := s.isRevokedCall.Add(1)
	if n <= s.isRevokedErrs.Load() {
		return false, errors.New("revocation backend timeout")
	}
	return s.next.IsRevoked(ctx, tokenID)
}

type testEnv struct {
	engine *Engine
	store  *mockCredentialStore
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *fakeClock
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = testSigningKey
	cfg.JWT.Issuer = "authcore-test"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.BcryptCost = 4
	cfg.Store.RetryBackoff = 5 * time.Millisecond
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	return newTestEnvWithSink(t, mutate, nil)
}

func newTestEnvWithSink(t *testing.T, mutate func(*Config), sink AuditSink) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := newMockCredentialStore()

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialStore(store).
		WithAuditSink(sink).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.now = clock.now

	engine, err := b.Build()
	if err != nil {
		_ = rdb.Close()
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &testEnv{engine: engine, store: store, mr: mr, rdb: rdb, clock: clock}
}

// addUser stores a user whose hash was produced by the engine's own hasher.
func (env *testEnv) addUser(t *testing.T, id, login, plaintext string, mustChange bool) {
	t.Helper()
	hash, err := env.engine.hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	env.store.put(UserCredential{
		ID:                 id,
		Login:              login,
		PasswordHash:       hash,
		MustChangePassword: mustChange,
		Role:               "member",
	})
}

// advance moves both the token clock and the Redis clock.
func (env *testEnv) advance(d time.Duration) {
	env.clock.add(d)
	env.mr.FastForward(d)
}

func (env *testEnv) keysWithPrefix(prefix string) []string {
	var out []string
	for _, k := range env.mr.Keys() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

func (env *testEnv) login(t *testing.T, login, plaintext string) *LoginResult {
	t.Helper()
	res, err := env.engine.Login(context.Background(), login, plaintext)
	if err != nil {
		t.Fatalf("Login(%q) failed: %v", login, err)
	}
	return res
}
