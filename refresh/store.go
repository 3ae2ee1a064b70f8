package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when a refresh token is unknown, expired or already redeemed.
	ErrNotFound = errors.New("refresh token not found")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("refresh store unavailable")
)

const (
	DefaultPrefix     = "rt:"
	DefaultUserPrefix = "rtu:"
)

// redeemScript deletes the record and its index entry and returns the blob.
// The user id is read from the blob: byte 1 is the version, byte 2 the
// user id length, followed by the user id.
const redeemScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return false
end
redis.call("DEL", KEYS[1])

local version = string.byte(data, 1)
local user_len = string.byte(data, 2)
if version == 1 and user_len and #data >= 2 + user_len then
  local user_id = string.sub(data, 3, 2 + user_len)
  redis.call("SREM", ARGV[1] .. user_id, ARGV[2])
end
return data
`

var redeemLua = redis.NewScript(redeemScript)

// Config controls key layout.
type Config struct {
	Prefix     string
	UserPrefix string
	// Now overrides the clock used for record timestamps.
	Now func() time.Time
}

// Session is the outcome of a successful Redeem.
type Session struct {
	TokenHash string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store persists refresh sessions in Redis. It is safe for concurrent use.
type Store struct {
	redis      redis.UniversalClient
	prefix     string
	userPrefix string
	now        func() time.Time
}

// NewStore creates a refresh [Store] backed by the given Redis client.
// Empty prefixes fall back to DefaultPrefix and DefaultUserPrefix.
func NewStore(client redis.UniversalClient, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.UserPrefix == "" {
		cfg.UserPrefix = DefaultUserPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		redis:      client,
		prefix:     cfg.Prefix,
		userPrefix: cfg.UserPrefix,
		now:        cfg.Now,
	}
}

func (s *Store) key(hash string) string {
	return s.prefix + hash
}

func (s *Store) userKey(userID string) string {
	return s.userPrefix + userID
}

// Issue mints a raw refresh token for userID, persists its hash with the
// given TTL and returns the raw value. The raw value is never stored.
//
//	Performance: 1 MULTI/EXEC (SET + SADD + PEXPIRE).
func (s *Store) Issue(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("refresh ttl must be positive")
	}

	raw, err := newRawToken()
	if err != nil {
		return "", err
	}
	hash := HashToken(raw)

	now := s.now()
	data, err := encodeRecord(&Record{
		UserID:    userID,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}

	userKey := s.userKey(userID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(hash), data, ttl)
		pipe.SAdd(ctx, userKey, hash)
		pipe.PExpire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return raw, nil
}

// Redeem atomically consumes raw and returns the session it belonged to.
//
// Unknown, expired, already-redeemed and malformed tokens return ErrNotFound.
// Of several concurrent calls with the same raw token at most one succeeds.
//
//	Performance: 1 EVALSHA.
func (s *Store) Redeem(ctx context.Context, raw string) (*Session, error) {
	if !wellFormed(raw) {
		return nil, ErrNotFound
	}
	hash := HashToken(raw)

	data, err := s.consume(ctx, hash)
	if err != nil {
		return nil, err
	}

	rec, err := decodeRecord(data)
	if err != nil {
		// The corrupt record was already deleted by the script.
		return nil, ErrNotFound
	}
	return &Session{
		TokenHash: hash,
		UserID:    rec.UserID,
		CreatedAt: time.Unix(rec.CreatedAt, 0),
		ExpiresAt: time.Unix(rec.ExpiresAt, 0),
	}, nil
}

// Delete removes the record for raw if present. Deleting an unknown token is
// not an error.
func (s *Store) Delete(ctx context.Context, raw string) error {
	if !wellFormed(raw) {
		return nil
	}
	_, err := s.consume(ctx, HashToken(raw))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (s *Store) consume(ctx context.Context, hash string) ([]byte, error) {
	res, err := redeemLua.Run(ctx, s.redis, []string{s.key(hash)}, s.userPrefix, hash).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	str, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected script reply %T", ErrUnavailable, res)
	}
	return []byte(str), nil
}

// RevokeAll deletes every indexed refresh session of userID.
//
// ATOMICITY NOTE: the index is read before the delete, so a token issued
// between the two phases survives. It expires on its own TTL.
func (s *Store) RevokeAll(ctx context.Context, userID string) error {
	userKey := s.userKey(userID)

	hashes, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, hash := range hashes {
		keys = append(keys, s.key(hash))
	}
	keys = append(keys, userKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping measures Redis round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
