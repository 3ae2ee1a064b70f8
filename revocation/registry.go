// Package revocation implements the deny-list of access-token ids that must
// be rejected before their natural expiry.
//
// Entries are plain Redis keys "<prefix><jti>" whose TTL equals the remaining
// lifetime of the token they deny, so the registry never outgrows the set of
// still-valid tokens.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps backend failures.
var ErrUnavailable = errors.New("revocation registry unavailable")

// DefaultPrefix matches the key layout of the legacy user service.
const DefaultPrefix = "bl:token:"

// Registry is safe for concurrent use.
type Registry struct {
	redis  redis.UniversalClient
	prefix string
}

func NewRegistry(client redis.UniversalClient, prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Registry{redis: client, prefix: prefix}
}

func (r *Registry) key(tokenID string) string {
	return r.prefix + tokenID
}

// Revoke denies tokenID for remaining. A non-positive remaining lifetime is
// a no-op because the token can no longer verify anyway.
func (r *Registry) Revoke(ctx context.Context, tokenID string, remaining time.Duration) error {
	if tokenID == "" {
		return errors.New("token id is required")
	}
	if remaining <= 0 {
		return nil
	}
	if err := r.redis.Set(ctx, r.key(tokenID), "1", remaining).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether tokenID is currently denied.
func (r *Registry) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.redis.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}
