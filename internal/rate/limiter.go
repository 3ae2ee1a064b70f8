package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	loginUserPrefix = "al:u:"
	loginIPPrefix   = "al:ip:"
)

// incrementScript bumps every key in one round trip, arms the window TTL on
// the first hit and returns the highest resulting count.
var incrementScript = redis.NewScript(`
local highest = 0
for _, key in ipairs(KEYS) do
  local n = redis.call("INCR", key)
  if n == 1 then
    redis.call("PEXPIRE", key, ARGV[1])
  end
  if n > highest then
    highest = n
  end
end
return highest
`)

// Config holds limiter tuning.
type Config struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// Limiter counts failed logins per login name and, optionally, per client IP.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckLogin reports ErrRateLimited when either counter is over budget. It
// never increments.
func (l *Limiter) CheckLogin(ctx context.Context, login, ip string) error {
	values, err := l.redis.MGet(ctx, l.keys(login, ip)...).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	for _, v := range values {
		if counterValue(v) > int64(l.config.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}
	return nil
}

// IncrementLogin records a failed attempt. It returns ErrRateLimited when
// this attempt pushed a counter over the budget.
func (l *Limiter) IncrementLogin(ctx context.Context, login, ip string) error {
	window := strconv.FormatInt(l.config.LoginCooldownDuration.Milliseconds(), 10)

	highest, err := incrementScript.Run(ctx, l.redis, l.keys(login, ip), window).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if highest > int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the counters for the login and IP pair.
func (l *Limiter) ResetLogin(ctx context.Context, login, ip string) error {
	if err := l.redis.Del(ctx, l.keys(login, ip)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginAttempts returns the failed-attempt count of login in the current window.
func (l *Limiter) LoginAttempts(ctx context.Context, login string) (int, error) {
	count, err := l.redis.Get(ctx, loginUserPrefix+login).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(max(count, 0)), nil
}

func (l *Limiter) keys(login, ip string) []string {
	keys := []string{loginUserPrefix + login}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, loginIPPrefix+ip)
	}
	return keys
}

// counterValue reads an MGET slot. Missing or garbled counters read as zero.
func counterValue(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
