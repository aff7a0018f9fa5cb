package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

const (
	keyNamespace      = "rr"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	lockPrefix        = "lock"
)

var errNotInitialized = errors.New("redis client not initialized")

// incrWindow bumps a fixed-window counter and starts its expiry on the first
// hit, returning the count and the remaining window in milliseconds.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// compareAndExpire resets the TTL of KEYS[1] only while it still holds ARGV[1].
var compareAndExpire = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

// compareAndSwap replaces the value of KEYS[1] with ARGV[2] and a fresh TTL
// only while it still holds ARGV[1].
var compareAndSwap = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
  return 1
end
return 0
`)

// Client carries the Redis primitives the engine relies on: idempotency
// markers, rate limit windows and owner-checked locks. Keys are namespaced
// under "rr".
type Client struct {
	raw *redis.Client
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore is the subset the HTTP idempotency middleware replays
// responses from.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndSwap(ctx context.Context, key, current, next string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, owner string) (bool, error)
	IdempotencyKey(scope, id string) string
}

// New connects using cfg and verifies the server answers.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"redis_db":   opts.DB,
			"redis_pool": opts.PoolSize,
		}), "redis connection established")
	}
	return &Client{raw: raw}, nil
}

// NewFromRaw wraps an existing go-redis client.
func NewFromRaw(raw *redis.Client) *Client {
	return &Client{raw: raw}
}

// optionsFromConfig prefers RETURNS_REDIS_URL. Explicit pool and timeout
// settings fill whatever the URL left unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}

	fill := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}
	fillDur := func(dst *time.Duration, v time.Duration) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&opts.DB, cfg.DB)
	fill(&opts.PoolSize, cfg.PoolSize)
	fill(&opts.MinIdleConns, cfg.MinIdleConns)
	fillDur(&opts.DialTimeout, cfg.DialTimeout)
	fillDur(&opts.ReadTimeout, cfg.ReadTimeout)
	fillDur(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.raw == nil {
		return "", errNotInitialized
	}
	return c.raw.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.raw == nil {
		return false, errNotInitialized
	}
	return c.raw.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.raw == nil {
		return errNotInitialized
	}
	return c.raw.Del(ctx, keys...).Err()
}

// IncrWindow counts a hit in the fixed window stored at key and reports how
// long the window has left. The first hit opens the window atomically.
func (c *Client) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if c.raw == nil {
		return 0, 0, errNotInitialized
	}
	res, err := incrWindow.Run(ctx, c.raw, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("unexpected window reply %v", res)
	}
	remaining := time.Duration(res[1]) * time.Millisecond
	if remaining < 0 {
		remaining = window
	}
	return res[0], remaining, nil
}

// CompareAndDelete deletes key when it still holds owner.
func (c *Client) CompareAndDelete(ctx context.Context, key, owner string) (bool, error) {
	if c.raw == nil {
		return false, errNotInitialized
	}
	n, err := compareAndDelete.Run(ctx, c.raw, []string{key}, owner).Int64()
	return n == 1, err
}

// CompareAndExpire extends key to ttl when it still holds owner.
func (c *Client) CompareAndExpire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if c.raw == nil {
		return false, errNotInitialized
	}
	n, err := compareAndExpire.Run(ctx, c.raw, []string{key}, owner, ttl.Milliseconds()).Int64()
	return n == 1, err
}

// CompareAndSwap overwrites key with next for ttl when it still holds current.
func (c *Client) CompareAndSwap(ctx context.Context, key, current, next string, ttl time.Duration) (bool, error) {
	if c.raw == nil {
		return false, errNotInitialized
	}
	n, err := compareAndSwap.Run(ctx, c.raw, []string{key}, current, next, ttl.Milliseconds()).Int64()
	return n == 1, err
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(parts ...string) string {
	return buildKey(append([]string{rateLimitPrefix}, parts...)...)
}

func (c *Client) LockKey(name string) string {
	return buildKey(lockPrefix, name)
}

func (c *Client) Ping(ctx context.Context) error {
	if c.raw == nil {
		return errNotInitialized
	}
	return c.raw.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func buildKey(parts ...string) string {
	clean := make([]string, 0, len(parts)+1)
	clean = append(clean, keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			clean = append(clean, part)
		}
	}
	return strings.Join(clean, ":")
}
