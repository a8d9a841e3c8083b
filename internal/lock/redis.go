package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// releaseScript deletes the key only while it still holds our token so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisOptions tunes the Redis lock.
type RedisOptions struct {
	Prefix     string
	TTL        time.Duration
	RetryDelay time.Duration
	MaxWait    time.Duration
}

// RedisLocker is a SET NX PX lock shared by every process talking to the same Redis.
type RedisLocker struct {
	client *redis.Client
	opts   RedisOptions
	logger *slog.Logger
}

// NewRedisLocker builds a locker on the client. Zero options get defaults:
// prefix "hotel:lock:", TTL 10s, retry delay 25ms, max wait 5s.
func NewRedisLocker(client *redis.Client, opts RedisOptions, logger *slog.Logger) *RedisLocker {
	if opts.Prefix == "" {
		opts.Prefix = "hotel:lock:"
	}
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 25 * time.Millisecond
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{client: client, opts: opts, logger: logger}
}

// Lock polls until the key is set by this caller, ctx is done or MaxWait elapses.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.opts.Prefix + key
	tok := uuid.NewString()

	backoff := retry.WithMaxDuration(l.opts.MaxWait, retry.NewConstant(l.opts.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := l.client.SetNX(ctx, redisKey, tok, l.opts.TTL).Result()
		if err != nil {
			return fmt.Errorf("lock: set %s: %w", redisKey, err)
		}
		if !ok {
			return retry.RetryableError(ErrNotAcquired)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotAcquired) || ctx.Err() != nil {
			return nil, errors.Join(ErrNotAcquired, err)
		}
		return nil, err
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// release even if the caller's context is already cancelled
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, tok).Err(); err != nil {
			l.logger.WarnContext(ctx, "failed to release lock", "key", redisKey, "error", err)
		}
	}, nil
}
