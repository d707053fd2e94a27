// Package cache stores encoded statistics payloads in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	keyPrefix     = "storystats:stats"
	generationKey = keyPrefix + ":generation"
)

// Cache holds payloads keyed by canonical criteria. Get reports the
// generation it looked in; Set files the payload under that generation, so
// a payload computed before an Invalidate is never served after it.
// Set ignores a negative generation.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, generation int64, ok bool)
	Set(ctx context.Context, key string, generation int64, value []byte)
	// Invalidate drops every cached payload.
	Invalidate(ctx context.Context) error
	Close() error
}

// Noop caches nothing.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, int64, bool) { return nil, 0, false }
func (Noop) Set(context.Context, string, int64, []byte)        {}
func (Noop) Invalidate(context.Context) error                  { return nil }
func (Noop) Close() error                                      { return nil }

// Redis is a Cache backed by a Redis server. Entries are namespaced by a
// generation counter; bumping the counter invalidates all of them at once
// and the old entries expire with their TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Entry
}

// Options tune Connect.
type Options struct {
	TTL time.Duration
	// MaxElapsed bounds the connection retries.
	MaxElapsed time.Duration
	Log        *logrus.Entry
}

// Connect dials url and pings it, retrying with exponential backoff.
// An url that does not parse is used as a plain host:port address.
func Connect(ctx context.Context, url string, opts Options) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = 10 * time.Second
	}

	client := redis.NewClient(opt)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = opts.MaxElapsed
	op := func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			opts.Log.WithError(err).Warn("redis not reachable, retrying")
			return err
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opt.Addr, err)
	}

	opts.Log.WithField("addr", opt.Addr).Info("redis cache connected")
	return &Redis{client: client, ttl: opts.TTL, log: opts.Log}, nil
}

func entryKey(generation int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", keyPrefix, generation, key)
}

func (r *Redis) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get returns the cached payload for key in the current generation.
// Errors count as a miss; a failed generation read reports -1.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, int64, bool) {
	gen, err := r.generation(ctx)
	if err != nil {
		r.log.WithError(err).Warn("reading cache generation")
		return nil, -1, false
	}
	val, err := r.client.Get(ctx, entryKey(gen, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WithError(err).Warn("reading cached payload")
		}
		return nil, gen, false
	}
	return val, gen, true
}

// Set stores value under key in the given generation for the configured
// TTL. If the generation has moved on, the entry is unreachable and ages
// out with its TTL.
func (r *Redis) Set(ctx context.Context, key string, generation int64, value []byte) {
	if generation < 0 {
		return
	}
	if err := r.client.Set(ctx, entryKey(generation, key), value, r.ttl).Err(); err != nil {
		r.log.WithError(err).Warn("writing cached payload")
	}
}

// Invalidate bumps the generation counter.
func (r *Redis) Invalidate(ctx context.Context) error {
	return r.client.Incr(ctx, generationKey).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
