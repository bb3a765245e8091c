// Package kv implements the typed key/value store adapter used by the
// wallet-auth gate: a thin wrapper over redis/go-redis/v9 exposing only
// get, setex, del, set-membership, set-add with expiry, and scard. The
// response cache does not use it.
package kv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/txindexd/txindexd/internal/txlog"
)

// Store is the KV adapter. A nil *Store is a valid "unavailable" value:
// every method reports ErrUnavailable without touching the network.
type Store struct {
	client *redis.Client
}

// ErrUnavailable is returned by every Store method when the store has no
// configured client, e.g. Redis is disabled or failed to dial at startup.
var ErrUnavailable = redisUnavailableError{}

type redisUnavailableError struct{}

func (redisUnavailableError) Error() string { return "kv store unavailable" }

// Config controls the dial parameters of the adapter.
type Config struct {
	Addr             string
	ConnectTimeout   time.Duration
	CommandTimeout   time.Duration
}

// New dials addr and returns a Store. Dial errors are returned rather
// than panicking so the caller can decide whether to run degraded.
func New(cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		DialTimeout: cfg.ConnectTimeout,
		ReadTimeout: cfg.CommandTimeout,
		WriteTimeout: cfg.CommandTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Store{client: client}, nil
}

// Get returns the value at key, and false if it does not exist.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil {
		return "", false, ErrUnavailable
	}
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		txlog.StoreLog.Errorf("kv get %s: %v", key, err)
		return "", false, err
	}
	return val, true, nil
}

// SetEx sets key to value with the given TTL.
func (s *Store) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	if s == nil {
		return ErrUnavailable
	}
	if err := s.client.SetEx(ctx, key, value, ttl).Err(); err != nil {
		txlog.StoreLog.Errorf("kv setex %s: %v", key, err)
		return err
	}
	return nil
}

// Del deletes key. Deleting a missing key is not an error.
func (s *Store) Del(ctx context.Context, key string) error {
	if s == nil {
		return ErrUnavailable
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		txlog.StoreLog.Errorf("kv del %s: %v", key, err)
		return err
	}
	return nil
}

// SIsMember reports whether member is in the set at key.
func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	if s == nil {
		return false, ErrUnavailable
	}
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		txlog.StoreLog.Errorf("kv sismember %s: %v", key, err)
		return false, err
	}
	return ok, nil
}

// SAdd adds member to the set at key and applies ttl to the whole set.
func (s *Store) SAdd(ctx context.Context, key, member string, ttl time.Duration) error {
	if s == nil {
		return ErrUnavailable
	}
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, member)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		txlog.StoreLog.Errorf("kv sadd %s: %v", key, err)
		return err
	}
	return nil
}

// SCard returns the cardinality of the set at key.
func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	if s == nil {
		return 0, ErrUnavailable
	}
	n, err := s.client.SCard(ctx, key).Result()
	if err != nil {
		txlog.StoreLog.Errorf("kv scard %s: %v", key, err)
		return 0, err
	}
	return n, nil
}

// Healthy reports whether the store answers PING within the given
// context, for use by the readiness endpoint.
func (s *Store) Healthy(ctx context.Context) error {
	if s == nil {
		return ErrUnavailable
	}
	return s.client.Ping(ctx).Err()
}
