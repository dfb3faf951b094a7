// Package cache implements the read-through cache used by read operations.
//
// Entries are advisory: any failure of the backing store degrades to calling
// the loader directly, never to an error. Invalidation is invoked synchronously
// by the mutating operation before it returns, so a caller can never observe a
// cache entry older than the most recent committed write it should see.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/lumen-lms/lumen-lms/internal/observability"
)

// Store wraps Redis based read-through caching with prefix invalidation.
type Store struct {
	client  *redis.Client
	logger  *slog.Logger
	metrics *observability.Metrics
	group   singleflight.Group
}

// NewStore instantiates the cache helper. A nil client yields a pass-through
// store that always calls the loader.
func NewStore(client *redis.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}
}

// WithMetrics attaches hit/miss instrumentation and returns the store.
func (s *Store) WithMetrics(m *observability.Metrics) *Store {
	s.metrics = m
	return s
}

// Key composes a cache key from an entity prefix and a stable serialization of
// the call arguments. Identical arguments always produce the same key.
func Key(prefix string, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, prefix)
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			parts = append(parts, v)
		case fmt.Stringer:
			parts = append(parts, v.String())
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				parts = append(parts, fmt.Sprintf("%v", v))
				continue
			}
			parts = append(parts, string(raw))
		}
	}
	return strings.Join(parts, ":")
}

// Fetch loads a cached value into dest or populates it using the loader.
// Concurrent calls for the same key share a single loader invocation.
func (s *Store) Fetch(ctx context.Context, key string, ttl time.Duration, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if s == nil || s.client == nil {
		return loadInto(ctx, dest, loader)
	}

	payload, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		if unmarshalErr := json.Unmarshal(payload, dest); unmarshalErr == nil {
			s.metrics.CacheHit(keyPrefix(key))
			return nil
		}
		// Corrupt entry, fall through and repopulate.
	} else if errors.Is(err, redis.Nil) {
		s.metrics.CacheMiss(keyPrefix(key))
	} else {
		s.logger.Warn("cache read bypassed", slog.String("key", key), slog.Any("error", err))
		return loadInto(ctx, dest, loader)
	}

	raw, err, _ := s.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if setErr := s.client.Set(ctx, key, encoded, ttl).Err(); setErr != nil {
			s.logger.Warn("cache write skipped", slog.String("key", key), slog.Any("error", setErr))
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

// Invalidate removes every entry whose key starts with the entity prefix. When
// ids are given, only entries mentioning one of those ids are removed.
func (s *Store) Invalidate(ctx context.Context, entityKind string, ids ...string) {
	if s == nil || s.client == nil {
		return
	}
	patterns := []string{entityKind + ":*", entityKind}
	if len(ids) > 0 {
		patterns = make([]string, 0, len(ids))
		for _, id := range ids {
			patterns = append(patterns, entityKind+":*"+id+"*")
		}
	}
	for _, pattern := range patterns {
		if err := s.deleteMatching(ctx, pattern); err != nil {
			s.logger.Warn("cache invalidation incomplete", slog.String("pattern", pattern), slog.Any("error", err))
		}
	}
}

func (s *Store) deleteMatching(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	keys := make([]string, 0, 16)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func keyPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

func loadInto(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
