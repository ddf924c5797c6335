package idcache

import (
	"context"
	"sync"
)

// absentMarker stands in for null since redis hash values are plain strings.
const absentMarker = "!absent"

// DefaultRedisKey is the hash that holds the cache.
const DefaultRedisKey = "dj:uri_cache"

// HashClient is the part of pkg/redis.Client the backend uses.
type HashClient interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSetAll(ctx context.Context, key string, values map[string]string) error
	HDel(ctx context.Context, key string, fields ...string) (int64, error)
}

// RedisBackend keeps the cache in a single redis hash so several hosts can
// share resolution results.
type RedisBackend struct {
	client HashClient
	key    string

	mu sync.Mutex
	// known holds the fields this backend last loaded or wrote. Fields missing
	// from a later Save were forgotten and are deleted from the hash; fields
	// added by other hosts are left alone.
	known map[string]struct{}
}

func NewRedisBackend(client HashClient, key string) *RedisBackend {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBackend{client: client, key: key, known: make(map[string]struct{})}
}

func (b *RedisBackend) Load(ctx context.Context) (map[string]Entry, error) {
	raw, err := b.client.HGetAll(ctx, b.key)
	if err != nil {
		return nil, err
	}
	b.remember(raw)
	return decodeHash(raw), nil
}

func (b *RedisBackend) Save(ctx context.Context, entries map[string]Entry) error {
	b.mu.Lock()
	var stale []string
	for k := range b.known {
		if _, ok := entries[k]; !ok {
			stale = append(stale, k)
		}
	}
	b.mu.Unlock()

	if len(stale) > 0 {
		if _, err := b.client.HDel(ctx, b.key, stale...); err != nil {
			return err
		}
		logger.Debug().Strs("keys", stale).Msg("Removed forgotten identifiers")
	}
	encoded := encodeHash(entries)
	if err := b.client.HSetAll(ctx, b.key, encoded); err != nil {
		return err
	}
	b.remember(encoded)
	return nil
}

func (b *RedisBackend) remember(fields map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.known = make(map[string]struct{}, len(fields))
	for k := range fields {
		b.known[k] = struct{}{}
	}
}

func encodeHash(entries map[string]Entry) map[string]string {
	out := make(map[string]string, len(entries))
	for k, e := range entries {
		if e.Absent {
			out[k] = absentMarker
			continue
		}
		out[k] = e.ID
	}
	return out
}

func decodeHash(raw map[string]string) map[string]Entry {
	out := make(map[string]Entry, len(raw))
	for k, v := range raw {
		if v == absentMarker || v == "" {
			out[k] = Absent()
			continue
		}
		out[k] = Found(v)
	}
	return out
}
