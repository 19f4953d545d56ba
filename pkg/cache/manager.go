package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/promptdeck/pkg/records"
)

var (
	// ErrCacheMiss indicates no page is cached for the request.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates a cached page could not be decoded. The
	// entry is dropped when this is returned.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager keeps the last response of every page request in Redis, one key
// per owner, kind and page query. Redis expiry is authoritative: a page is
// served until its key expires and Touch extends a revalidated page.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a page cache on top of redisClient.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis: redisClient,
	}
}

// Page returns the cached response for key or ErrCacheMiss.
func (m *Manager) Page(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	kind := string(key.Kind)

	data, err := m.redis.Get(ctx, key.String()).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		CacheMisses.WithLabelValues(kind).Inc()
		return nil, ErrCacheMiss
	case err != nil:
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		_ = m.redis.Del(ctx, key.String()).Err()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues(kind).Inc()
	return &entry, nil
}

// StorePage caches entry under key until entry.Expires. Pages without an
// ETag cannot be revalidated and are not stored; stored reports whether the
// page was written.
func (m *Manager) StorePage(ctx context.Context, key CacheKey, entry *CacheEntry) (stored bool, err error) {
	if entry == nil {
		return false, fmt.Errorf("cache entry cannot be nil")
	}
	ttl := entry.TTL()
	if entry.ETag == "" || ttl <= 0 {
		return false, nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return false, fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return false, fmt.Errorf("redis set: %w", err)
	}

	CacheStoredBytes.WithLabelValues(string(key.Kind)).Add(float64(len(data)))
	return true, nil
}

// Touch keeps a page the server confirmed with 304 for another ttl. It
// returns ErrCacheMiss when the page expired or was invalidated meanwhile.
func (m *Manager) Touch(ctx context.Context, key CacheKey, ttl time.Duration) error {
	ok, err := m.redis.Expire(ctx, key.String(), ttl).Result()
	if err != nil {
		CacheErrors.WithLabelValues("touch").Inc()
		return fmt.Errorf("redis expire: %w", err)
	}
	if !ok {
		return ErrCacheMiss
	}
	return nil
}

// DeleteKind removes every cached page of owner for kind and returns how many
// entries were removed.
func (m *Manager) DeleteKind(ctx context.Context, owner string, kind records.Kind) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	pattern := KindPattern(owner, kind)
	for {
		keys, next, err := m.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			CacheErrors.WithLabelValues("invalidate").Inc()
			return removed, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := m.redis.Del(ctx, keys...).Result()
			if err != nil {
				CacheErrors.WithLabelValues("invalidate").Inc()
				return removed, fmt.Errorf("redis del: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	CacheInvalidations.WithLabelValues(string(kind)).Add(float64(removed))
	return removed, nil
}
