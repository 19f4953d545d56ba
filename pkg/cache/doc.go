// Package cache stores page responses of the promptdeck API in Redis.
//
// The client keeps the last response of every page request together with its
// ETag and revalidates it with If-None-Match before use, so a cached page is
// never shown without the server confirming it is current. Mutations drop
// every cached page of the affected kind.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Owner: "owner-1",
//		Kind:  records.KindPrompts,
//		Query: url.Values{"limit": []string{"10"}},
//	}
//
//	entry, err := manager.Page(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Cache miss - fetch from the API, then
//		_, err = manager.StorePage(ctx, key, entry)
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// The API answers 304 if the page did not change
//	}
//
//	// On 304 keep the cached body for another DefaultTTL
//	err = manager.Touch(ctx, key, cache.DefaultTTL)
//
// # Invalidation
//
//	// After creating, updating or deleting a prompt
//	removed, err := manager.DeleteKind(ctx, "owner-1", records.KindPrompts)
//
// # Metrics
//
//   - promptdeck_cache_hits_total{kind} - Cache hits
//   - promptdeck_cache_misses_total{kind} - Cache misses
//   - promptdeck_cache_stored_bytes_total{kind} - Bytes written
//   - promptdeck_cache_304_responses_total - Successful revalidations
//   - promptdeck_cache_invalidated_entries_total{kind} - Invalidated pages
//   - promptdeck_cache_errors_total{operation} - Cache operation errors
package cache
