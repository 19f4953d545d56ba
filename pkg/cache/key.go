package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Sternrassler/promptdeck/pkg/records"
)

// KeyPrefix prefixes every cached page.
const KeyPrefix = "promptdeck:page"

// CacheKey identifies a cached page response.
type CacheKey struct {
	// Owner is the account the page belongs to.
	Owner string

	// Kind is the resource kind of the page (prompts, variables).
	Kind records.Kind

	// Query holds the page parameters (limit, search, cursor, direction).
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: promptdeck:page:owner:kind:query1=val1:query2=val2
//
// Example:
//
//	promptdeck:page:owner-1:prompts:direction=next:limit=10:search=mail
func (k CacheKey) String() string {
	parts := []string{KeyPrefix, url.QueryEscape(k.Owner), string(k.Kind)}

	// Add query params (sorted for determinism, empty values skipped)
	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			if k.Query.Get(key) != "" {
				queryKeys = append(queryKeys, key)
			}
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, url.QueryEscape(k.Query.Get(key))))
		}
	}

	return strings.Join(parts, ":")
}

// KindPattern matches every cached page of owner for kind.
func KindPattern(owner string, kind records.Kind) string {
	return fmt.Sprintf("%s:%s:%s:*", KeyPrefix, url.QueryEscape(owner), kind)
}
