package cache

import (
	"net/url"
	"strings"
	"testing"

	"github.com/Sternrassler/promptdeck/pkg/records"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "no query",
			key:  CacheKey{Owner: "owner-1", Kind: records.KindPrompts},
			want: "promptdeck:page:owner-1:prompts",
		},
		{
			name: "sorted query",
			key: CacheKey{
				Owner: "owner-1",
				Kind:  records.KindVariables,
				Query: url.Values{"search": []string{"mail"}, "limit": []string{"10"}, "direction": []string{"next"}},
			},
			want: "promptdeck:page:owner-1:variables:direction=next:limit=10:search=mail",
		},
		{
			name: "empty values skipped",
			key: CacheKey{
				Owner: "owner-1",
				Kind:  records.KindPrompts,
				Query: url.Values{"cursor": []string{""}, "limit": []string{"10"}},
			},
			want: "promptdeck:page:owner-1:prompts:limit=10",
		},
		{
			name: "separators escaped",
			key: CacheKey{
				Owner: "team:a*",
				Kind:  records.KindPrompts,
				Query: url.Values{"search": []string{"a:b c"}},
			},
			want: "promptdeck:page:team%3Aa%2A:prompts:search=a%3Ab+c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("CacheKey.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindPattern(t *testing.T) {
	pattern := KindPattern("owner-1", records.KindPrompts)
	if pattern != "promptdeck:page:owner-1:prompts:*" {
		t.Errorf("KindPattern() = %s", pattern)
	}

	key := CacheKey{Owner: "owner-1", Kind: records.KindPrompts, Query: url.Values{"limit": []string{"10"}}}.String()
	if !strings.HasPrefix(key, strings.TrimSuffix(pattern, "*")) {
		t.Errorf("key %s not covered by pattern %s", key, pattern)
	}

	other := CacheKey{Owner: "owner-1", Kind: records.KindVariables, Query: url.Values{"limit": []string{"10"}}}.String()
	if strings.HasPrefix(other, strings.TrimSuffix(pattern, "*")) {
		t.Errorf("variables key %s covered by prompts pattern", other)
	}
}

// TestCacheKey_Determinism ensures same input always produces same key
func TestCacheKey_Determinism(t *testing.T) {
	key := CacheKey{
		Owner: "owner-1",
		Kind:  records.KindPrompts,
		Query: url.Values{
			"limit":     []string{"10"},
			"search":    []string{"greeting"},
			"cursor":    []string{"eyJ0IjoxfQ"},
			"direction": []string{"prev"},
		},
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		if got := key.String(); got != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, got, first)
		}
	}
}
