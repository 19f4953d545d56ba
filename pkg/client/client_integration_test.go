//go:build integration

package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/promptdeck/internal/testutil"
	"github.com/Sternrassler/promptdeck/pkg/cache"
	"github.com/Sternrassler/promptdeck/pkg/pagination"
	"github.com/Sternrassler/promptdeck/pkg/records"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_ConditionalPageCache(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler("/api/prompts", testutil.NewConditionalHandler(`"page-v1"`,
		`{"data":[{"id":"p1","label":"greeting","content":"Hi"}],"hasMore":false}`))

	cfg := DefaultConfig(mock.URL(), "token-1")
	cfg.Retry = fastRetry()
	cfg.Redis = redisClient
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	req := pagination.Request{Limit: 10}

	first, err := c.Prompts().FetchPage(ctx, req)
	if err != nil {
		t.Fatalf("first FetchPage() error = %v", err)
	}
	if mock.GetConditionalCount() != 0 {
		t.Error("first request should not be conditional")
	}

	second, err := c.Prompts().FetchPage(ctx, req)
	if err != nil {
		t.Fatalf("second FetchPage() error = %v", err)
	}
	if mock.GetConditionalCount() != 1 {
		t.Errorf("conditional requests = %d, want 1", mock.GetConditionalCount())
	}
	if len(second.Rows) != 1 || second.Rows[0].ID != first.Rows[0].ID {
		t.Errorf("cached page = %+v, want %+v", second, first)
	}
}

func TestIntegration_MutationInvalidatesCache(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler("/api/prompts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"p2","label":"new","content":"x"}`))
			return
		}
		testutil.NewConditionalHandler(`"page-v1"`, `{"data":[],"hasMore":false}`)(w, r)
	})

	cfg := DefaultConfig(mock.URL(), "token-1")
	cfg.Redis = redisClient
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if _, err := c.Prompts().FetchPage(ctx, pagination.Request{Limit: 10}); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if _, err := c.Variables().FetchPage(ctx, pagination.Request{Limit: 10}); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	if _, err := c.CreatePrompt(ctx, "new", "x"); err != nil {
		t.Fatalf("CreatePrompt() error = %v", err)
	}

	removed, err := c.GetCache().DeleteKind(ctx, c.owner, records.KindPrompts)
	if err != nil {
		t.Fatalf("DeleteKind() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("prompt pages left after mutation: %d", removed)
	}

	key := cache.CacheKey{Owner: c.owner, Kind: records.KindVariables, Query: map[string][]string{"limit": {"10"}}}
	if _, err := c.GetCache().Page(ctx, key); err != nil {
		t.Errorf("variable page should survive a prompt mutation: %v", err)
	}
}
