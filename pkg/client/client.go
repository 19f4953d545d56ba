// Package client is the HTTP client of the promptdeck API. It supplies the
// page fetchers driven by pagination controllers and the mutations whose
// completion invalidates them.
package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/promptdeck/pkg/cache"
	"github.com/Sternrassler/promptdeck/pkg/logging"
	"github.com/Sternrassler/promptdeck/pkg/pagination"
	"github.com/Sternrassler/promptdeck/pkg/records"
)

// Prometheus metrics for client operations.
var (
	clientRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptdeck_client_requests_total",
		Help: "Total API requests by operation and status",
	}, []string{"operation", "status"})

	clientRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promptdeck_client_request_duration_seconds",
		Help:    "API request duration in seconds by operation, retries included",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"operation"})

	clientErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptdeck_client_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// Client talks to a promptdeck server on behalf of one bearer token.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	owner      string
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the API server, e.g. "http://localhost:8080"
	BaseURL string

	// Token is sent as "Authorization: Bearer <token>"
	Token string

	// UserAgent header
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration

	// Retry policy for reads
	Retry RetryConfig

	// Redis enables the page cache when set
	Redis *redis.Client
}

// DefaultConfig returns a configuration without page cache.
func DefaultConfig(baseURL, token string) Config {
	return Config{
		BaseURL:   baseURL,
		Token:     token,
		UserAgent: "promptdeck-client/1.0",
		Timeout:   15 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "promptdeck-client/1.0"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		owner:      tokenFingerprint(cfg.Token),
		logger:     logging.NewLogger("api-client"),
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}
	return c, nil
}

// tokenFingerprint identifies the token's owner in cache keys without
// storing the token.
func tokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

// Prompts returns the page fetcher for prompts.
func (c *Client) Prompts() pagination.Fetcher[records.Prompt] {
	return pagination.FetchFunc[records.Prompt](func(ctx context.Context, req pagination.Request) (pagination.Page[records.Prompt], error) {
		return fetchPage[records.Prompt](ctx, c, records.KindPrompts, req, nil)
	})
}

// PromptSummaries returns the page fetcher for (id, label) prompt pairs.
func (c *Client) PromptSummaries() pagination.Fetcher[records.PromptSummary] {
	return pagination.FetchFunc[records.PromptSummary](func(ctx context.Context, req pagination.Request) (pagination.Page[records.PromptSummary], error) {
		return fetchPage[records.PromptSummary](ctx, c, records.KindPrompts, req, url.Values{"view": []string{"summary"}})
	})
}

// Variables returns the page fetcher for variables.
func (c *Client) Variables() pagination.Fetcher[records.Variable] {
	return pagination.FetchFunc[records.Variable](func(ctx context.Context, req pagination.Request) (pagination.Page[records.Variable], error) {
		return fetchPage[records.Variable](ctx, c, records.KindVariables, req, nil)
	})
}

func fetchPage[T any](ctx context.Context, c *Client, kind records.Kind, req pagination.Request, extra url.Values) (pagination.Page[T], error) {
	query := url.Values{}
	for k, v := range extra {
		query[k] = v
	}
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.SearchTerm != "" {
		query.Set("search", req.SearchTerm)
	}
	if req.Cursor != "" {
		query.Set("cursor", string(req.Cursor))
	}
	if req.Direction != "" {
		query.Set("direction", string(req.Direction))
	}

	body, err := c.get(ctx, "list_"+string(kind), "/api/"+string(kind), query, kind)
	if err != nil {
		return pagination.Page[T]{}, err
	}

	var page pagination.Page[T]
	if err := json.Unmarshal(body, &page); err != nil {
		return pagination.Page[T]{}, &APIError{
			StatusCode: http.StatusOK,
			Class:      ErrorClassServer,
			Message:    "decode page",
			Err:        err,
		}
	}
	if page.Rows == nil {
		page.Rows = []T{}
	}
	return page, nil
}

// FetchAllPrompts returns every prompt summary through the extension export.
func (c *Client) FetchAllPrompts(ctx context.Context) ([]records.PromptSummary, error) {
	body, err := c.get(ctx, "fetch_prompts", "/api/extension/fetch-prompts", nil, "")
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []records.PromptSummary `json:"data"`
	}
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// FetchAllVariables returns every variable through the extension export.
func (c *Client) FetchAllVariables(ctx context.Context) ([]records.Variable, error) {
	body, err := c.get(ctx, "fetch_variables", "/api/extension/fetch-variables", nil, "")
	if err != nil {
		return nil, err
	}
	var out struct {
		Data []records.Variable `json:"data"`
	}
	if err := decode(body, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// FetchPromptContent returns the content of a prompt. With render set, the
// server expands {{label}} references with the owner's variables.
func (c *Client) FetchPromptContent(ctx context.Context, id string, render bool) (string, error) {
	query := url.Values{"prompt-id": []string{id}}
	if render {
		query.Set("render", "true")
	}
	body, err := c.get(ctx, "fetch_prompt", "/api/extension/fetch-prompt", query, "")
	if err != nil {
		return "", err
	}
	var out struct {
		Content string `json:"content"`
	}
	if err := decode(body, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "health", "/health", nil, "")
	return err
}

// CreatePrompt creates a prompt.
func (c *Client) CreatePrompt(ctx context.Context, label, content string) (records.Prompt, error) {
	var out records.Prompt
	err := c.mutate(ctx, http.MethodPost, records.KindPrompts, "", records.Prompt{Label: label, Content: content}, &out)
	return out, err
}

// UpdatePrompt replaces label and content of a prompt.
func (c *Client) UpdatePrompt(ctx context.Context, id, label, content string) (records.Prompt, error) {
	var out records.Prompt
	err := c.mutate(ctx, http.MethodPut, records.KindPrompts, id, records.Prompt{Label: label, Content: content}, &out)
	return out, err
}

// DeletePrompt deletes a prompt.
func (c *Client) DeletePrompt(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, records.KindPrompts, id, nil, nil)
}

// CreateVariable creates a variable.
func (c *Client) CreateVariable(ctx context.Context, label, value string) (records.Variable, error) {
	var out records.Variable
	err := c.mutate(ctx, http.MethodPost, records.KindVariables, "", records.Variable{Label: label, Value: value}, &out)
	return out, err
}

// UpdateVariable replaces label and value of a variable.
func (c *Client) UpdateVariable(ctx context.Context, id, label, value string) (records.Variable, error) {
	var out records.Variable
	err := c.mutate(ctx, http.MethodPut, records.KindVariables, id, records.Variable{Label: label, Value: value}, &out)
	return out, err
}

// DeleteVariable deletes a variable.
func (c *Client) DeleteVariable(ctx context.Context, id string) error {
	return c.mutate(ctx, http.MethodDelete, records.KindVariables, id, nil, nil)
}

// Invalidate drops every cached page of kind. Mutations call it on success.
func (c *Client) Invalidate(ctx context.Context, kind records.Kind) error {
	if c.cache == nil {
		return nil
	}
	removed, err := c.cache.DeleteKind(ctx, c.owner, kind)
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", kind, err)
	}
	c.logger.Debug().
		Str("kind", string(kind)).
		Int("entries", removed).
		Msg("Cached pages invalidated")
	return nil
}

// get performs an idempotent read with retries. Reads of a resource kind go
// through the page cache when one is configured.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, kind records.Kind) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		clientRequestDuration.WithLabelValues(op).Observe(time.Since(startTime).Seconds())
	}()

	var (
		cacheKey    cache.CacheKey
		cachedEntry *cache.CacheEntry
	)
	useCache := c.cache != nil && kind != ""
	if useCache {
		cacheKey = cache.CacheKey{Owner: c.owner, Kind: kind, Query: query}
		entry, err := c.cache.Page(ctx, cacheKey)
		switch {
		case err == nil:
			cachedEntry = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("operation", op).Msg("Cache get error")
		}
	}

	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			return err
		}
		if cachedEntry != nil {
			cache.AddConditionalHeaders(req, cachedEntry)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return c.fail(op, &APIError{Class: ErrorClassTransport, Message: "request failed", Err: err})
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotModified && cachedEntry != nil:
			clientRequestsTotal.WithLabelValues(op, "304").Inc()
			cache.ConditionalRequests.Inc()
			if err := c.cache.Touch(ctx, cacheKey, cache.DefaultTTL); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
				c.logger.Warn().Err(err).Msg("Failed to extend cached page")
			}
			body = cachedEntry.Data
			return nil

		case resp.StatusCode >= 300:
			return c.fail(op, responseError(resp))
		}

		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			return c.fail(op, &APIError{StatusCode: resp.StatusCode, Class: ErrorClassTransport, Message: "read body", Err: err})
		}
		clientRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
		body = entry.Data

		if useCache {
			if _, err := c.cache.StorePage(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// mutate sends a write once and invalidates the cached pages of kind when it
// succeeds.
func (c *Client) mutate(ctx context.Context, method string, kind records.Kind, id string, in, out any) error {
	op := strings.ToLower(method) + "_" + string(kind)
	startTime := time.Now()
	defer func() {
		clientRequestDuration.WithLabelValues(op).Observe(time.Since(startTime).Seconds())
	}()

	path := "/api/" + string(kind)
	if id != "" {
		path += "/" + url.PathEscape(id)
	}

	var payload io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", kind, err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, nil, payload)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(op, &APIError{Class: ErrorClassTransport, Message: "request failed", Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return c.fail(op, responseError(resp))
	}
	clientRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{StatusCode: resp.StatusCode, Class: ErrorClassServer, Message: "decode response", Err: err}
		}
	}

	if err := c.Invalidate(ctx, kind); err != nil {
		c.logger.Warn().Err(err).Str("kind", string(kind)).Msg("Failed to invalidate cached pages")
	}
	c.logger.Debug().
		Str("operation", op).
		Str("id", id).
		Dur("duration", time.Since(startTime)).
		Msg("Mutation completed")
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.config.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// fail records err and returns it.
func (c *Client) fail(op string, err *APIError) error {
	clientErrorsTotal.WithLabelValues(string(err.Class)).Inc()
	status := "transport_error"
	if err.StatusCode > 0 {
		status = strconv.Itoa(err.StatusCode)
	}
	clientRequestsTotal.WithLabelValues(op, status).Inc()

	c.logger.Warn().
		Str("operation", op).
		Int("status", err.StatusCode).
		Str("error_class", string(err.Class)).
		Msg(err.Message)
	return err
}

// responseError builds an APIError from a failed response, using the
// server's {"error": "..."} body as message when present.
func responseError(resp *http.Response) *APIError {
	msg := resp.Status
	var body struct {
		Error string `json:"error"`
	}
	if b, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
		if json.Unmarshal(b, &body) == nil && body.Error != "" {
			msg = body.Error
		}
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Class:      classifyStatus(resp.StatusCode),
		Message:    msg,
	}
}

func decode(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{StatusCode: http.StatusOK, Class: ErrorClassServer, Message: "decode response", Err: err}
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
