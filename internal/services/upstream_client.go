package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/platformbuilds/delivery-hours/internal/config"
	"github.com/platformbuilds/delivery-hours/pkg/logger"
)

// UpstreamClient performs GET requests against one upstream service spread
// across one or more base URLs.
type UpstreamClient struct {
	name      string
	endpoints []string
	client    *http.Client
	logger    logger.Logger
	current   int // round-robin cursor

	// guards endpoints, cursor and client
	mu sync.Mutex

	// retry knobs
	attempts  int
	backoffMS int // base backoff (ms) for attempt 1; then doubles
}

func NewUpstreamClient(name string, cfg config.ServiceConfig, logger logger.Logger) *UpstreamClient {
	backoff := cfg.BackoffMS
	if backoff <= 0 {
		backoff = config.DefaultUpstreamBackoffMS
	}
	return &UpstreamClient{
		name:      name,
		endpoints: trimEndpoints(cfg.Endpoints),
		client:    newHTTPClient(cfg.TimeoutDuration(), nil),
		logger:    logger,
		attempts:  cfg.Retries + 1,
		backoffMS: backoff,
	}
}

func newHTTPClient(timeout time.Duration, tlsCfg *tls.Config) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     tlsCfg,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 50,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// UseTLS replaces the transport so new connections verify against tlsCfg.
// Pooled connections made under the previous config are closed.
func (c *UpstreamClient) UseTLS(tlsCfg *tls.Config) {
	c.mu.Lock()
	prev := c.client
	c.client = newHTTPClient(prev.Timeout, tlsCfg)
	c.mu.Unlock()
	prev.CloseIdleConnections()
}

func (c *UpstreamClient) httpClient() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// Name identifies the upstream in logs, metrics and cache keys.
func (c *UpstreamClient) Name() string { return c.name }

// ReplaceEndpoints swaps the list used for round-robin (used by discovery)
func (c *UpstreamClient) ReplaceEndpoints(eps []string) {
	c.mu.Lock()
	c.endpoints = trimEndpoints(eps)
	c.current = 0
	c.mu.Unlock()
	c.logger.Info("Upstream endpoints updated", "service", c.name, "count", len(eps))
}

// Endpoints returns a copy of the current base URLs.
func (c *UpstreamClient) Endpoints() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.endpoints...)
}

// Get fetches path (relative to a base URL) and returns the body of a 2xx
// answer. 404 maps to ErrNotFound, other statuses and transport failures to
// *UpstreamError.
func (c *UpstreamClient) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	endpoint := c.selectEndpoint()
	if endpoint == "" {
		return nil, &UpstreamError{Service: c.name, StatusCode: http.StatusInternalServerError, Detail: "no endpoint configured"}
	}

	urlStr := endpoint + path
	if len(query) > 0 {
		urlStr += "?" + query.Encode()
	}

	c.logger.Debug("Making HTTP request", "service", c.name, "url", urlStr)

	resp, err := c.doRequestWithRetry(ctx, urlStr)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", c.name, path, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &UpstreamError{Service: c.name, StatusCode: resp.StatusCode, Detail: readBodySnippet(resp.Body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Service: c.name, StatusCode: http.StatusInternalServerError, Detail: "read body", Err: err}
	}

	c.logger.Info("HTTP request successful", "service", c.name, "path", path, "status", resp.StatusCode)
	return body, nil
}

// HealthCheck reports whether any endpoint answers below 500 at its base URL.
func (c *UpstreamClient) HealthCheck(ctx context.Context) error {
	endpoints := c.Endpoints()
	if len(endpoints) == 0 {
		return fmt.Errorf("no %s endpoint configured", c.name)
	}

	var lastErr error
	for _, endpoint := range endpoints {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			lastErr = err
			continue
		}
		resp, err := c.httpClient().Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode < 500 {
			return nil
		}
		lastErr = fmt.Errorf("status %d", resp.StatusCode)
	}
	return fmt.Errorf("all %s endpoints unhealthy: %w", c.name, lastErr)
}

// selectEndpoint implements round-robin load balancing (safe for empty slice).
func (c *UpstreamClient) selectEndpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.endpoints) == 0 {
		return ""
	}
	ep := c.endpoints[c.current%len(c.endpoints)]
	c.current++
	return ep
}

/* ----------------------------- retry + helpers ----------------------------- */

// doRequestWithRetry sends a GET and retries on 5xx or transport errors.
// Responses below 500 are returned to the caller unread.
func (c *UpstreamClient) doRequestWithRetry(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error
	backoff := time.Duration(c.backoffMS) * time.Millisecond

	for attempt := 1; attempt <= c.attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient().Do(req)
		if err != nil {
			// transport error (timeout, connection refused, etc.)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = &UpstreamError{Service: c.name, StatusCode: http.StatusInternalServerError, Detail: err.Error(), Err: err}
			c.logger.Warn("Upstream request failed (transport)",
				"service", c.name, "attempt", attempt, "url", urlStr, "error", err)
		} else if resp.StatusCode >= 500 {
			lastErr = &UpstreamError{Service: c.name, StatusCode: resp.StatusCode, Detail: readBodySnippet(resp.Body)}
			_ = resp.Body.Close()
			c.logger.Warn("Upstream 5xx response, retrying",
				"service", c.name, "attempt", attempt, "url", urlStr, "status", resp.StatusCode)
		} else {
			return resp, nil
		}

		if attempt == c.attempts {
			break
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.logger.Error("Upstream request exhausted retries",
		"service", c.name, "url", urlStr, "attempts", c.attempts, "error", lastErr)
	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return nil, lastErr
}

// readBodySnippet returns a short text excerpt from an HTTP body for error messages.
func readBodySnippet(r io.Reader) string {
	const max = 8 << 10 // 8KB
	b, _ := io.ReadAll(io.LimitReader(r, max))
	return strings.TrimSpace(string(b))
}

func trimEndpoints(eps []string) []string {
	out := make([]string, 0, len(eps))
	for _, e := range eps {
		if e = strings.TrimRight(strings.TrimSpace(e), "/"); e != "" {
			out = append(out, e)
		}
	}
	return out
}
