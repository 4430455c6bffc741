package plex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"commentarycollection/internal/logging"
	"commentarycollection/internal/services"
)

const (
	productName       = "Commentary Collection"
	productVersion    = "1.0.0"
	userAgent         = "commentarycollection/1.0.0"
	defaultTimeout    = 30 * time.Second
	defaultPageSize   = 200
	maxErrorBodyBytes = 2048
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to a single Plex server using a static token.
type Client struct {
	baseURL  string
	token    string
	clientID string
	http     HTTPDoer
	retry    *Retrier
	logger   *slog.Logger
	pageSize int
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetrier overrides the retry policy applied to every request.
func WithRetrier(r *Retrier) Option {
	return func(c *Client) {
		if r != nil {
			c.retry = r
		}
	}
}

// WithClientIdentifier pins the X-Plex-Client-Identifier header. A random
// identifier is generated per client otherwise.
func WithClientIdentifier(id string) Option {
	return func(c *Client) {
		if id = strings.TrimSpace(id); id != "" {
			c.clientID = id
		}
	}
}

// WithPageSize sets how many listing entries are requested per page.
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient constructs a Plex client for baseURL authenticated by token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:    strings.TrimSpace(token),
		clientID: uuid.NewString(),
		http:     &http.Client{Timeout: defaultTimeout},
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.retry == nil {
		c.retry = NewRetrier(c.logger)
	}
	return c
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one Plex call. rawQuery must not include the token.
type request struct {
	op       string
	method   string
	path     string
	rawQuery string
}

// call performs req under the retry policy, decoding JSON into out when out
// is non-nil.
func (c *Client) call(ctx context.Context, req request, out any) error {
	return c.retry.Do(ctx, req.op, func(ctx context.Context) error {
		return c.doRequest(ctx, req, out)
	})
}

func (c *Client) doRequest(ctx context.Context, r request, out any) error {
	target := c.baseURL + r.path + "?" + r.rawQuery
	if r.rawQuery != "" {
		target += "&"
	}
	target += "X-Plex-Token=" + queryEscape(c.token)

	req, err := http.NewRequestWithContext(ctx, r.method, target, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "plex", r.op, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Plex-Token", c.token)
	applyStandardHeaders(req, c.clientID)

	c.logger.Debug("plex request", logging.String("method", r.method), logging.String("path", r.path))

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrConnection, "plex", r.op, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return services.Wrap(services.ErrAuth, "plex", r.op, fmt.Sprintf("server returned %d", resp.StatusCode), nil)
	case resp.StatusCode >= http.StatusMultipleChoices:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return services.Wrap(services.ErrServer, "plex", r.op,
			fmt.Sprintf("%s %s returned %d: %s", r.method, r.path, resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrConnection, "plex", r.op, "read response", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrMalformedResponse, "plex", r.op, fmt.Sprintf("decode %d bytes", len(body)), err)
	}
	return nil
}

func applyStandardHeaders(req *http.Request, clientIdentifier string) {
	req.Header.Set("X-Plex-Client-Identifier", clientIdentifier)
	req.Header.Set("X-Plex-Product", productName)
	req.Header.Set("X-Plex-Version", productVersion)
	req.Header.Set("X-Plex-Device-Name", productName)
	req.Header.Set("X-Plex-Platform", runtime.GOOS)
}
