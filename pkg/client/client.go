// Package client is an HTTP client for the tagdex API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	apiPrefix      = "/api/v1"
	defaultTimeout = 30 * time.Second
)

// Option configures the Client.
type Option func(*resty.Client)

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *resty.Client) { c.SetAuthToken(key) }
}

// WithTimeout bounds each HTTP request. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetries retries reads that fail in transport or answer 503.
func WithRetries(count int, wait time.Duration) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(count).SetRetryWaitTime(wait)
	}
}

// Client calls a tagdex server. It is safe for concurrent use.
type Client struct {
	http *resty.Client
}

// New creates a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(defaultTimeout).
		AddRetryCondition(retryRead)
	for _, o := range opts {
		o(rc)
	}
	return &Client{http: rc}
}

// retryRead retries GETs only: mutations are not known to be safe to repeat.
func retryRead(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	return err != nil || r.StatusCode() == http.StatusServiceUnavailable
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&errorBody{})
}

// send executes req and converts error answers. A 207 yields *PartialFailureError
// when out is a *MutationResult.
func send(req *resty.Request, method, path string, out any) error {
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("tagdex: %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		if body, ok := resp.Error().(*errorBody); ok && body != nil {
			apiErr.Code = body.Code
			apiErr.Message = body.Message
		}
		return apiErr
	}
	if resp.StatusCode() == http.StatusMultiStatus {
		if mr, ok := out.(*MutationResult); ok {
			return &PartialFailureError{Result: *mr}
		}
	}
	return nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func pageQuery(req *resty.Request, cursor string, limit int) {
	if cursor != "" {
		req.SetQueryParam("cursor", cursor)
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
}

// Health returns the service health. A 503 answer still carries the report.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	resp, err := c.http.R().SetContext(ctx).SetResult(&h).SetError(&h).Get("/health")
	if err != nil {
		return Health{}, fmt.Errorf("tagdex: GET /health: %w", err)
	}
	if resp.IsError() && h.Status == "" {
		return Health{}, &APIError{StatusCode: resp.StatusCode()}
	}
	return h, nil
}
