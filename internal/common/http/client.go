// internal/common/http/client.go
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RequestIDHeader correlates one submit across client and service logs.
const RequestIDHeader = "X-Request-ID"

type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client whose requests are bounded by timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// WithRateLimit throttles outbound requests to rps with the given burst.
// A non-positive rps leaves the client unthrottled.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// Timeout reports the per-request bound.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext waits for the limiter, stamps a request id when the caller
// did not set one and sends req under ctx.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req = req.WithContext(ctx)
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, NewRequestID())
	}
	return c.httpClient.Do(req)
}

// NewRequestID returns a random UUID string.
func NewRequestID() string {
	return uuid.New().String()
}
