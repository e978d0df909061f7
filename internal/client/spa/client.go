// Package spa is the typed client for the spa admin REST API. It owns the
// transport concerns of the console: authentication, request identity,
// timeouts, and the mapping of backend error responses onto the loyalty
// error taxonomy.
package spa

import (
	"time"

	"github.com/google/uuid"

	httpclient "github.com/priroda-spa/loyalty-console/internal/client/http"
)

// Client talks to the spa admin API. The admin credential is injected
// explicitly at construction; nothing is read from ambient storage.
type Client struct {
	http  *httpclient.Client
	token string
}

// Option modifies the client at construction time.
type Option func(*clientOptions)

type clientOptions struct {
	timeout   time.Duration
	transport []httpclient.ClientOption
}

// WithTimeout bounds each API request.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithTransportOptions passes extra options to the underlying HTTP
// client (tests).
func WithTransportOptions(opts ...httpclient.ClientOption) Option {
	return func(o *clientOptions) {
		o.transport = append(o.transport, opts...)
	}
}

// New creates a client for the admin API rooted at baseURL (including the
// /api/v1 prefix), authenticating every request with adminToken.
//
// Retries stay disabled on this transport: the console's requests either
// mutate balances or feed decisions about mutating them, and resubmission
// is the operator's call.
func New(baseURL, adminToken string, opts ...Option) *Client {
	options := &clientOptions{timeout: 15 * time.Second}
	for _, opt := range opts {
		opt(options)
	}

	transport := append([]httpclient.ClientOption{
		httpclient.WithBaseURL(baseURL),
		httpclient.WithTimeout(options.timeout),
	}, options.transport...)

	return &Client{
		http:  httpclient.NewClient(transport...),
		token: adminToken,
	}
}

// requestOptions returns the per-request options applied to every call:
// the admin bearer token and a fresh request ID for log correlation.
func (c *Client) requestOptions(extra ...httpclient.RequestOption) []httpclient.RequestOption {
	opts := []httpclient.RequestOption{
		httpclient.WithBearerToken(c.token),
		httpclient.WithHeader("X-Request-ID", uuid.NewString()),
	}
	return append(opts, extra...)
}
