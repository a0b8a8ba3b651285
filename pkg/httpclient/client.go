package httpclient

import (
	"context"
	"time"

	"github.com/samvad-hq/samvad-httpclient/internal/logger"
)

const defaultTimeout = 15 * time.Second

// Client issues blocking requests over one reusable Transport. Basic-auth credentials set
// with SetAuth stay on the instance until ClearAuth and apply only to later calls.
// A Client is not safe for concurrent use; give each goroutine its own.
type Client struct {
	transport Transport
	userAgent string
	timeout   time.Duration
	log       logger.Logger
	auth      *basicAuth
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the default resty transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithUserAgent overrides the identifying client string.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the timeout of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for transport failures.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// New creates a Client. Without WithTransport it talks through resty.
func New(opts ...Option) *Client {
	c := &Client{
		userAgent: DefaultUserAgent,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	c.log = logger.Ensure(c.log)
	if c.transport == nil {
		rt := NewRestyTransport(c.timeout)
		if logger.S != nil {
			rt.SetLogger(logger.S)
		}
		c.transport = rt
	}
	return c
}

// SetAuth attaches basic-auth credentials to every later request on this client.
func (c *Client) SetAuth(user, password string) {
	c.auth = &basicAuth{user: user, password: password}
}

// ClearAuth drops the credentials set by SetAuth.
func (c *Client) ClearAuth() {
	c.auth = nil
}

// HasAuth reports whether credentials are currently set.
func (c *Client) HasAuth() bool { return c.auth != nil }

// Execute runs req and blocks until the transport returns. It never returns an error:
// a transport failure comes back as a Response with Code TransportFailureCode and a
// diagnostic body.
func (c *Client) Execute(ctx context.Context, req Request) *Response {
	if ctx == nil {
		ctx = context.Background()
	}
	req = req.withSession(c.userAgent, c.auth)
	resp := newResponse()

	code, err := c.transport.Perform(ctx, req, sinksFor(resp))
	if err != nil {
		kind := classifyTransportError(err)
		resp.Body = []byte("Failed to query. Transport error: " + kind + " DETAIL: " + err.Error())
		resp.Code = TransportFailureCode
		c.log.ErrorObj("http request failed", "httpclient_transport_error", map[string]any{
			"channel": channel,
			"method":  req.Method(),
			"url":     req.URL(),
			"kind":    kind,
			"error":   err.Error(),
		})
		return resp
	}

	resp.Code = code
	c.log.DebugObj("http request completed", "httpclient_response", map[string]any{
		"channel":    channel,
		"method":     req.Method(),
		"url":        req.URL(),
		"code":       code,
		"body_bytes": len(resp.Body),
	})
	return resp
}

// Get performs an HTTP GET.
func (c *Client) Get(ctx context.Context, url string) *Response {
	return c.Execute(ctx, NewGet(url))
}

// Post performs an HTTP POST with body sent as-is under contentType.
func (c *Client) Post(ctx context.Context, url, contentType string, body []byte) *Response {
	return c.Execute(ctx, NewPost(url, contentType, body))
}

// Put performs an HTTP PUT, streaming body as an upload.
func (c *Client) Put(ctx context.Context, url, contentType string, body []byte) *Response {
	return c.Execute(ctx, NewPut(url, contentType, body))
}

// Delete performs an HTTP DELETE.
func (c *Client) Delete(ctx context.Context, url string) *Response {
	return c.Execute(ctx, NewDelete(url))
}
