package httpclient

import "context"

// Transport performs one blocking request and streams the raw response into sinks.
// It returns the HTTP status code, or an error when no HTTP exchange completed
// (DNS, connect, TLS, I/O). Implementations need not be safe for concurrent use.
type Transport interface {
	Perform(ctx context.Context, req Request, sinks Sinks) (int, error)
}

// TransportFunc adapts a function to a Transport.
type TransportFunc func(ctx context.Context, req Request, sinks Sinks) (int, error)

// Perform implements Transport.
func (f TransportFunc) Perform(ctx context.Context, req Request, sinks Sinks) (int, error) {
	return f(ctx, req, sinks)
}
