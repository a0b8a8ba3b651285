package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
)

const readChunkSize = 32 << 10 // 32 KiB

var errShortWrite = errors.New("sink consumed less than the chunk it was given")

// RestyTransport adapts resty.Client to the Transport interface.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport creates a RestyTransport with the specified timeout.
func NewRestyTransport(timeout time.Duration) *RestyTransport {
	return &RestyTransport{client: newRestyBaseClient(timeout)}
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

// SetLogger routes resty's own warnings through l (a zap SugaredLogger satisfies resty.Logger).
func (t *RestyTransport) SetLogger(l resty.Logger) {
	if l != nil {
		t.client.SetLogger(l)
	}
}

// Perform issues the request through a fresh resty request, so no per-call option
// outlives the call.
func (t *RestyTransport) Perform(ctx context.Context, req Request, sinks Sinks) (int, error) {
	r := t.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("User-Agent", req.UserAgent())

	if user, pass, ok := req.BasicAuth(); ok {
		r.SetBasicAuth(user, pass)
	}
	if ct := req.ContentType(); ct != "" {
		r.SetHeader("Content-Type", ct)
	}

	switch p := req.payload.(type) {
	case formBody:
		r.SetBody(p.data)
	case uploadBody:
		r.SetBody(newUploadObject(p.data)).SetContentLength(true)
	}

	resp, err := r.Execute(req.Method(), req.URL())
	if err != nil {
		return 0, err
	}
	raw := resp.RawBody()
	if raw == nil {
		return 0, errors.New("transport returned no response body")
	}
	defer raw.Close()

	if err := replayHeaders(resp, sinks.Header); err != nil {
		return 0, err
	}
	if err := drainBody(raw, sinks.Body); err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}

// replayHeaders feeds the status line, each header and the terminating blank line to the
// header sink as raw lines.
func replayHeaders(resp *resty.Response, sink func([]byte) int) error {
	lines := []string{fmt.Sprintf("%s %s\r\n", resp.Proto(), resp.Status())}

	header := resp.Header()
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range header[k] {
			lines = append(lines, k+": "+v+"\r\n")
		}
	}
	lines = append(lines, "\r\n")

	for _, line := range lines {
		if sink([]byte(line)) != len(line) {
			return errShortWrite
		}
	}
	return nil
}

func drainBody(body io.Reader, sink func([]byte) int) error {
	buf := make([]byte, readChunkSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if sink(buf[:n]) != n {
				return errShortWrite
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}
	}
}

// classifyTransportError names the failure for the diagnostic body.
func classifyTransportError(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, errShortWrite):
		return "write aborted"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &dnsErr):
		return "couldn't resolve host"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "couldn't connect"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "transport failure"
	}
}

var _ Transport = (*RestyTransport)(nil)
