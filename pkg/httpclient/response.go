package httpclient

import (
	"bytes"
	"io"
	"strings"
)

// TransportFailureCode marks a response whose request never reached the server.
const TransportFailureCode = -1

// Response is filled incrementally by the sinks while a request runs and is read-only afterwards.
type Response struct {
	Code    int
	Body    []byte
	Headers map[string]string
}

func newResponse() *Response {
	return &Response{Headers: make(map[string]string)}
}

// TransportFailed reports whether the response carries the transport failure sentinel.
func (r *Response) TransportFailed() bool { return r != nil && r.Code == TransportFailureCode }

// Text returns the body as a string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// Sinks receive raw response data from a Transport. Each returns how many bytes it consumed;
// anything short of the full length aborts the transfer.
type Sinks struct {
	Body   func(chunk []byte) int
	Header func(line []byte) int
}

func sinksFor(resp *Response) Sinks {
	return Sinks{Body: bodySink(resp), Header: headerSink(resp)}
}

// bodySink appends every chunk verbatim.
func bodySink(resp *Response) func([]byte) int {
	return func(chunk []byte) int {
		resp.Body = append(resp.Body, chunk...)
		return len(chunk)
	}
}

// headerSink stores one raw header line. Lines without a colon (status lines) are kept
// whole with the value "present"; blank lines are skipped.
func headerSink(resp *Response) func([]byte) int {
	return func(line []byte) int {
		sep := bytes.IndexByte(line, ':')
		if sep < 0 {
			key := strings.TrimSpace(string(line))
			if key != "" {
				resp.Headers[key] = "present"
			}
			return len(line)
		}

		key := strings.TrimSpace(string(line[:sep]))
		value := strings.TrimSpace(string(line[sep+1:]))
		resp.Headers[key] = value
		return len(line)
	}
}

// uploadObject hands out a fixed buffer to the transport in pieces.
type uploadObject struct {
	data      []byte
	remaining int
}

func newUploadObject(data []byte) *uploadObject {
	return &uploadObject{data: data, remaining: len(data)}
}

// read copies min(remaining, len(p)) bytes and advances the cursor. Zero means no data left.
func (u *uploadObject) read(p []byte) int {
	n := copy(p, u.data[:u.remaining])
	u.data = u.data[n:]
	u.remaining -= n
	return n
}

// Read implements io.Reader on top of read.
func (u *uploadObject) Read(p []byte) (int, error) {
	if u.remaining == 0 {
		return 0, io.EOF
	}
	return u.read(p), nil
}

// Len reports the bytes not yet handed out.
func (u *uploadObject) Len() int { return u.remaining }
