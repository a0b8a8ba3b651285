package httpclient

import "net/http"

const (
	// DefaultUserAgent identifies this client on every request.
	DefaultUserAgent = "samvad-httpclient/0.10"

	// FormContentType is used by PostTree.
	FormContentType = "application/x-www-form-urlencoded"
)

// payload is the method-specific part of a request.
type payload interface {
	isPayload()
}

// noBody carries nothing beyond the method itself (GET).
type noBody struct{}

// formBody is sent in one piece as POST fields.
type formBody struct {
	data []byte
}

// uploadBody is streamed to the transport through an uploadObject (PUT).
type uploadBody struct {
	data []byte
}

// customMethod overrides the request verb (DELETE).
type customMethod struct {
	name string
}

func (noBody) isPayload()       {}
func (formBody) isPayload()     {}
func (uploadBody) isPayload()   {}
func (customMethod) isPayload() {}

type basicAuth struct {
	user     string
	password string
}

// Request describes one call. It is built per call and never mutated afterwards.
type Request struct {
	method      string
	url         string
	contentType string
	payload     payload
	auth        *basicAuth
	userAgent   string
}

// NewGet builds a GET request.
func NewGet(url string) Request {
	return Request{method: http.MethodGet, url: url, payload: noBody{}}
}

// NewPost builds a POST request whose body is sent as form fields.
func NewPost(url, contentType string, body []byte) Request {
	return Request{method: http.MethodPost, url: url, contentType: contentType, payload: formBody{data: clone(body)}}
}

// NewPut builds a PUT request whose body is streamed as an upload.
func NewPut(url, contentType string, body []byte) Request {
	return Request{method: http.MethodPut, url: url, contentType: contentType, payload: uploadBody{data: clone(body)}}
}

// NewDelete builds a DELETE request.
func NewDelete(url string) Request {
	return Request{method: http.MethodDelete, url: url, payload: customMethod{name: http.MethodDelete}}
}

// Method returns the verb that goes on the wire.
func (r Request) Method() string {
	if m, ok := r.payload.(customMethod); ok {
		return m.name
	}
	return r.method
}

// URL returns the target URL.
func (r Request) URL() string { return r.url }

// ContentType returns the content type, or "" when none was given.
func (r Request) ContentType() string { return r.contentType }

// UserAgent returns the identifying client string.
func (r Request) UserAgent() string { return r.userAgent }

// BasicAuth returns the credentials attached to the request, if any.
func (r Request) BasicAuth() (user, password string, ok bool) {
	if r.auth == nil {
		return "", "", false
	}
	return r.auth.user, r.auth.password, true
}

// Body returns the bytes sent with the request, or nil for body-less methods.
func (r Request) Body() []byte {
	switch p := r.payload.(type) {
	case formBody:
		return clone(p.data)
	case uploadBody:
		return clone(p.data)
	default:
		return nil
	}
}

func (r Request) withSession(userAgent string, auth *basicAuth) Request {
	r.userAgent = userAgent
	if auth != nil {
		a := *auth
		r.auth = &a
	}
	return r
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
