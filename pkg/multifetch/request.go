package multifetch

import (
	"net/http"
	"time"
)

// HeaderTransform maps the default header set of a POST to the headers that
// are actually sent. It must not retain or mutate its argument after
// returning.
type HeaderTransform func(http.Header) http.Header

// Request describes one transfer. The engine copies it on Submit.
type Request struct {
	// ID is echoed in every callback. It only needs to be meaningful to the caller.
	ID string

	// URL is the target address.
	URL string

	// Method is http.MethodGet or http.MethodPost. Empty means GET.
	Method string

	// Body is sent for POST requests and ignored otherwise.
	Body []byte

	// Timeout bounds the whole transfer. Zero selects Options.DefaultTimeout.
	Timeout time.Duration

	// HeaderTransform customizes POST headers (content type, auth).
	HeaderTransform HeaderTransform

	// Callback receives the transfer's events. Nil discards them.
	Callback Callback
}

// Get returns a GET request.
func Get(id, url string, cb Callback) Request {
	return Request{ID: id, URL: url, Method: http.MethodGet, Callback: cb}
}

// Post returns a POST request carrying body.
func Post(id, url string, body []byte, cb Callback) Request {
	return Request{ID: id, URL: url, Method: http.MethodPost, Body: body, Callback: cb}
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func (r Request) isPost() bool {
	return r.method() == http.MethodPost
}

// clone detaches r from caller-owned memory.
func (r Request) clone() Request {
	if r.Body != nil {
		r.Body = append([]byte(nil), r.Body...)
	}
	return r
}
