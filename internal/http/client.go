package http

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// DefaultUserAgent is sent when no other user agent is configured.
const DefaultUserAgent = "multifetch/1.0"

// ErrTooManyRedirects is returned when a response redirects more than
// Options.MaxRedirects times.
var ErrTooManyRedirects = errors.New("http: too many redirects")

// Options configures the HTTP client shared by all transfers of an engine.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 16
	MaxIdleConnsPerHost int

	// DialTimeout bounds connection establishment.
	// Default: 30s
	DialTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake.
	// Default: 10s
	TLSHandshakeTimeout time.Duration

	// MaxRedirects is the number of redirects followed before giving up.
	// Default: 10
	MaxRedirects int

	// DisableCompression turns off transparent gzip so chunks are the raw
	// bytes the server sent. The zero value keeps compression on;
	// DefaultOptions turns it off.
	DisableCompression bool
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 16,
		DialTimeout:         30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxRedirects:        10,
		DisableCompression:  true,
	}
}

// NewClient creates the client transfers run on. It has no overall timeout;
// transfers carry their own deadline.
func NewClient(opts Options) *http.Client {
	d := DefaultOptions()
	if opts.MaxIdleConnsPerHost <= 0 {
		opts.MaxIdleConnsPerHost = d.MaxIdleConnsPerHost
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = d.DialTimeout
	}
	if opts.TLSHandshakeTimeout <= 0 {
		opts.TLSHandshakeTimeout = d.TLSHandshakeTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = d.MaxRedirects
	}

	dialer := &net.Dialer{
		Timeout:   opts.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: opts.TLSHandshakeTimeout,
		ForceAttemptHTTP2:   true,
		DisableCompression:  opts.DisableCompression,
	}

	return &http.Client{
		Transport:     transport,
		CheckRedirect: redirectPolicy(opts.MaxRedirects),
	}
}

// redirectPolicy follows up to limit redirects. The client itself carries
// the original headers over to each hop.
func redirectPolicy(limit int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= limit {
			return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, limit)
		}
		return nil
	}
}
