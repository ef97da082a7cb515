package multifetch

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Options configures an Engine.
type Options struct {
	// Concurrency is the maximum number of active transfers.
	// Default: 4
	Concurrency int

	// DefaultTimeout applies to requests with a zero Timeout.
	// Default: 0 (no limit)
	DefaultTimeout time.Duration

	// PollInterval bounds each wait for transport events, which is also how
	// long a stop request can go unnoticed while transfers are active.
	// Default: 50ms
	PollInterval time.Duration

	// IdleInterval bounds the wait when nothing is active.
	// Default: 10ms
	IdleInterval time.Duration

	// ReadBufferSize is the size of each body read and so the upper bound of
	// a DataChunk.
	// Default: 32KiB
	ReadBufferSize int

	// UserAgent is sent with every request when non-empty.
	UserAgent string

	// Client performs the requests. Its Timeout should be zero; per-transfer
	// timeouts are applied through the request context.
	// Default: a client with its own http.Transport
	Client *http.Client

	// Logger receives engine logs.
	// Default: zap.NewNop()
	Logger *zap.Logger

	// Observer receives engine measurements.
	// Default: none
	Observer Observer
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Concurrency:    4,
		PollInterval:   50 * time.Millisecond,
		IdleInterval:   10 * time.Millisecond,
		ReadBufferSize: 32 * 1024,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.IdleInterval <= 0 {
		o.IdleInterval = d.IdleInterval
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = d.ReadBufferSize
	}
	if o.Client == nil {
		o.Client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return o
}
