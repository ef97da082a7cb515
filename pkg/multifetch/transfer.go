package multifetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type transferState int

const (
	stateCreated transferState = iota
	stateInitialized
	stateActive
	stateRetired
)

func (s transferState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateInitialized:
		return "initialized"
	case stateActive:
		return "active"
	case stateRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// errNilHeaders is returned when a HeaderTransform discards the header set.
var errNilHeaders = errors.New("header transform returned nil")

type eventKind int

const (
	kindHeader eventKind = iota
	kindChunk
	kindDone
)

// transportEvent is what a transfer's reader hands to the engine goroutine.
type transportEvent struct {
	t      *transfer
	kind   eventKind
	size   int64
	data   []byte
	status int
	err    error
}

// transfer is the runtime state of one request. Everything except the
// reader goroutine's response handling belongs to the engine goroutine.
type transfer struct {
	req   Request
	state transferState

	httpReq *http.Request
	ctx     context.Context
	cancel  context.CancelFunc

	started  time.Time
	declared int64
	received int64
}

func newTransfer(req Request) *transfer {
	return &transfer{
		req:      req,
		state:    stateCreated,
		declared: UnknownSize,
	}
}

// init builds the HTTP request. On failure the transfer stays in
// stateCreated and holds no resources.
func (t *transfer) init(parent context.Context, opts Options) error {
	method := t.req.method()
	if method != http.MethodGet && method != http.MethodPost {
		return fmt.Errorf("unsupported method %q", method)
	}

	u, err := url.Parse(t.req.URL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", t.req.URL)
	}

	header := defaultHeaders(opts.UserAgent, t.req.isPost())
	if t.req.isPost() && t.req.HeaderTransform != nil {
		header = t.req.HeaderTransform(header)
		if header == nil {
			return errNilHeaders
		}
	}

	timeout := t.req.Timeout
	if timeout <= 0 {
		timeout = opts.DefaultTimeout
	}
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	var body io.Reader
	if t.req.isPost() {
		body = bytes.NewReader(t.req.Body)
	}

	hr, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		cancel()
		return fmt.Errorf("create request: %w", err)
	}
	hr.Header = header

	t.httpReq = hr
	t.ctx = ctx
	t.cancel = cancel
	t.state = stateInitialized
	return nil
}

// start launches the reader goroutine. Events are sent on events until the
// response ends or quit is closed.
func (t *transfer) start(client *http.Client, events chan<- transportEvent, quit <-chan struct{}, bufSize int) {
	t.state = stateActive
	t.started = time.Now()
	go t.read(client, t.httpReq, events, quit, bufSize)
}

// read runs on its own goroutine and must not touch anything but its
// arguments.
func (t *transfer) read(client *http.Client, req *http.Request, events chan<- transportEvent, quit <-chan struct{}, bufSize int) {
	send := func(ev transportEvent) bool {
		ev.t = t
		select {
		case events <- ev:
			return true
		case <-quit:
			return false
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		send(transportEvent{kind: kindDone, err: err})
		return
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	if !send(transportEvent{kind: kindHeader, size: resp.ContentLength, status: status}) {
		return
	}

	for {
		buf := make([]byte, bufSize)
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if !send(transportEvent{kind: kindChunk, data: buf[:n]}) {
				return
			}
		}
		if err == io.EOF {
			send(transportEvent{kind: kindDone, status: status})
			return
		}
		if err != nil {
			send(transportEvent{kind: kindDone, status: status, err: err})
			return
		}
	}
}

// result classifies the completion event of t.
func (t *transfer) result(ev transportEvent) Result {
	if ev.err == nil {
		return resultForStatus(ev.status)
	}
	if t.ctx != nil && errors.Is(t.ctx.Err(), context.DeadlineExceeded) {
		return Result{Code: CodeTimeout, Status: ev.status, Cause: ev.err}
	}
	return resultForError(ev.err, ev.status)
}

// retire releases the transfer's context. It is safe on a transfer that
// never initialized.
func (t *transfer) retire() {
	if t.cancel != nil {
		t.cancel()
	}
	t.httpReq = nil
	t.state = stateRetired
}

func (t *transfer) elapsed() time.Duration {
	if t.started.IsZero() {
		return 0
	}
	return time.Since(t.started)
}

// defaultHeaders is the header set before any HeaderTransform. POST bodies
// default to form encoding and never wait for a 100-continue.
func defaultHeaders(userAgent string, post bool) http.Header {
	h := make(http.Header)
	if userAgent != "" {
		h.Set("User-Agent", userAgent)
	}
	if post {
		h.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return h
}
