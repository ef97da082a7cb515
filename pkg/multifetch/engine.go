package multifetch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Engine runs transfers on a single background goroutine.
type Engine struct {
	opts Options
	log  *zap.Logger

	queue submissionQueue
	life  lifecycle

	wake     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	events chan transportEvent

	// active is only touched by the engine goroutine.
	active      map[*transfer]struct{}
	activeCount atomic.Int32
}

// New creates an Engine and starts its worker.
func New(opts Options) *Engine {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		opts:   opts,
		log:    opts.Logger.Named("multifetch"),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		events: make(chan transportEvent, opts.Concurrency*4),
		active: make(map[*transfer]struct{}),
	}

	go e.run()
	return e
}

// Submit queues r. It returns false once the engine stopped accepting work.
// Acceptance does not guarantee execution: a hard stop discards queued work.
func (e *Engine) Submit(r Request) bool {
	if e.life.load() != stateAccepting {
		return false
	}
	if !e.queue.push(r.clone()) {
		return false
	}
	e.signal()
	return true
}

// QueueDepth returns the number of submitted requests not yet admitted.
func (e *Engine) QueueDepth() int {
	return e.queue.len()
}

// Active returns the number of transfers currently in flight.
func (e *Engine) Active() int {
	return int(e.activeCount.Load())
}

// RequestDrainAndStop stops accepting work. The worker exits once every
// accepted request has delivered its Result.
func (e *Engine) RequestDrainAndStop() {
	e.queue.close()
	if e.life.advance(stateDraining) {
		e.log.Info("drain requested", zap.Int("queued", e.queue.len()), zap.Int("active", e.Active()))
	}
	e.signal()
}

// RequestHardStop abandons queued and active transfers. Abandoned transfers
// receive no further events.
func (e *Engine) RequestHardStop() {
	e.queue.close()
	if e.life.advance(stateStopping) {
		e.log.Info("hard stop requested", zap.Int("queued", e.queue.len()), zap.Int("active", e.Active()))
		e.quitOnce.Do(func() { close(e.quit) })
		e.cancel()
	}
	e.signal()
}

// Join blocks until the worker exits. If no stop was requested it requests
// a drain first.
func (e *Engine) Join() {
	if e.life.load() == stateAccepting {
		e.RequestDrainAndStop()
	}
	<-e.done
}

// Done is closed when the worker has exited.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) run() {
	defer e.finish()

	for {
		switch e.life.load() {
		case stateStopping:
			e.abandon()
			return
		case stateDraining:
			if len(e.active) == 0 && e.queue.len() == 0 {
				return
			}
		}

		e.admit()

		if len(e.active) == 0 {
			e.idle()
			continue
		}

		e.poll()
	}
}

// admit starts queued transfers until the concurrency limit is reached.
func (e *Engine) admit() {
	for len(e.active) < e.opts.Concurrency && e.life.load() != stateStopping {
		req, ok := e.queue.pop()
		if !ok {
			break
		}

		t := newTransfer(req)
		if err := t.init(e.ctx, e.opts); err != nil {
			e.log.Warn("transfer init failed",
				zap.String("id", req.ID),
				zap.String("url", req.URL),
				zap.Error(err),
			)
			res := Result{Code: CodeInitError, Cause: err}
			e.opts.Observer.TransferFinished(res, 0)
			e.dispatch(t, res)
			t.retire()
			continue
		}

		e.active[t] = struct{}{}
		e.setActive()
		t.start(e.opts.Client, e.events, e.quit, e.opts.ReadBufferSize)

		e.log.Debug("transfer started",
			zap.String("id", req.ID),
			zap.String("url", req.URL),
			zap.String("method", req.method()),
		)
	}
	e.opts.Observer.QueueDepth(e.queue.len())
}

// idle waits for a submission or lifecycle request.
func (e *Engine) idle() {
	timer := time.NewTimer(e.opts.IdleInterval)
	defer timer.Stop()

	select {
	case <-e.wake:
	case <-timer.C:
	}
}

// poll waits for the first transport event, then handles every event that is
// already buffered.
func (e *Engine) poll() {
	timer := time.NewTimer(e.opts.PollInterval)
	defer timer.Stop()

	select {
	case ev := <-e.events:
		e.handle(ev)
	case <-e.wake:
		return
	case <-timer.C:
		return
	}

	for n := len(e.events); n > 0; n-- {
		if e.life.load() == stateStopping {
			return
		}
		select {
		case ev := <-e.events:
			e.handle(ev)
		default:
			return
		}
	}
}

func (e *Engine) handle(ev transportEvent) {
	// Events racing a hard stop are mostly cancellation errors; drop them.
	if e.life.load() == stateStopping {
		return
	}
	t := ev.t
	if _, ok := e.active[t]; !ok {
		return
	}

	switch ev.kind {
	case kindHeader:
		t.declared = ev.size
		if t.declared < 0 {
			t.declared = UnknownSize
		}
		e.dispatch(t, HeaderInfo{DeclaredSize: t.declared})
	case kindChunk:
		t.received += int64(len(ev.data))
		e.opts.Observer.BytesReceived(len(ev.data))
		e.dispatch(t, DataChunk{Bytes: ev.data})
	case kindDone:
		e.retire(t, ev)
	}
}

func (e *Engine) retire(t *transfer, ev transportEvent) {
	delete(e.active, t)
	e.setActive()

	res := t.result(ev)
	elapsed := t.elapsed()

	e.log.Debug("transfer finished",
		zap.String("id", t.req.ID),
		zap.String("url", t.req.URL),
		zap.Stringer("code", res.Code),
		zap.Int("status", res.Status),
		zap.Int64("bytes", t.received),
		zap.Int64("declared", t.declared),
		zap.Duration("elapsed", elapsed),
		zap.NamedError("cause", res.Cause),
	)
	e.opts.Observer.TransferFinished(res, elapsed)

	e.dispatch(t, res)
	t.retire()
}

// abandon drops all queued and active work after a hard stop.
func (e *Engine) abandon() {
	queued := e.queue.discard()
	active := len(e.active)
	for t := range e.active {
		t.retire()
		delete(e.active, t)
	}
	e.setActive()

	if queued > 0 || active > 0 {
		e.log.Warn("abandoned transfers", zap.Int("queued", queued), zap.Int("active", active))
	}
}

func (e *Engine) finish() {
	e.life.advance(stateStopped)
	e.cancel()
	e.opts.Client.CloseIdleConnections()
	e.log.Info("engine stopped")
	close(e.done)
}

func (e *Engine) setActive() {
	e.activeCount.Store(int32(len(e.active)))
	e.opts.Observer.ActiveTransfers(len(e.active))
}

// dispatch delivers ev to the transfer's callback on the engine goroutine.
// A panicking callback is logged and otherwise ignored.
func (e *Engine) dispatch(t *transfer, ev Event) {
	cb := t.req.Callback
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("callback panicked",
				zap.String("id", t.req.ID),
				zap.String("url", t.req.URL),
				zap.Any("panic", r),
			)
		}
	}()
	cb(t.req.ID, t.req.URL, ev)
}
