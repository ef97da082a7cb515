package sink

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ligustah/multifetch/pkg/multifetch"
)

// ErrStorage marks failures of the destination rather than of the transfer.
var ErrStorage = errors.New("sink: storage error")

// Sink is the destination of one transfer's body.
type Sink interface {
	// Write appends p. It must not retain p.
	Write(p []byte) error

	// Commit makes the written data visible at the destination.
	Commit() error

	// Abort discards everything written so far.
	Abort() error
}

// Opener creates the sink for a transfer.
type Opener func(id, url string) (Sink, error)

// Outcome describes how a transfer ended once its sink was finalized.
type Outcome struct {
	ID     string
	URL    string
	Result multifetch.Result

	// Bytes is the number of body bytes written to the sink.
	Bytes int64

	// Err is nil when the transfer succeeded and its data was committed.
	// Storage problems wrap ErrStorage.
	Err error
}

// Handler returns a callback for a single request that writes the body to a
// sink obtained from open. The sink is opened when the response headers
// arrive, so transfers that fail earlier never touch the destination.
// onDone, if not nil, is called after the sink is committed or aborted.
func Handler(open Opener, log *zap.Logger, onDone func(Outcome)) multifetch.Callback {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		s        Sink
		opened   bool
		storeErr error
		written  int64
	)

	ensure := func(id, url string) {
		if opened {
			return
		}
		opened = true

		var err error
		if s, err = open(id, url); err != nil {
			storeErr = fmt.Errorf("%w: open: %w", ErrStorage, err)
			log.Warn("open sink failed", zap.String("id", id), zap.String("url", url), zap.Error(err))
		}
	}

	return func(id, url string, ev multifetch.Event) {
		switch ev := ev.(type) {
		case multifetch.HeaderInfo:
			ensure(id, url)
		case multifetch.DataChunk:
			ensure(id, url)
			if s == nil || storeErr != nil {
				return
			}
			if err := s.Write(ev.Bytes); err != nil {
				storeErr = fmt.Errorf("%w: write: %w", ErrStorage, err)
				log.Warn("sink write failed", zap.String("id", id), zap.Error(err))
				return
			}
			written += int64(len(ev.Bytes))
		case multifetch.Result:
			out := Outcome{ID: id, URL: url, Result: ev, Bytes: written}
			out.Err = finalize(s, ev, storeErr)
			if out.Err != nil {
				log.Debug("transfer not stored", zap.String("id", id), zap.Error(out.Err))
			}
			if onDone != nil {
				onDone(out)
			}
		}
	}
}

func finalize(s Sink, res multifetch.Result, storeErr error) error {
	if s == nil {
		return multierr.Combine(res.Err(), storeErr)
	}

	if res.OK() && storeErr == nil {
		if err := s.Commit(); err != nil {
			return fmt.Errorf("%w: commit: %w", ErrStorage, err)
		}
		return nil
	}

	err := multierr.Combine(res.Err(), storeErr)
	if abortErr := s.Abort(); abortErr != nil {
		err = multierr.Append(err, fmt.Errorf("%w: abort: %w", ErrStorage, abortErr))
	}
	return err
}

// Discard is a Sink that only counts bytes.
type Discard struct {
	N int64
}

func (d *Discard) Write(p []byte) error {
	d.N += int64(len(p))
	return nil
}

func (d *Discard) Commit() error { return nil }
func (d *Discard) Abort() error  { return nil }
