package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ligustah/multifetch/pkg/multifetch"
)

// Options configures the progress reporter.
type Options struct {
	// Transfers is the number of submitted transfers (for display).
	Transfers int

	// Concurrency is the engine concurrency limit (for display).
	Concurrency int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// Clock drives the update ticker.
	// Default: the wall clock
	Clock clock.Clock
}

// Reporter outputs human-readable progress information.
type Reporter struct {
	opts Options

	mu            sync.Mutex
	receivedBytes atomic.Int64
	declaredBytes atomic.Int64
	completed     atomic.Int32
	failed        atomic.Int32
	inProgress    atomic.Int32
	startTime     time.Time
	lastUpdate    time.Time
	lastBytes     int64
	stopCh        chan struct{}
	doneCh        chan struct{}
	started       bool
	stopped       bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.startTime = r.opts.Clock.Now()
	r.lastUpdate = r.startTime

	fmt.Fprintf(r.opts.Output, "[multifetch] Transfers: %d | Concurrency: %d\n",
		r.opts.Transfers,
		r.opts.Concurrency,
	)

	ticker := r.opts.Clock.Ticker(r.opts.UpdateInterval)
	go r.updateLoop(ticker)
}

// Stop stops the reporter and prints the final status. It waits for the
// update loop to exit.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.stopped = true
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// TransferStarted records a response whose headers arrived. declared is the
// announced body size or multifetch.UnknownSize.
func (r *Reporter) TransferStarted(declared int64) {
	r.inProgress.Add(1)
	if declared > 0 {
		r.declaredBytes.Add(declared)
	}
}

// BytesReceived records body bytes.
func (r *Reporter) BytesReceived(n int64) {
	r.receivedBytes.Add(n)
}

// TransferFinished records a terminal result. started tells whether
// TransferStarted was called for this transfer.
func (r *Reporter) TransferFinished(ok, started bool) {
	if started {
		r.inProgress.Add(-1)
	}
	if ok {
		r.completed.Add(1)
	} else {
		r.failed.Add(1)
	}
}

// Wrap returns a callback that feeds r and then forwards every event to cb.
// Wrap must be called once per request.
func (r *Reporter) Wrap(cb multifetch.Callback) multifetch.Callback {
	started := false
	return func(id, url string, ev multifetch.Event) {
		switch ev := ev.(type) {
		case multifetch.HeaderInfo:
			started = true
			r.TransferStarted(ev.DeclaredSize)
		case multifetch.DataChunk:
			r.BytesReceived(int64(len(ev.Bytes)))
		case multifetch.Result:
			r.TransferFinished(ev.OK(), started)
		}
		if cb != nil {
			cb(id, url, ev)
		}
	}
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop(ticker *clock.Ticker) {
	defer close(r.doneCh)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	now := r.opts.Clock.Now()
	received := r.receivedBytes.Load()
	declared := r.declaredBytes.Load()

	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(received-r.lastBytes) / elapsed

	r.lastUpdate = now
	r.lastBytes = received

	var percent float64
	eta := "unknown"
	if declared > 0 {
		percent = min(float64(received)/float64(declared)*100, 100)
		if speed > 0 && declared > received {
			eta = formatDuration(time.Duration(float64(declared-received) / speed * float64(time.Second)))
		}
	}

	completed := int(r.completed.Load())
	failed := int(r.failed.Load())
	inProgress := int(r.inProgress.Load())
	pending := max(r.opts.Transfers-completed-failed-inProgress, 0)

	fmt.Fprintf(r.opts.Output, "\r[multifetch] Progress: %.1f%% | %s / %s | Speed: %s/s | ETA: %s    ",
		percent,
		formatBytes(received),
		formatBytes(declared),
		formatBytes(int64(speed)),
		eta,
	)
	fmt.Fprintf(r.opts.Output, "\n[multifetch] Transfers: %d completed | %d failed | %d in-progress | %d pending    \033[A",
		completed,
		failed,
		inProgress,
		pending,
	)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	received := r.receivedBytes.Load()
	duration := r.opts.Clock.Since(r.startTime)
	var avgSpeed float64
	if duration > 0 {
		avgSpeed = float64(received) / duration.Seconds()
	}

	fmt.Fprintf(r.opts.Output, "\r[multifetch] Received: %s | Speed: %s/s | Done    \n",
		formatBytes(received),
		formatBytes(int64(avgSpeed)),
	)
	fmt.Fprintf(r.opts.Output, "[multifetch] Transfers: %d completed | %d failed    \n",
		r.completed.Load(),
		r.failed.Load(),
	)
	fmt.Fprintf(r.opts.Output, "[multifetch] Total time: %s\n", formatDuration(duration))
}

var byteUnits = []string{"KiB", "MiB", "GiB", "TiB"}

// formatBytes formats bytes as a human-readable string using binary units.
func formatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", b)
	}
	value := float64(b)
	unit := ""
	for _, u := range byteUnits {
		value /= 1024
		unit = u
		if value < 1024 {
			break
		}
	}
	if value >= 100 {
		return fmt.Sprintf("%.0f %s", value, unit)
	}
	return fmt.Sprintf("%.1f %s", value, unit)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

var byteSuffixes = []struct {
	suffix     string
	multiplier int64
}{
	{"TiB", 1 << 40},
	{"GiB", 1 << 30},
	{"MiB", 1 << 20},
	{"KiB", 1 << 10},
	{"TB", 1000 * 1000 * 1000 * 1000},
	{"GB", 1000 * 1000 * 1000},
	{"MB", 1000 * 1000},
	{"KB", 1000},
	{"B", 1},
}

// ParseBytes parses a human-readable byte string ("256MiB", "1.5KB", "100").
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	var multiplier int64 = 1
	for _, bs := range byteSuffixes {
		if strings.HasSuffix(s, bs.suffix) {
			multiplier = bs.multiplier
			s = strings.TrimSpace(strings.TrimSuffix(s, bs.suffix))
			break
		}
	}

	var value float64
	if _, err := fmt.Sscanf(s, "%f", &value); err != nil {
		return 0, fmt.Errorf("invalid byte string: %q", s)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative byte string: %q", s)
	}

	return int64(value * float64(multiplier)), nil
}
