package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligustah/multifetch/pkg/multifetch"
)

// syncBuffer is a bytes.Buffer safe for the reporter goroutine and the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
		{256 * 1024 * 1024, "256 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
		{1024 * 1024 * 1024 * 1024, "1.0 TiB"},
		{2.5 * 1024 * 1024 * 1024 * 1024, "2.5 TiB"},
		{2048 * 1024 * 1024 * 1024 * 1024, "2048 TiB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatBytes(tt.input), "FormatBytes(%d)", tt.input)
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"100", 100},
		{"100B", 100},
		{"1KiB", 1024},
		{"1.5KiB", 1536},
		{"256MiB", 256 * 1024 * 1024},
		{"1GiB", 1024 * 1024 * 1024},
		{"1TiB", 1024 * 1024 * 1024 * 1024},
		{"32 KiB", 32 * 1024},
		// SI units
		{"1KB", 1000},
		{"1MB", 1000 * 1000},
		{"1GB", 1000 * 1000 * 1000},
	}

	for _, tt := range tests {
		result, err := ParseBytes(tt.input)
		if !assert.NoError(t, err, "ParseBytes(%q)", tt.input) {
			continue
		}
		assert.Equal(t, tt.expected, result, "ParseBytes(%q)", tt.input)
	}
}

func TestParseBytesInvalid(t *testing.T) {
	for _, s := range []string{"invalid", "", "KiB", "-5MB"} {
		_, err := ParseBytes(s)
		assert.Error(t, err, "ParseBytes(%q)", s)
	}
}

func TestReporterTransferTracking(t *testing.T) {
	reporter := NewReporter(Options{Transfers: 3, Output: &syncBuffer{}})

	reporter.TransferStarted(1024)
	assert.Equal(t, int32(1), reporter.inProgress.Load())
	assert.Equal(t, int64(1024), reporter.declaredBytes.Load())

	reporter.BytesReceived(256)
	reporter.TransferFinished(true, true)
	assert.Equal(t, int32(0), reporter.inProgress.Load())
	assert.Equal(t, int32(1), reporter.completed.Load())
	assert.Equal(t, int64(256), reporter.receivedBytes.Load())

	reporter.TransferStarted(multifetch.UnknownSize)
	assert.Equal(t, int64(1024), reporter.declaredBytes.Load(), "unknown sizes are not added")
	reporter.TransferFinished(false, true)
	assert.Equal(t, int32(0), reporter.inProgress.Load())
	assert.Equal(t, int32(1), reporter.failed.Load())

	// A transfer that failed before its headers never counted as in progress.
	reporter.TransferFinished(false, false)
	assert.Equal(t, int32(0), reporter.inProgress.Load())
	assert.Equal(t, int32(2), reporter.failed.Load())
}

func TestReporterWrap(t *testing.T) {
	reporter := NewReporter(Options{Output: &syncBuffer{}})

	var forwarded []multifetch.Event
	cb := reporter.Wrap(func(id, url string, ev multifetch.Event) {
		forwarded = append(forwarded, ev)
	})

	cb("a", "http://example.com", multifetch.HeaderInfo{DeclaredSize: 10})
	cb("a", "http://example.com", multifetch.DataChunk{Bytes: []byte("0123456789")})
	cb("a", "http://example.com", multifetch.Result{Code: multifetch.CodeOK, Status: 200})

	assert.Len(t, forwarded, 3)
	assert.Equal(t, int64(10), reporter.receivedBytes.Load())
	assert.Equal(t, int32(1), reporter.completed.Load())
	assert.Equal(t, int32(0), reporter.inProgress.Load())

	failedEarly := reporter.Wrap(nil)
	failedEarly("b", "ftp://x", multifetch.Result{Code: multifetch.CodeInitError})
	assert.Equal(t, int32(1), reporter.failed.Load())
	assert.Equal(t, int32(0), reporter.inProgress.Load())
}

func TestReporterStartStop(t *testing.T) {
	mock := clock.NewMock()
	out := &syncBuffer{}
	reporter := NewReporter(Options{
		Transfers:      2,
		Concurrency:    2,
		Output:         out,
		UpdateInterval: time.Second,
		Clock:          mock,
	})

	reporter.Start()
	reporter.TransferStarted(2048)
	reporter.BytesReceived(1024)

	mock.Add(time.Second)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Progress: 50.0%")
	}, time.Second, 5*time.Millisecond)

	reporter.BytesReceived(1024)
	reporter.TransferFinished(true, true)
	mock.Add(time.Second)

	reporter.Stop()
	reporter.Stop()

	output := out.String()
	assert.Contains(t, output, "[multifetch] Transfers: 2 | Concurrency: 2")
	assert.Contains(t, output, "Received: 2.0 KiB")
	assert.Contains(t, output, "Transfers: 1 completed | 0 failed")
	assert.Contains(t, output, "Total time: 2s")
}

func TestReporterStopWithoutStart(t *testing.T) {
	reporter := NewReporter(Options{Output: &syncBuffer{}})
	reporter.Stop()
}
