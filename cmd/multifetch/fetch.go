package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"golang.org/x/sync/errgroup"

	"github.com/ligustah/multifetch/internal/config"
	mfhttp "github.com/ligustah/multifetch/internal/http"
	"github.com/ligustah/multifetch/internal/logging"
	"github.com/ligustah/multifetch/internal/metrics"
	"github.com/ligustah/multifetch/internal/progress"
	"github.com/ligustah/multifetch/internal/sink"
	"github.com/ligustah/multifetch/pkg/multifetch"
)

// requestFunc builds the request for one URL.
type requestFunc func(id, url string, cb multifetch.Callback) multifetch.Request

// summary counts transfer outcomes. It is only written from engine callbacks
// and read after the engine has stopped.
type summary struct {
	submitted int
	succeeded int
	failed    int
	storage   int
	bytes     int64
}

func (s *summary) record(o sink.Outcome, name string) {
	s.bytes += o.Bytes
	switch {
	case o.Err == nil:
		s.succeeded++
		fmt.Fprintf(os.Stderr, "[multifetch] %s: ok (%s)\n", name, progress.FormatBytes(o.Bytes))
	case errors.Is(o.Err, sink.ErrStorage):
		s.storage++
		fmt.Fprintf(os.Stderr, "[multifetch] %s: storage error: %v\n", name, o.Err)
	default:
		s.failed++
		fmt.Fprintf(os.Stderr, "[multifetch] %s: %v\n", name, o.Err)
	}
}

func (s *summary) abandoned() int {
	return s.submitted - s.succeeded - s.failed - s.storage
}

func (s *summary) exitCode() int {
	switch {
	case s.storage > 0:
		return ExitStorageError
	case s.failed > 0:
		return ExitTransfersFailed
	case s.abandoned() > 0:
		return ExitGeneralError
	default:
		return ExitSuccess
	}
}

// fetch runs one engine over urls and reports how the transfers ended.
func fetch(cfg config.Config, urls []string, newRequest requestFunc) int {
	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	open, closeOutput, err := openOutput(ctx, cfg.Output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening output: %v\n", err)
		return ExitStorageError
	}
	defer closeOutput()

	reg := prometheus.NewRegistry()
	observer := metrics.New("multifetch", reg)

	var ln net.Listener
	if cfg.MetricsAddr != "" {
		if ln, err = net.Listen("tcp", cfg.MetricsAddr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: metrics listener: %v\n", err)
			return ExitInvalidArgs
		}
	}

	engine := multifetch.New(multifetch.Options{
		Concurrency:    cfg.Concurrency,
		DefaultTimeout: cfg.Timeout,
		PollInterval:   cfg.PollInterval,
		ReadBufferSize: int(cfg.ReadBufferSize),
		UserAgent:      cfg.UserAgent,
		Client: mfhttp.NewClient(mfhttp.Options{
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			DisableCompression:  true,
		}),
		Logger:   log,
		Observer: observer,
	})

	var reporter *progress.Reporter
	if cfg.Progress {
		reporter = progress.NewReporter(progress.Options{
			Transfers:   len(urls),
			Concurrency: cfg.Concurrency,
		})
		reporter.Start()
		defer reporter.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	if ln != nil {
		srv := &http.Server{Handler: metrics.Handler(reg), ReadHeaderTimeout: 10 * time.Second}
		g.Go(func() error {
			log.Info("serving metrics", zap.String("addr", ln.Addr().String()))
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	g.Go(func() error {
		select {
		case <-sigCh:
		case <-gctx.Done():
			return nil
		}
		fmt.Fprintln(os.Stderr, "\n[multifetch] Received interrupt, finishing accepted transfers (interrupt again to abort)...")
		engine.RequestDrainAndStop()

		select {
		case <-sigCh:
		case <-gctx.Done():
			return nil
		}
		fmt.Fprintln(os.Stderr, "[multifetch] Received second interrupt, abandoning transfers...")
		engine.RequestHardStop()
		return nil
	})

	var sum summary
	names := outputNames(urls)
	for i, u := range urls {
		id := uuid.NewString()
		name := names[i]

		cb := sink.Handler(func(string, string) (sink.Sink, error) {
			return open(name)
		}, log, func(o sink.Outcome) {
			sum.record(o, name)
		})
		if reporter != nil {
			cb = reporter.Wrap(cb)
		}

		if !engine.Submit(newRequest(id, u, cb)) {
			log.Warn("engine stopped before all transfers were submitted", zap.Int("skipped", len(urls)-i))
			break
		}
		sum.submitted++
	}

	engine.Join()
	if reporter != nil {
		reporter.Stop()
	}
	cancel()
	if err := g.Wait(); err != nil {
		log.Error("background task failed", zap.Error(err))
	}

	fmt.Fprintf(os.Stderr, "[multifetch] Done: %d ok | %d failed | %d storage errors | %d abandoned | %s received\n",
		sum.succeeded, sum.failed, sum.storage, sum.abandoned(),
		progress.FormatBytes(sum.bytes))

	return sum.exitCode()
}

// openOutput returns a function creating the sink for a named output.
func openOutput(ctx context.Context, out config.OutputConfig) (func(name string) (sink.Sink, error), func(), error) {
	switch {
	case out.Bucket != "":
		bkt, err := blob.OpenBucket(ctx, out.Bucket)
		if err != nil {
			return nil, nil, err
		}
		open := func(name string) (sink.Sink, error) {
			return sink.NewBlob(ctx, bkt, out.Prefix+name)
		}
		return open, func() { bkt.Close() }, nil

	case out.Dir != "":
		open := func(name string) (sink.Sink, error) {
			return sink.NewFile(filepath.Join(out.Dir, filepath.FromSlash(out.Prefix+name)))
		}
		return open, func() {}, nil

	default:
		open := func(string) (sink.Sink, error) {
			return &sink.Discard{}, nil
		}
		return open, func() {}, nil
	}
}

// outputNames derives a unique name per URL from the last path element.
// Repeated names get a numeric suffix that does not clash with any name
// already handed out.
func outputNames(urls []string) []string {
	names := make([]string, len(urls))
	taken := make(map[string]bool)
	next := make(map[string]int)
	for i, raw := range urls {
		name := "download"
		if u, err := url.Parse(raw); err == nil {
			if base := path.Base(u.Path); base != "." && base != "/" && base != ".." {
				name = base
			}
		}

		candidate := name
		if taken[candidate] {
			ext := path.Ext(name)
			stem := strings.TrimSuffix(name, ext)
			for n := next[name] + 1; ; n++ {
				candidate = stem + "-" + strconv.Itoa(n) + ext
				if !taken[candidate] {
					next[name] = n
					break
				}
			}
		}
		taken[candidate] = true
		names[i] = candidate
	}
	return names
}
