package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/ligustah/multifetch/internal/config"
	"github.com/ligustah/multifetch/pkg/multifetch"
)

// commonFlags are shared by get and post.
type commonFlags struct {
	config      string
	envFile     string
	concurrency int
	timeout     time.Duration
	out         string
	bucket      string
	prefix      string
	progress    bool
	metricsAddr string
	logLevel    string
	logFormat   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "YAML configuration file")
	fs.StringVar(&c.envFile, "env-file", ".env", "Environment file with MULTIFETCH_ variables (ignored if missing)")
	fs.IntVar(&c.concurrency, "concurrency", 0, "Maximum simultaneous transfers (default 4)")
	fs.DurationVar(&c.timeout, "timeout", 0, "Per-transfer timeout, 0 for none")
	fs.StringVar(&c.out, "out", "", "Directory to write response bodies to")
	fs.StringVar(&c.bucket, "bucket", "", "Bucket URL to write response bodies to (s3://, file://, mem://)")
	fs.StringVar(&c.prefix, "prefix", "", "Object or file name prefix")
	fs.BoolVar(&c.progress, "progress", false, "Show progress output")
	fs.StringVar(&c.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&c.logFormat, "log-format", "", "Log format: console or json")
}

// load builds the effective configuration: file, then environment, then flags.
func (c *commonFlags) load() (config.Config, error) {
	cfg := config.Default()
	if c.config != "" {
		var err error
		if cfg, err = config.LoadFromFile(c.config); err != nil {
			return config.Config{}, err
		}
	}

	if c.envFile != "" {
		if err := config.LoadDotEnv(c.envFile); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	cfg = cfg.Merge(config.Config{
		Concurrency: c.concurrency,
		Timeout:     c.timeout,
		Output: config.OutputConfig{
			Dir:    c.out,
			Bucket: c.bucket,
			Prefix: c.prefix,
		},
		Progress:    c.progress,
		MetricsAddr: c.metricsAddr,
		Log: config.LogConfig{
			Level:  c.logLevel,
			Format: c.logFormat,
		},
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// headerFlag collects repeated -header 'Key: Value' flags.
type headerFlag struct {
	header http.Header
}

func (h *headerFlag) String() string {
	if h.header == nil {
		return ""
	}
	var parts []string
	for k, vs := range h.header {
		for _, v := range vs {
			parts = append(parts, k+": "+v)
		}
	}
	return strings.Join(parts, ", ")
}

func (h *headerFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, ":")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return errors.New("expected 'Key: Value'")
	}
	if strings.ContainsAny(k, " \t\r\n") {
		return fmt.Errorf("invalid header name %q", k)
	}
	if h.header == nil {
		h.header = make(http.Header)
	}
	h.header.Add(textproto.CanonicalMIMEHeaderKey(k), strings.TrimSpace(v))
	return nil
}

// transform returns a header transform that adds the collected headers, or
// nil if there are none.
func (h *headerFlag) transform() multifetch.HeaderTransform {
	if len(h.header) == 0 {
		return nil
	}
	return func(dst http.Header) http.Header {
		for k, vs := range h.header {
			dst.Del(k)
			for _, v := range vs {
				dst.Add(k, v)
			}
		}
		return dst
	}
}
