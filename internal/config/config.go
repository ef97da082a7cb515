package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/ligustah/multifetch/internal/progress"
)

// Config defines configuration for the multifetch CLI.
type Config struct {
	Concurrency         int           `yaml:"concurrency"`
	Timeout             time.Duration `yaml:"timeout"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	ReadBufferSize      int64         `yaml:"read_buffer_size"`
	UserAgent           string        `yaml:"user_agent"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	Output              OutputConfig  `yaml:"output"`
	Progress            bool          `yaml:"progress"`
	MetricsAddr         string        `yaml:"metrics_addr"`
	Log                 LogConfig     `yaml:"log"`
}

// OutputConfig selects where response bodies are stored. At most one of Dir
// and Bucket may be set; with neither, bodies are discarded.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Concurrency:         4,
		PollInterval:        50 * time.Millisecond,
		ReadBufferSize:      32 * 1024,
		UserAgent:           "multifetch/1.0",
		MaxIdleConnsPerHost: 16,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations and sizes.
type yamlConfig struct {
	Concurrency         int          `yaml:"concurrency"`
	Timeout             string       `yaml:"timeout"`
	PollInterval        string       `yaml:"poll_interval"`
	ReadBufferSize      string       `yaml:"read_buffer_size"`
	UserAgent           string       `yaml:"user_agent"`
	MaxIdleConnsPerHost int          `yaml:"max_idle_conns_per_host"`
	Output              OutputConfig `yaml:"output"`
	Progress            bool         `yaml:"progress"`
	MetricsAddr         string       `yaml:"metrics_addr"`
	Log                 LogConfig    `yaml:"log"`
}

// LoadFromFile loads configuration from a YAML file on top of Default.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	override := Config{
		Concurrency:         yc.Concurrency,
		UserAgent:           yc.UserAgent,
		MaxIdleConnsPerHost: yc.MaxIdleConnsPerHost,
		Output:              yc.Output,
		Progress:            yc.Progress,
		MetricsAddr:         yc.MetricsAddr,
		Log:                 yc.Log,
	}
	if yc.Timeout != "" {
		if override.Timeout, err = time.ParseDuration(yc.Timeout); err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
	}
	if yc.PollInterval != "" {
		if override.PollInterval, err = time.ParseDuration(yc.PollInterval); err != nil {
			return Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
	}
	if yc.ReadBufferSize != "" {
		if override.ReadBufferSize, err = progress.ParseBytes(yc.ReadBufferSize); err != nil {
			return Config{}, fmt.Errorf("parse read_buffer_size: %w", err)
		}
	}

	return Default().Merge(override), nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the MULTIFETCH_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("MULTIFETCH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MULTIFETCH_CONCURRENCY: %w", err)
		}
		c.Concurrency = n
	}
	if v := os.Getenv("MULTIFETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse MULTIFETCH_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("MULTIFETCH_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse MULTIFETCH_POLL_INTERVAL: %w", err)
		}
		c.PollInterval = d
	}
	if v := os.Getenv("MULTIFETCH_READ_BUFFER_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse MULTIFETCH_READ_BUFFER_SIZE: %w", err)
		}
		c.ReadBufferSize = size
	}
	if v := os.Getenv("MULTIFETCH_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("MULTIFETCH_OUT"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("MULTIFETCH_BUCKET"); v != "" {
		c.Output.Bucket = v
	}
	if v := os.Getenv("MULTIFETCH_PREFIX"); v != "" {
		c.Output.Prefix = v
	}
	if v := os.Getenv("MULTIFETCH_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("MULTIFETCH_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("MULTIFETCH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MULTIFETCH_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}

	return nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var err error
	if c.Concurrency <= 0 {
		err = multierr.Append(err, errors.New("config: concurrency must be positive"))
	}
	if c.Timeout < 0 {
		err = multierr.Append(err, errors.New("config: timeout must not be negative"))
	}
	if c.PollInterval <= 0 {
		err = multierr.Append(err, errors.New("config: poll_interval must be positive"))
	}
	if c.ReadBufferSize <= 0 {
		err = multierr.Append(err, errors.New("config: read_buffer_size must be positive"))
	}
	if c.MaxIdleConnsPerHost < 0 {
		err = multierr.Append(err, errors.New("config: max_idle_conns_per_host must not be negative"))
	}
	if c.Output.Dir != "" && c.Output.Bucket != "" {
		err = multierr.Append(err, errors.New("config: output dir and bucket are mutually exclusive"))
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("config: unknown log format %q", c.Log.Format))
	}
	return err
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Concurrency != 0 {
		c.Concurrency = override.Concurrency
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.PollInterval != 0 {
		c.PollInterval = override.PollInterval
	}
	if override.ReadBufferSize != 0 {
		c.ReadBufferSize = override.ReadBufferSize
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.MaxIdleConnsPerHost != 0 {
		c.MaxIdleConnsPerHost = override.MaxIdleConnsPerHost
	}
	if override.Output.Dir != "" {
		c.Output.Dir = override.Output.Dir
	}
	if override.Output.Bucket != "" {
		c.Output.Bucket = override.Output.Bucket
	}
	if override.Output.Prefix != "" {
		c.Output.Prefix = override.Output.Prefix
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.MetricsAddr != "" {
		c.MetricsAddr = override.MetricsAddr
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		c.Log.Format = override.Log.Format
	}
	return c
}
