// Package config loads GoSurface settings from YAML and command-line flags.
//
// Precedence is: built-in defaults, then the YAML file, then flags that were
// set explicitly on the command line.
package config

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MaxResolution is the largest accepted grid resolution.
const MaxResolution = 2000

// Config holds every tunable of the CLI and the server.
type Config struct {
	Resolution  int    `yaml:"resolution"`
	Workers     int    `yaml:"workers"`
	Concurrency bool   `yaml:"concurrency"`
	CacheSize   int    `yaml:"cache_size"`
	Log         Log    `yaml:"log"`
	Server      Server `yaml:"server"`
}

// Log configures the slog handler.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Server configures the HTTP API.
type Server struct {
	Listen       string        `yaml:"listen"`
	BodyLimit    string        `yaml:"body_limit"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	RateLimit    RateLimit     `yaml:"rate_limit"`
	// AssistantURL, when set, forwards /assist prompts to a remote service
	// instead of the built-in shape catalog.
	AssistantURL string `yaml:"assistant_url"`
}

// RateLimit configures per-client request limiting.
type RateLimit struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Resolution:  100,
		Workers:     0,
		Concurrency: true,
		CacheSize:   256,
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Server: Server{
			Listen:       ":8080",
			BodyLimit:    "64K",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateLimit: RateLimit{
				Enabled: true,
				RPS:     10,
				Burst:   20,
			},
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := cfg.Decode(bytes.NewReader(data)); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Decode overlays YAML from r onto c. Unknown keys are rejected.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Encode writes c as YAML.
func (c Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// RegisterFlags binds the common settings to fs, using the current values of
// c as defaults. Flags are applied when fs is parsed.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Resolution, "resolution", c.Resolution, "grid resolution N; the mesh has (N+1)^2 vertices")
	fs.IntVar(&c.Workers, "workers", c.Workers, "sampling goroutines (0 = number of CPUs)")
	fs.BoolVar(&c.Concurrency, "concurrency", c.Concurrency, "sample rows in parallel")
	fs.IntVar(&c.CacheSize, "cache-size", c.CacheSize, "compiled expression cache capacity")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "log level: debug, info, warn, error")
	fs.StringVar(&c.Log.Format, "log-format", c.Log.Format, "log format: text or json")
}

// RegisterServerFlags binds the server settings to fs.
func (c *Config) RegisterServerFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Server.Listen, "listen", c.Server.Listen, "HTTP listen address")
	fs.StringVar(&c.Server.BodyLimit, "body-limit", c.Server.BodyLimit, "maximum request body size, e.g. 64K")
	fs.BoolVar(&c.Server.RateLimit.Enabled, "rate-limit", c.Server.RateLimit.Enabled, "enable per-client rate limiting")
	fs.Float64Var(&c.Server.RateLimit.RPS, "rate-rps", c.Server.RateLimit.RPS, "requests per second per client")
	fs.IntVar(&c.Server.RateLimit.Burst, "rate-burst", c.Server.RateLimit.Burst, "request burst per client")
	fs.StringVar(&c.Server.AssistantURL, "assistant-url", c.Server.AssistantURL, "remote assistant endpoint")
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Resolution < 1 || c.Resolution > MaxResolution {
		return errors.Errorf("resolution must be in [1, %d], got %d", MaxResolution, c.Resolution)
	}
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.CacheSize < 0 {
		return errors.Errorf("cache_size must not be negative, got %d", c.CacheSize)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Server.RateLimit.Enabled && (c.Server.RateLimit.RPS <= 0 || c.Server.RateLimit.Burst < 1) {
		return errors.Errorf("rate limit needs rps > 0 and burst >= 1")
	}
	return nil
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return level, errors.Wrap(err, "log level")
	}
	return level, nil
}

// NewLogger builds a logger writing to w according to l.
func (l Log) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// String renders c as YAML for diagnostics.
func (c Config) String() string {
	var sb strings.Builder
	if err := c.Encode(&sb); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return sb.String()
}
