// Package config loads the rule store daemon configuration.
//
// The configuration is a single YAML file. Values missing from the file
// keep their defaults; unknown keys are an error. Command-line flags
// override file values after loading.
//
//	listen: 127.0.0.1:7816
//	storage: /var/lib/aram/rules.img
//	chunk_size: 255
//	max_entries: 0
//	log_level: info
//	advertise: true
//	instance: card-1
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pion/logging"
	"gopkg.in/yaml.v3"

	"github.com/backkem/aram/pkg/aram"
	"github.com/backkem/aram/pkg/discovery"
)

// DefaultListen is the default daemon listen address.
const DefaultListen = "127.0.0.1:7816"

// Config is the rule store daemon configuration.
type Config struct {
	// Listen is the TCP address the daemon accepts connections on.
	Listen string `yaml:"listen"`

	// Storage is the path of the persistent rule image. Empty keeps the
	// rules in memory only. ${VAR} references are expanded.
	Storage string `yaml:"storage"`

	// ChunkSize is the GET DATA response chunk size (8-256).
	ChunkSize int `yaml:"chunk_size"`

	// MaxEntries bounds the number of rules. Zero means unbounded.
	MaxEntries int `yaml:"max_entries"`

	// LogLevel is one of disabled, error, warn, info, debug, trace.
	LogLevel string `yaml:"log_level"`

	// Advertise enables DNS-SD advertisement of the daemon.
	Advertise bool `yaml:"advertise"`

	// Instance is the DNS-SD instance name. Empty generates one.
	Instance string `yaml:"instance"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Listen:    DefaultListen,
		ChunkSize: aram.DefaultChunkSize,
		LogLevel:  "info",
	}
}

// LoadFile loads the configuration at path over the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration data over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	cfg.Storage = os.ExpandEnv(cfg.Storage)
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, fmt.Errorf("listen is required"))
	}
	if c.ChunkSize < aram.MinChunkSize || c.ChunkSize > aram.MaxChunkSize {
		errs = append(errs, fmt.Errorf("chunk_size must be between %d and %d, got %d", aram.MinChunkSize, aram.MaxChunkSize, c.ChunkSize))
	}
	if c.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("max_entries must not be negative, got %d", c.MaxEntries))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(c.Instance) > discovery.MaxInstanceNameLength {
		errs = append(errs, fmt.Errorf("instance must be at most %d bytes", discovery.MaxInstanceNameLength))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// LoggerFactory returns a logger factory at the configured level.
func (c *Config) LoggerFactory() (*logging.DefaultLoggerFactory, error) {
	level, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	factory := logging.NewDefaultLoggerFactory()
	factory.DefaultLogLevel = level
	return factory, nil
}

// ParseLogLevel maps a level name to a pion/logging level.
func ParseLogLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(s) {
	case "disabled", "off":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("log_level %q must be one of disabled, error, warn, info, debug, trace", s)
	}
}
