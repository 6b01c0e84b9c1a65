package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nedzof/lockd.app-sub000/errors"
)

// Duration wraps time.Duration so JSON config can use "30s" style strings
type Duration time.Duration

// UnmarshalJSON accepts either a duration string ("2s") or nanoseconds
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
}

// MarshalJSON renders the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// FeedConfig configures the upstream transaction feed subscription
type FeedConfig struct {
	// URL is the WebSocket endpoint of the transaction feed provider
	URL string `json:"url"`
	// Token authenticates the subscription, sent in the subscribe frame
	Token string `json:"token,omitempty"`
	// StartHeight overrides the resume height when > 0
	StartHeight uint32 `json:"start_height"`
	// DefaultStartHeight is used when neither an explicit height nor a
	// persisted max processed height is available
	DefaultStartHeight uint32 `json:"default_start_height"`
	// MaxReconnects bounds reconnection attempts before giving up (fatal)
	MaxReconnects int `json:"max_reconnects"`
	// ReconnectInitialInterval is the first reconnect delay
	ReconnectInitialInterval Duration `json:"reconnect_initial_interval"`
	// ReconnectMaxInterval caps the reconnect delay
	ReconnectMaxInterval Duration `json:"reconnect_max_interval"`
	// HandshakeTimeout bounds the WebSocket dial
	HandshakeTimeout Duration `json:"handshake_timeout"`
}

// NATSConfig configures the internal JetStream bus
type NATSConfig struct {
	URL        string `json:"url"`
	Stream     string `json:"stream"`
	RawSubject string `json:"raw_subject"`
	Durable    string `json:"durable"`
}

// DatabaseConfig configures the Postgres persistence gateway
type DatabaseConfig struct {
	URL string `json:"url"`
}

// PipelineConfig configures the ingest processor
type PipelineConfig struct {
	// Workers bounds concurrent in-flight transactions
	Workers int `json:"workers"`
	// QueueSize bounds the pending work queue
	QueueSize int `json:"queue_size"`
	// LedgerMaxEntries bounds the dedup ledger
	LedgerMaxEntries int `json:"ledger_max_entries"`
	// RetryCeiling is the per-id failure count after which redelivery is dropped
	RetryCeiling int `json:"retry_ceiling"`
	// ProcessTimeout bounds one parse-then-persist sequence
	ProcessTimeout Duration `json:"process_timeout"`
}

// HTTPConfig configures the health/metrics endpoint
type HTTPConfig struct {
	ListenAddr string `json:"listen_addr"`
}

// Config is the root configuration for the ingestion daemon
type Config struct {
	Feed     FeedConfig     `json:"feed"`
	NATS     NATSConfig     `json:"nats"`
	Database DatabaseConfig `json:"database"`
	Pipeline PipelineConfig `json:"pipeline"`
	HTTP     HTTPConfig     `json:"http"`
}

// Default returns the baseline configuration
func Default() *Config {
	return &Config{
		Feed: FeedConfig{
			DefaultStartHeight:       811000,
			MaxReconnects:            12,
			ReconnectInitialInterval: Duration(time.Second),
			ReconnectMaxInterval:     Duration(time.Minute),
			HandshakeTimeout:         Duration(30 * time.Second),
		},
		NATS: NATSConfig{
			URL:        "nats://127.0.0.1:4222",
			Stream:     "LOCKD_TX",
			RawSubject: "lockd.tx.raw",
			Durable:    "lockd-ingest",
		},
		Pipeline: PipelineConfig{
			Workers:          5,
			QueueSize:        100,
			LedgerMaxEntries: 1000,
			RetryCeiling:     3,
			ProcessTimeout:   Duration(10 * time.Second),
		},
		HTTP: HTTPConfig{
			ListenAddr: ":8091",
		},
	}
}

// Load reads configuration from an optional JSON file, applies LOCKD_*
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapFatal(err, "config", "Load", "read config file")
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapFatal(err, "config", "Load", "parse config file")
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides configuration from LOCKD_* environment variables
func (c *Config) applyEnv() {
	if v := os.Getenv("LOCKD_FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("LOCKD_FEED_TOKEN"); v != "" {
		c.Feed.Token = v
	}
	if v := os.Getenv("LOCKD_START_HEIGHT"); v != "" {
		if h, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.Feed.StartHeight = uint32(h)
		}
	}
	if v := os.Getenv("LOCKD_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("LOCKD_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("LOCKD_HTTP_ADDR"); v != "" {
		c.HTTP.ListenAddr = v
	}
	if v := os.Getenv("LOCKD_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.Workers = n
		}
	}
}

// Validate checks the configuration for use
func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return errors.WrapFatal(
			fmt.Errorf("feed.url is required"),
			"config", "Validate", "check feed endpoint")
	}
	if c.NATS.URL == "" || c.NATS.Stream == "" || c.NATS.RawSubject == "" {
		return errors.WrapFatal(
			fmt.Errorf("nats.url, nats.stream and nats.raw_subject are required"),
			"config", "Validate", "check bus settings")
	}
	if c.Database.URL == "" {
		return errors.WrapFatal(
			fmt.Errorf("database.url is required"),
			"config", "Validate", "check database settings")
	}
	if c.Pipeline.Workers <= 0 {
		return errors.WrapFatal(
			fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers),
			"config", "Validate", "check pipeline settings")
	}
	if c.Pipeline.RetryCeiling <= 0 {
		return errors.WrapFatal(
			fmt.Errorf("pipeline.retry_ceiling must be positive, got %d", c.Pipeline.RetryCeiling),
			"config", "Validate", "check pipeline settings")
	}
	if c.Pipeline.LedgerMaxEntries <= 0 {
		return errors.WrapFatal(
			fmt.Errorf("pipeline.ledger_max_entries must be positive, got %d", c.Pipeline.LedgerMaxEntries),
			"config", "Validate", "check pipeline settings")
	}
	if c.Feed.MaxReconnects <= 0 {
		return errors.WrapFatal(
			fmt.Errorf("feed.max_reconnects must be positive, got %d", c.Feed.MaxReconnects),
			"config", "Validate", "check feed settings")
	}
	if c.Feed.ReconnectMaxInterval < c.Feed.ReconnectInitialInterval {
		return errors.WrapFatal(
			fmt.Errorf("feed.reconnect_max_interval must be >= feed.reconnect_initial_interval"),
			"config", "Validate", "check feed settings")
	}
	return nil
}
