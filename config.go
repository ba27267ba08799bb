package scrim

import (
	"strings"
	"time"

	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config carries every tunable of the engine. LoadConfig reads it from
// the environment; zero values fall back to the documented defaults,
// so a bare environment is fully usable.
type Config struct {
	RedisAddress  string `config:"REDIS_ADDRESS"`
	RedisPassword string `config:"REDIS_PASSWORD"`
	Namespace     string `config:"SCRIM_NAMESPACE"`
	Port          string `config:"SCRIM_PORT"`
	MetricsPort   string `config:"SCRIM_METRICS_PORT"`
	NatsURL       string `config:"NATS_URL"`
	LogLevel      string `config:"SCRIM_LOG_LEVEL"`

	// Matchmaking tunables. Durations are milliseconds on the wire.
	QueueTimeoutMs      int `config:"SCRIM_QUEUE_TIMEOUT_MS"`
	WindowStart         int `config:"SCRIM_WINDOW_START"`
	WindowStep          int `config:"SCRIM_WINDOW_STEP"`
	WindowIntervalMs    int `config:"SCRIM_WINDOW_INTERVAL_MS"`
	WindowMax           int `config:"SCRIM_WINDOW_MAX"`
	TierTolerance       int `config:"SCRIM_TIER_TOLERANCE"`
	SelectionWindowMs   int `config:"SCRIM_SELECTION_WINDOW_MS"`
	SecessionGraceMs    int `config:"SCRIM_SECESSION_GRACE_MS"`
	ResultTTLMs         int `config:"SCRIM_RESULT_TTL_MS"`
	RatingCacheTTLMs    int `config:"SCRIM_RATING_CACHE_TTL_MS"`
	ReconcileIntervalMs int `config:"SCRIM_RECONCILE_INTERVAL_MS"`
}

// LoadConfig reads the engine config from the environment. Fallback
// values are used for anything that is not set.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.FromEnv().To(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to load config from environment")
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RedisAddress == "" {
		c.RedisAddress = "localhost:6379"
	}
	if c.Namespace == "" {
		c.Namespace = "scrim"
	}
	if c.Port == "" {
		c.Port = "4040"
	}
	if c.MetricsPort == "" {
		c.MetricsPort = "8081"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.QueueTimeoutMs == 0 {
		c.QueueTimeoutMs = 180000
	}
	if c.WindowStart == 0 {
		c.WindowStart = 100
	}
	if c.WindowStep == 0 {
		c.WindowStep = 50
	}
	if c.WindowIntervalMs == 0 {
		c.WindowIntervalMs = 15000
	}
	if c.WindowMax == 0 {
		c.WindowMax = 400
	}
	if c.TierTolerance == 0 {
		c.TierTolerance = 20
	}
	if c.SelectionWindowMs == 0 {
		c.SelectionWindowMs = 120000
	}
	if c.SecessionGraceMs == 0 {
		c.SecessionGraceMs = 30000
	}
	if c.ResultTTLMs == 0 {
		c.ResultTTLMs = 90000
	}
	// ReconcileIntervalMs keeps its zero value: the maintenance loop
	// is opt-in.
	if c.RatingCacheTTLMs == 0 {
		c.RatingCacheTTLMs = 60000
	}
}

func (c Config) QueueTimeout() time.Duration {
	return time.Duration(c.QueueTimeoutMs) * time.Millisecond
}

func (c Config) WindowInterval() time.Duration {
	return time.Duration(c.WindowIntervalMs) * time.Millisecond
}

func (c Config) SelectionWindow() time.Duration {
	return time.Duration(c.SelectionWindowMs) * time.Millisecond
}

func (c Config) SecessionGrace() time.Duration {
	return time.Duration(c.SecessionGraceMs) * time.Millisecond
}

func (c Config) ResultTTL() time.Duration {
	return time.Duration(c.ResultTTLMs) * time.Millisecond
}

func (c Config) RatingCacheTTL() time.Duration {
	return time.Duration(c.RatingCacheTTLMs) * time.Millisecond
}

func (c Config) ReconcileInterval() time.Duration {
	return time.Duration(c.ReconcileIntervalMs) * time.Millisecond
}

func (c Config) setLogLevel() error {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return eris.Wrapf(err, "invalid log level %q", c.LogLevel)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}
