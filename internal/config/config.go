// Package config loads pipeline configuration from environment variables,
// an optional YAML file, and command-line flags, via viper/pflag.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ExchangeConfig describes how to reach the exchange's REST and
// combined-stream WebSocket endpoints.
type ExchangeConfig struct {
	RESTBaseURL string `mapstructure:"rest_base_url"`
	WSBaseURL   string `mapstructure:"ws_base_url"`
	Testnet     bool   `mapstructure:"testnet"`

	// MaxSymbolsPerConn bounds how many symbols are grouped into one
	// combined-stream connection (the exchange carries two streams per
	// symbol, so this also bounds streams-per-connection at 2x).
	MaxSymbolsPerConn int `mapstructure:"max_symbols_per_conn"`

	// ConnLifetime is the exchange's unilateral disconnect horizon; a new
	// connection is opened every ConnLifetime.
	ConnLifetime time.Duration `mapstructure:"conn_lifetime"`
	// ConnGrace is the overlap window held past ConnLifetime so an
	// outgoing connection still delivers frames while its replacement
	// warms up.
	ConnGrace time.Duration `mapstructure:"conn_grace"`
}

// RateLimitConfig describes the exchange's per-minute weight budget and
// the fixed request weights the pipeline issues.
type RateLimitConfig struct {
	ExchangeInfoWeight  int           `mapstructure:"exchange_info_weight"`
	DepthSnapshotWeight int           `mapstructure:"depth_snapshot_weight"`
	WindowDuration      time.Duration `mapstructure:"window_duration"`
}

// RecorderConfig describes the on-disk binary event log.
type RecorderConfig struct {
	OutputPath   string        `mapstructure:"output_path"`
	RotationFreq time.Duration `mapstructure:"rotation_freq"`
}

// StoreConfig describes the ClickHouse analytical store connection.
type StoreConfig struct {
	Addr        string `mapstructure:"addr"`
	Database    string `mapstructure:"database"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Compression string `mapstructure:"compression"`
}

// LoggingConfig describes how the structured logger is configured.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Output     string `mapstructure:"output"`
	JSONFormat bool   `mapstructure:"json_format"`
}

// Config is the top-level configuration for all three binaries
// (ingest, loader, replay). Each binary only reads the sections it needs.
type Config struct {
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Recorder  RecorderConfig  `mapstructure:"recorder"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	// Runtime is the wall-clock budget the ingest driver runs for before
	// cancelling all dependent tasks. Zero means run until killed.
	Runtime time.Duration `mapstructure:"runtime"`
	// SymbolsPath points at a newline-separated symbol list.
	SymbolsPath string `mapstructure:"symbols_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("exchange.rest_base_url", "https://api.binance.com")
	v.SetDefault("exchange.ws_base_url", "wss://stream.binance.com:9443")
	v.SetDefault("exchange.testnet", false)
	v.SetDefault("exchange.max_symbols_per_conn", 300)
	v.SetDefault("exchange.conn_lifetime", 12*time.Hour)
	v.SetDefault("exchange.conn_grace", 60*time.Second)

	v.SetDefault("rate_limit.exchange_info_weight", 20)
	v.SetDefault("rate_limit.depth_snapshot_weight", 250)
	v.SetDefault("rate_limit.window_duration", time.Minute)

	v.SetDefault("recorder.output_path", "marketdata")
	v.SetDefault("recorder.rotation_freq", time.Hour)

	v.SetDefault("store.addr", "127.0.0.1:9000")
	v.SetDefault("store.database", "marketdata")
	v.SetDefault("store.username", "default")
	v.SetDefault("store.password", "")
	v.SetDefault("store.compression", "lz4")

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.json_format", true)
}

// Load builds a Config from (in increasing precedence order) built-in
// defaults, an optional YAML config file, environment variables prefixed
// MDP_, and the given command-line flag set.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MDP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading config file %s: %w", configFile, err)
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: binding flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that must hold regardless of which binary
// loaded the config.
func (c *Config) Validate() error {
	if c.Exchange.MaxSymbolsPerConn <= 0 {
		return fmt.Errorf("config: exchange.max_symbols_per_conn must be positive")
	}
	if c.RateLimit.DepthSnapshotWeight <= 0 || c.RateLimit.ExchangeInfoWeight < 0 {
		return fmt.Errorf("config: rate_limit.depth_snapshot_weight must be positive and rate_limit.exchange_info_weight non-negative")
	}
	if c.Recorder.RotationFreq <= 0 {
		return fmt.Errorf("config: recorder.rotation_freq must be positive")
	}
	return nil
}

// RegisterIngestFlags registers the ingest binary's CLI surface onto fs,
// per the process's documented flag set.
func RegisterIngestFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "symbols-path":
			return "symbols_path"
		case "output-path":
			return "recorder.output_path"
		}
		return pflag.NormalizedName(name)
	})
	fs.Var(new(humanDurationValue), "runtime", `wall-clock runtime budget, e.g. "1day 7hours 43min" (0 = run until killed)`)
	fs.String("symbols-path", "", "path to a newline-separated symbol list")
	fs.String("output-path", "marketdata", "directory to write rotated binary logs into")
}
