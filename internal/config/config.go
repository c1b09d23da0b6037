// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides, e.g.
// VDL2_LOG_LEVEL for log.level.
const EnvPrefix = "VDL2"

// Config is the complete application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Decoder  DecoderConfig  `mapstructure:"decoder" yaml:"decoder"`
	Reasm    ReasmConfig    `mapstructure:"reasm" yaml:"reasm"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	NATS     NATSConfig     `mapstructure:"nats" yaml:"nats"`
	API      APIConfig      `mapstructure:"api" yaml:"api"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string     `mapstructure:"level" yaml:"level"`
	Format string     `mapstructure:"format" yaml:"format"`
	File   FileConfig `mapstructure:"file" yaml:"file"`
}

// FileConfig is a rotating output file. An empty Path disables it.
type FileConfig struct {
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:",squash" yaml:",inline"`
}

// RotationConfig holds lumberjack rotation limits.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// DecoderConfig controls X.25 decoding.
type DecoderConfig struct {
	// DecodeFragments hands incomplete fragments to the next-layer parsers.
	DecodeFragments bool `mapstructure:"decode_fragments" yaml:"decode_fragments"`
}

// ReasmConfig controls the reassembly tables.
type ReasmConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// MarshalYAML writes the durations in their string form.
func (r ReasmConfig) MarshalYAML() (any, error) {
	return map[string]string{
		"timeout":        r.Timeout.String(),
		"sweep_interval": r.SweepInterval.String(),
	}, nil
}

// OutputConfig selects the decoded output format and destination.
type OutputConfig struct {
	Format       string         `mapstructure:"format" yaml:"format"`
	Path         string         `mapstructure:"path" yaml:"path"` // Empty means stdout.
	UTC          bool           `mapstructure:"utc" yaml:"utc"`
	Milliseconds bool           `mapstructure:"milliseconds" yaml:"milliseconds"`
	Rotate       RotationConfig `mapstructure:"rotate" yaml:"rotate"`
}

// PipelineConfig sizes the decode worker pool.
type PipelineConfig struct {
	Workers   int `mapstructure:"workers" yaml:"workers"`
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
}

// StorageConfig selects the packet record sink.
type StorageConfig struct {
	Driver     string       `mapstructure:"driver" yaml:"driver"` // none, sqlite, postgres, clickhouse, mongo
	SQLite     SQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres   DBConfig     `mapstructure:"postgres" yaml:"postgres"`
	ClickHouse DBConfig     `mapstructure:"clickhouse" yaml:"clickhouse"`
	Mongo      MongoConfig  `mapstructure:"mongo" yaml:"mongo"`
}

// SQLiteConfig configures the SQLite sink.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DBConfig holds network database connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Database string `mapstructure:"database" yaml:"database"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
}

// MongoConfig configures the MongoDB sink.
type MongoConfig struct {
	URI        string `mapstructure:"uri" yaml:"uri"`
	Database   string `mapstructure:"database" yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// NATSConfig configures the frame feed.
type NATSConfig struct {
	URL            string `mapstructure:"url" yaml:"url"`
	Subject        string `mapstructure:"subject" yaml:"subject"`
	PublishSubject string `mapstructure:"publish_subject" yaml:"publish_subject"`
	Queue          string `mapstructure:"queue" yaml:"queue"`
}

// APIConfig configures the HTTP API.
type APIConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// New returns a viper instance with defaults and environment overrides set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the config file at path (optional) and returns the validated
// configuration.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file.path", "")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 5)
	v.SetDefault("log.file.max_age_days", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("decoder.decode_fragments", false)
	v.SetDefault("reasm.timeout", "10s")
	v.SetDefault("reasm.sweep_interval", "5s")

	v.SetDefault("output.format", "text")
	v.SetDefault("output.path", "")
	v.SetDefault("output.utc", false)
	v.SetDefault("output.milliseconds", false)
	v.SetDefault("output.rotate.max_size_mb", 100)
	v.SetDefault("output.rotate.max_backups", 10)
	v.SetDefault("output.rotate.max_age_days", 0)
	v.SetDefault("output.rotate.compress", false)

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.queue_size", 1024)

	v.SetDefault("storage.driver", "none")
	v.SetDefault("storage.sqlite.path", "vdl2.db")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.database", "vdl2")
	v.SetDefault("storage.postgres.user", "vdl2")
	v.SetDefault("storage.postgres.password", "")
	v.SetDefault("storage.clickhouse.host", "localhost")
	v.SetDefault("storage.clickhouse.port", 9000)
	v.SetDefault("storage.clickhouse.database", "vdl2")
	v.SetDefault("storage.clickhouse.user", "default")
	v.SetDefault("storage.clickhouse.password", "")
	v.SetDefault("storage.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("storage.mongo.database", "vdl2")
	v.SetDefault("storage.mongo.collection", "x25_packets")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "vdl2.frames")
	v.SetDefault("nats.publish_subject", "")
	v.SetDefault("nats.queue", "vdl2_parser")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", c.Log.Format)
	}
	if c.Output.Format != "json" && c.Output.Format != "text" {
		return fmt.Errorf("invalid output format: %s (must be json/text)", c.Output.Format)
	}
	switch c.Storage.Driver {
	case "none", "sqlite", "postgres", "clickhouse", "mongo":
	default:
		return fmt.Errorf("invalid storage driver: %s", c.Storage.Driver)
	}
	if c.Reasm.Timeout < 0 {
		return fmt.Errorf("reasm.timeout must not be negative")
	}
	if c.Pipeline.Workers < 1 {
		c.Pipeline.Workers = 1
	}
	return nil
}

// YAML renders the configuration the way a config file would hold it.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
