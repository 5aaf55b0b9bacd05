// Package config loads runtime settings from a YAML file overlaid with
// TURNSTILE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/turnstile/pkg/persistence/middleware"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override, e.g. TURNSTILE_STORE_DRIVER.
const EnvPrefix = "TURNSTILE"

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ServerConfig holds the HTTP transport settings.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	AuthToken   string   `yaml:"auth_token" split_words:"true"`
	CORSOrigins []string `yaml:"cors_origins" split_words:"true"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// StoreConfig selects and configures the StateStore.
type StoreConfig struct {
	Driver string      `yaml:"driver"`
	Path   string      `yaml:"path"`
	DSN    string      `yaml:"dsn"`
	Redis  RedisConfig `yaml:"redis"`
	// EncryptionKey enables at-rest encryption of stacks (32 bytes, base64 or hex).
	EncryptionKey string `yaml:"encryption_key" split_words:"true"`
	// PIIKeys are patterns of result keys masked before persistence.
	PIIKeys []string `yaml:"pii_keys" split_words:"true"`
}

// EngineConfig holds turn processing settings.
type EngineConfig struct {
	RootDialog      string        `yaml:"root_dialog" split_words:"true"`
	DialogsFile     string        `yaml:"dialogs_file" split_words:"true"`
	ActionsFile     string        `yaml:"actions_file" split_words:"true"`
	TurnTimeout     time.Duration `yaml:"turn_timeout" split_words:"true"`
	ErrorMessage    string        `yaml:"error_message" split_words:"true"`
	RetryMessage    string        `yaml:"retry_message" split_words:"true"`
	CancelPhrases   []string      `yaml:"cancel_phrases" split_words:"true"`
	CancelMessage   string        `yaml:"cancel_message" split_words:"true"`
	MaxSteps        int           `yaml:"max_steps" split_words:"true"`
	LockTTL         time.Duration `yaml:"lock_ttl" split_words:"true"`
	DistributedLock bool          `yaml:"distributed_lock" split_words:"true"`
	BotID           string        `yaml:"bot_id" split_words:"true"`
	TraceReplies    bool          `yaml:"trace_replies" split_words:"true"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig holds metrics and tracing settings.
type TelemetryConfig struct {
	Metrics      bool   `yaml:"metrics"`
	OTLPEndpoint string `yaml:"otlp_endpoint" split_words:"true"`
	ServiceName  string `yaml:"service_name" split_words:"true"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token       string        `yaml:"token"`
	PollTimeout time.Duration `yaml:"poll_timeout" split_words:"true"`
}

// Config aggregates the runtime configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Engine    EngineConfig    `yaml:"engine"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

// Load reads configuration from an optional YAML file and environment variables.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a normalized configuration with no file and no environment.
func Default() *Config {
	var cfg Config
	_ = Normalize(&cfg)
	return &cfg
}

// Normalize performs validation of configuration fields and fills in defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8080"
	}

	if err := normalizeStore(&cfg.Store); err != nil {
		return err
	}

	e := &cfg.Engine
	if e.TurnTimeout < 0 {
		return errors.New("engine.turn_timeout must be >= 0")
	}
	if e.MaxSteps < 0 {
		return errors.New("engine.max_steps must be >= 0")
	}
	if e.MaxSteps == 0 {
		e.MaxSteps = 256
	}
	if e.LockTTL <= 0 {
		e.LockTTL = 30 * time.Second
	}
	if e.CancelPhrases == nil {
		e.CancelPhrases = []string{"cancel", "quit"}
	}
	if e.DistributedLock && cfg.Store.Driver != DriverRedis {
		return errors.New("engine.distributed_lock requires store.driver 'redis'")
	}

	l := &cfg.Logging
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = "info"
	}
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q; allowed: debug, info, warn, error", cfg.Logging.Level)
	}
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	if l.Format == "" {
		l.Format = "text"
	}
	if l.Format != "text" && l.Format != "json" {
		return fmt.Errorf("invalid logging.format %q; allowed: text, json", cfg.Logging.Format)
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "turnstile"
	}

	if cfg.Telegram.PollTimeout < 0 {
		return errors.New("telegram.poll_timeout must be >= 0")
	}
	if cfg.Telegram.PollTimeout == 0 {
		cfg.Telegram.PollTimeout = 10 * time.Second
	}
	return nil
}

func normalizeStore(s *StoreConfig) error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	if s.Driver == "" {
		s.Driver = DriverMemory
	}

	switch s.Driver {
	case DriverMemory:
	case DriverFile:
		if s.Path == "" {
			s.Path = ".turnstile/conversations"
		}
	case DriverRedis:
		if s.Redis.Addr == "" {
			s.Redis.Addr = "localhost:6379"
		}
		if s.Redis.TTL < 0 {
			return errors.New("store.redis.ttl must be >= 0")
		}
	case DriverPostgres:
		if s.DSN == "" {
			return errors.New("store.dsn is required when store.driver is 'postgres'")
		}
	case DriverSQLite:
		if s.DSN == "" {
			if s.Path == "" {
				s.Path = ".turnstile/turnstile.db"
			}
			s.DSN = s.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
	default:
		return fmt.Errorf("invalid store.driver %q; allowed: memory, file, redis, postgres, sqlite", s.Driver)
	}

	if s.EncryptionKey != "" {
		if _, err := middleware.DecodeKey(s.EncryptionKey); err != nil {
			return fmt.Errorf("store.encryption_key: %w", err)
		}
	}
	return nil
}
