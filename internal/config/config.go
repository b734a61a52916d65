// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Storage   StorageConfig   `yaml:"storage"`
	Registry  RegistryConfig  `yaml:"registry"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	StaticDir       string        `yaml:"static_dir"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	BodyLimit       int64         `yaml:"body_limit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type TransportConfig struct {
	Driver string `yaml:"driver"` // amqp | kafka | gossip | memory

	AMQP struct {
		URL          string `yaml:"url"`
		ExchangeType string `yaml:"exchange_type"`
	} `yaml:"amqp"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
	} `yaml:"kafka"`

	Gossip struct {
		ListenAddrs     []string `yaml:"listen_addrs"`
		Bootstrap       []string `yaml:"bootstrap"`
		Rendezvous      string   `yaml:"rendezvous"`
		EnableMDNS      bool     `yaml:"enable_mdns"`
		IdentityKeyFile string   `yaml:"identity_key_file"`
	} `yaml:"gossip"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // postgres | sqlite | redis | memory
	Bucket string `yaml:"bucket"`

	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`

	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

type RegistryConfig struct {
	SchemaDir string `yaml:"schema_dir"`
}

type PlaybackConfig struct {
	Workers     int           `yaml:"workers"`
	ColumnDelay time.Duration `yaml:"column_delay"`
	MaxColumn   int           `yaml:"max_column"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// Default returns a configuration that runs fully in memory.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Server.BodyLimit = 1 << 20
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Transport.Driver = "memory"
	cfg.Transport.AMQP.ExchangeType = "fanout"
	cfg.Transport.Gossip.Rendezvous = "reggie"
	cfg.Storage.Driver = "memory"
	cfg.Storage.Bucket = "reggie"
	cfg.Storage.SQLite.Path = "reggie.db"
	cfg.Playback.Workers = 4
	cfg.Playback.ColumnDelay = 750 * time.Millisecond
	cfg.Playback.MaxColumn = 30
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.Telemetry.ServiceName = "reggie"
	cfg.Telemetry.OTLPEndpoint = "localhost:4317"
	cfg.Telemetry.SampleRatio = 1
	return cfg
}

// LoadConfig reads a YAML file over the defaults and applies REGGIE_*
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	strs := map[string]*string{
		"REGGIE_ADDR":             &c.Server.Addr,
		"REGGIE_LOG_LEVEL":        &c.Log.Level,
		"REGGIE_TRANSPORT_DRIVER": &c.Transport.Driver,
		"REGGIE_AMQP_URL":         &c.Transport.AMQP.URL,
		"REGGIE_STORAGE_DRIVER":   &c.Storage.Driver,
		"REGGIE_STORAGE_BUCKET":   &c.Storage.Bucket,
		"REGGIE_DATABASE_URL":     &c.Storage.Postgres.URL,
		"REGGIE_SQLITE_PATH":      &c.Storage.SQLite.Path,
		"REGGIE_REDIS_ADDR":       &c.Storage.Redis.Addr,
		"REGGIE_REDIS_PASSWORD":   &c.Storage.Redis.Password,
		"REGGIE_JWT_SECRET":       &c.Auth.JWTSecret,
		"REGGIE_SCHEMA_DIR":       &c.Registry.SchemaDir,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup("REGGIE_KAFKA_BROKERS"); ok && v != "" {
		c.Transport.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("REGGIE_CORS_ORIGINS"); ok && v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
}

// Validate checks that the selected drivers have what they need.
func (c *Config) Validate() error {
	var errs []error

	switch c.Transport.Driver {
	case "memory":
	case "amqp":
		if c.Transport.AMQP.URL == "" {
			errs = append(errs, errors.New("transport.amqp.url is required for the amqp driver"))
		}
	case "kafka":
		if len(c.Transport.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("transport.kafka.brokers is required for the kafka driver"))
		}
	case "gossip":
	default:
		errs = append(errs, fmt.Errorf("unknown transport driver %q", c.Transport.Driver))
	}

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.Postgres.URL == "" {
			errs = append(errs, errors.New("storage.postgres.url is required for the postgres driver"))
		}
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			errs = append(errs, errors.New("storage.sqlite.path is required for the sqlite driver"))
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			errs = append(errs, errors.New("storage.redis.addr is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("storage.bucket is required"))
	}

	if c.Playback.Workers <= 0 {
		errs = append(errs, errors.New("playback.workers must be positive"))
	}
	if c.Playback.MaxColumn <= 0 {
		errs = append(errs, errors.New("playback.max_column must be positive"))
	}
	if c.Playback.ColumnDelay < 0 {
		errs = append(errs, errors.New("playback.column_delay must not be negative"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("telemetry.sample_ratio must be within [0, 1]"))
	}

	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
