package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/concert-mate/bot/core/config"
	coredatabase "github.com/concert-mate/bot/core/database"
)

// RedisConfig points at the result cache and dedup store.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// BrokerConfig points at the NATS subject carrying tracker events.
type BrokerConfig struct {
	URL     string `yaml:"url" envconfig:"BROKER_URL"`
	Subject string `yaml:"subject" envconfig:"BROKER_SUBJECT"`
	Queue   string `yaml:"queue" envconfig:"BROKER_QUEUE"`
}

// UserServiceConfig points at the backend REST API.
type UserServiceConfig struct {
	Host           string `yaml:"host" envconfig:"USER_SERVICE_HOST"`
	Port           int    `yaml:"port" envconfig:"USER_SERVICE_PORT"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"USER_SERVICE_TIMEOUT_SECONDS"`
}

// BaseURL renders the backend root the agent prepends to every path.
func (c UserServiceConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// Timeout returns the request timeout, zero meaning "use the agent default".
func (c UserServiceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NotifierConfig tunes notification delivery pacing.
type NotifierConfig struct {
	BatchSize     int `yaml:"batch_size" envconfig:"NOTIFIER_BATCH_SIZE"`
	BatchPauseMS  int `yaml:"batch_pause_ms" envconfig:"NOTIFIER_BATCH_PAUSE_MS"`
	DedupTTLHours int `yaml:"dedup_ttl_hours" envconfig:"NOTIFIER_DEDUP_TTL_HOURS"`
}

// Config aggregates everything both processes read at startup. The core
// section carries the shared Telegram/logging/rate-limit settings.
type Config struct {
	Core        coreconfig.Config   `yaml:",inline"`
	Database    coredatabase.Config `yaml:"database"`
	Redis       RedisConfig         `yaml:"redis"`
	Broker      BrokerConfig        `yaml:"broker"`
	UserService UserServiceConfig   `yaml:"user_service"`
	Notifier    NotifierConfig      `yaml:"notifier"`
}

// CoreConfig exposes the embedded core configuration to the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// Load reads configuration from a YAML file and the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func normalize(cfg *Config) error {
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if strings.TrimSpace(cfg.Broker.URL) == "" {
		return fmt.Errorf("broker.url is required")
	}
	if strings.TrimSpace(cfg.Broker.Subject) == "" {
		cfg.Broker.Subject = "concerts.notifications"
	}
	if strings.TrimSpace(cfg.Broker.Queue) == "" {
		cfg.Broker.Queue = "concert-mate-notifier"
	}
	if strings.TrimSpace(cfg.UserService.Host) == "" {
		return fmt.Errorf("user_service.host is required")
	}
	if cfg.UserService.Port <= 0 {
		return fmt.Errorf("user_service.port must be > 0")
	}
	if cfg.UserService.TimeoutSeconds < 0 {
		return fmt.Errorf("user_service.timeout_seconds must be >= 0")
	}
	return nil
}
