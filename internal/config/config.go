package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/openmined/aclnotify/internal/mailer"
	"github.com/openmined/aclnotify/internal/notifier"
	"github.com/openmined/aclnotify/internal/server"
	"github.com/openmined/aclnotify/internal/source"
	"github.com/openmined/aclnotify/internal/store"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "ACLNOTIFY"
	DefaultDotEnv  = ".env"
	DefaultDBPath  = "aclnotify.db"
	DefaultAPIWait = 10 * time.Second
)

// Config is the full service configuration as read by viper.
type Config struct {
	Path     string            `mapstructure:"-"`
	HTTP     server.HTTPConfig `mapstructure:"http"`
	Notifier notifier.Config   `mapstructure:"notifier"`
	Mail     mailer.Config     `mapstructure:"mail"`
	Store    store.Config      `mapstructure:"store"`
	Kafka    source.Config     `mapstructure:"kafka"`
}

func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Notifier.Validate(); err != nil {
		return err
	}
	if err := c.Mail.Validate(); err != nil {
		return err
	}
	// only the smtp settings file can supply a sender address
	if c.Mail.Transport != mailer.TransportSMTP && c.Notifier.FromAddress == "" {
		return fmt.Errorf("notifier `from_address` is required for the %s transport", c.Mail.Transport)
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.Kafka.Validate()
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", c.Path),
		slog.Any("http", c.HTTP),
		slog.Any("notifier", c.Notifier),
		slog.Any("mail", c.Mail),
		slog.Any("store", c.Store),
		slog.Any("kafka", c.Kafka),
	)
}

// NewViper returns a viper instance with defaults and ACLNOTIFY_ env binding.
// Every key has a default so that env-only keys are seen by Unmarshal.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", server.DefaultAddr)
	v.SetDefault("http.cert_file", "")
	v.SetDefault("http.key_file", "")
	v.SetDefault("http.auth_secret", "")
	v.SetDefault("http.rate_limit", server.DefaultRateLimit)
	v.SetDefault("http.queue_size", server.DefaultQueueSize)
	v.SetDefault("http.workers", server.DefaultWorkers)

	v.SetDefault("notifier.management_space", notifier.DefaultManagementSpace)
	v.SetDefault("notifier.users_subpath", notifier.DefaultUsersSubpath)
	v.SetDefault("notifier.from_address", "")
	v.SetDefault("notifier.from_name", "")
	v.SetDefault("notifier.subpaths", []string{})
	v.SetDefault("notifier.parallelism", notifier.DefaultParallelism)

	v.SetDefault("mail.transport", mailer.TransportSMTP)
	v.SetDefault("mail.api.url", "")
	v.SetDefault("mail.api.token", "")
	v.SetDefault("mail.api.timeout", DefaultAPIWait)
	v.SetDefault("mail.sendgrid.api_key", "")
	v.SetDefault("mail.sendgrid.host", "")
	v.SetDefault("mail.smtp.config_file", "smtp.json")

	v.SetDefault("store.driver", store.DriverSqlite)
	v.SetDefault("store.path", DefaultDBPath)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.blob.bucket_name", "")
	v.SetDefault("store.blob.region", "")
	v.SetDefault("store.blob.access_key", "")
	v.SetDefault("store.blob.secret_key", "")
	v.SetDefault("store.blob.endpoint", "")
	v.SetDefault("store.user_cache_ttl", time.Duration(0))
	v.SetDefault("store.user_cache_size", 1024)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", source.DefaultTopic)
	v.SetDefault("kafka.group", source.DefaultGroup)
}

// LoadDotEnv populates the process environment from path when it exists.
// Variables already set take precedence.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("dotenv %s: %w", path, err)
	}
	return nil
}

// ReadFile reads path into v. A missing file is only an error when required.
func ReadFile(v *viper.Viper, path string, required bool) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if required || (!enoent && !notFound) {
			return fmt.Errorf("config read '%s': %w", path, err)
		}
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
