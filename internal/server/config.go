package server

import (
	"fmt"
	"log/slog"

	"github.com/openmined/aclnotify/internal/utils"
	"github.com/ulule/limiter/v3"
)

const (
	DefaultAddr      = "127.0.0.1:8080"
	DefaultRateLimit = "600-M"
	DefaultQueueSize = 256
	DefaultWorkers   = 4
)

type Config struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

type HTTPConfig struct {
	Addr       string `mapstructure:"addr"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
	AuthSecret string `mapstructure:"auth_secret"`
	RateLimit  string `mapstructure:"rate_limit"`
	QueueSize  int    `mapstructure:"queue_size"`
	Workers    int    `mapstructure:"workers"`
}

func (c *HTTPConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("http `addr` required")
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return fmt.Errorf("http `cert_file` and `key_file` must be set together")
	}
	if c.QueueSize < 0 || c.Workers < 0 {
		return fmt.Errorf("http `queue_size` and `workers` must not be negative")
	}
	if c.RateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
			return fmt.Errorf("http `rate_limit`: %w", err)
		}
	}
	return nil
}

func (c *HTTPConfig) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

func (c HTTPConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", c.Addr),
		slog.Bool("tls", c.TLSEnabled()),
		slog.String("auth_secret", utils.MaskSecret(c.AuthSecret)),
		slog.String("rate_limit", c.RateLimit),
		slog.Int("queue_size", c.QueueSize),
		slog.Int("workers", c.Workers),
	)
}

func (c *Config) Validate() error {
	return c.HTTP.Validate()
}
