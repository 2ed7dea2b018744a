package mailer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/openmined/aclnotify/internal/utils"
)

type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SendgridConfig struct {
	APIKey string `mapstructure:"api_key"`
	Host   string `mapstructure:"host"`
}

type SMTPFileConfig struct {
	ConfigFile string `mapstructure:"config_file"`
}

type Config struct {
	Transport string         `mapstructure:"transport"`
	API       APIConfig      `mapstructure:"api"`
	Sendgrid  SendgridConfig `mapstructure:"sendgrid"`
	SMTP      SMTPFileConfig `mapstructure:"smtp"`
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportAPI:
		if !utils.IsValidURL(c.API.URL) {
			return fmt.Errorf("mail `api.url` %q is not a valid URL", c.API.URL)
		}
	case TransportSendgrid:
		if c.Sendgrid.APIKey == "" {
			return fmt.Errorf("mail `sendgrid.api_key` is required")
		}
	case TransportSMTP:
		if c.SMTP.ConfigFile == "" {
			return fmt.Errorf("mail `smtp.config_file` is required")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTransport, c.Transport)
	}
	return nil
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("transport", c.Transport),
		slog.String("api_url", c.API.URL),
		slog.String("api_token", utils.MaskSecret(c.API.Token)),
		slog.String("sendgrid_api_key", utils.MaskSecret(c.Sendgrid.APIKey)),
		slog.String("smtp_config_file", c.SMTP.ConfigFile),
	)
}
