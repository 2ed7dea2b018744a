package mailer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/openmined/aclnotify/internal/utils"
	"github.com/tidwall/jsonc"
)

const (
	defaultSMTPPort  = 587
	implicitTLSPort  = 465
	smtpConfigObject = "smtp_config"
)

// SMTPConfig is the `smtp_config` object of the SMTP settings file.
type SMTPConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	FromAddress string `json:"from_address"`
	FromName    string `json:"from_name"`
}

func (c SMTPConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("host", c.Host),
		slog.Int("port", c.Port),
		slog.String("username", c.Username),
		slog.String("password", utils.MaskSecret(c.Password)),
		slog.String("from_address", c.FromAddress),
		slog.String("from_name", c.FromName),
	)
}

type smtpConfigFile struct {
	SMTP *SMTPConfig `json:"smtp_config"`
}

// LoadSMTPConfig reads the SMTP settings file once. A missing file yields an
// empty config so that sends report ErrSMTPNotConfigured instead of failing
// startup. Comments in the file are allowed.
func LoadSMTPConfig(path string) (*SMTPConfig, error) {
	cfg := &SMTPConfig{}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("smtp config file not found", "path", path)
		cfg.Port = defaultSMTPPort
		return cfg, nil
	} else if err != nil {
		return nil, fmt.Errorf("read smtp config %q: %w", path, err)
	}

	var file smtpConfigFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parse smtp config %q: %w", path, err)
	}

	if file.SMTP != nil {
		cfg = file.SMTP
	} else {
		slog.Warn("smtp config file has no smtp_config object", "path", path)
	}
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}

	slog.Info("smtp config loaded", "path", path, "smtp", cfg)
	return cfg, nil
}
