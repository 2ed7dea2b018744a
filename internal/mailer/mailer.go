package mailer

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrSendFailed           = errors.New("mail send failed")
	ErrKeyMissing           = errors.New("sendgrid api key is not set")
	ErrInvalidMailSender    = errors.New("invalid mail sender")
	ErrInvalidMailRecipient = errors.New("invalid mail recipient")
	ErrSMTPNotConfigured    = errors.New("smtp host is not configured")
	ErrUnknownTransport     = errors.New("unknown mail transport")
)

const (
	TransportAPI      = "api"
	TransportSendgrid = "sendgrid"
	TransportSMTP     = "smtp"
)

// Message is a single HTML email.
type Message struct {
	FromName    string
	FromAddress string
	ToName      string
	ToAddress   string
	Subject     string
	HTMLBody    string
	// TextBody is an optional plain alternative to HTMLBody.
	TextBody    string
}

func (m *Message) validate() error {
	if m.FromAddress == "" {
		return ErrInvalidMailSender
	}
	if m.ToAddress == "" {
		return ErrInvalidMailRecipient
	}
	return nil
}

// Sender delivers a message over one transport. A nil error means the
// transport accepted the message.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// New builds the Sender selected by cfg.Transport.
func New(cfg *Config) (Sender, error) {
	switch cfg.Transport {
	case TransportAPI:
		return NewAPISender(&cfg.API), nil
	case TransportSendgrid:
		return NewSendgridSender(&cfg.Sendgrid), nil
	case TransportSMTP:
		smtpCfg, err := LoadSMTPConfig(cfg.SMTP.ConfigFile)
		if err != nil {
			return nil, err
		}
		return NewSMTPSender(smtpCfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
}
