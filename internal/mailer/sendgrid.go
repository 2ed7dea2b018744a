package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type SendgridSender struct {
	apiKey string
	host   string
}

func NewSendgridSender(cfg *SendgridConfig) *SendgridSender {
	host := cfg.Host
	if host == "" {
		host = sendgridHost
	}
	return &SendgridSender{apiKey: cfg.APIKey, host: host}
}

func (s *SendgridSender) Name() string {
	return TransportSendgrid
}

func (s *SendgridSender) Send(ctx context.Context, msg *Message) error {
	if s.apiKey == "" {
		return ErrKeyMissing
	}

	if err := msg.validate(); err != nil {
		return err
	}

	fromName := msg.FromName
	if fromName == "" {
		fromName = msg.FromAddress
	}

	toName := msg.ToName
	if toName == "" {
		toName = msg.ToAddress
	}

	from := mail.NewEmail(fromName, msg.FromAddress)
	to := mail.NewEmail(toName, msg.ToAddress)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.TextBody, msg.HTMLBody)

	request := sendgrid.GetRequest(s.apiKey, sendgridEndpoint, s.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: sendgrid returned %d: %s", ErrSendFailed, resp.StatusCode, resp.Body)
	}

	slog.Debug("email sent", "transport", TransportSendgrid, "to", msg.ToAddress, "status", resp.StatusCode, "messageId", resp.Headers["X-Message-Id"])
	return nil
}
