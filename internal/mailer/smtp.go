package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	gomail "github.com/go-mail/mail/v2"
	"github.com/google/uuid"
)

const smtpTimeout = 30 * time.Second

type smtpDialFunc func(d *gomail.Dialer) (gomail.SendCloser, error)

// SMTPSender opens one SMTP session per message.
type SMTPSender struct {
	cfg  *SMTPConfig
	dial smtpDialFunc
	now  func() time.Time
}

func NewSMTPSender(cfg *SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, dial: (*gomail.Dialer).Dial, now: time.Now}
}

func (s *SMTPSender) Name() string {
	return TransportSMTP
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if s.cfg == nil || s.cfg.Host == "" {
		return ErrSMTPNotConfigured
	}

	// the settings file supplies the sender when the caller does not
	resolved := *msg
	if resolved.FromAddress == "" {
		resolved.FromAddress = s.cfg.FromAddress
	}
	if resolved.FromName == "" {
		resolved.FromName = s.cfg.FromName
	}
	if err := resolved.validate(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	d := s.newDialer(ctx)
	addr := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))

	sc, err := s.dial(d)
	if err != nil && !d.SSL && isAlreadyEncrypted(err) {
		// the server refused STARTTLS because the session is already
		// encrypted; reconnect without asking again
		slog.Debug("smtp session already encrypted", "host", d.Host)
		d.StartTLSPolicy = gomail.NoStartTLS
		if d.Auth != nil {
			d.Auth = encryptedAuth{d.Auth}
		}
		sc, err = s.dial(d)
	}
	if err != nil {
		return fmt.Errorf("%w: connect %s: %w", ErrSendFailed, addr, err)
	}
	defer closeSMTP(sc)

	if err := gomail.Send(sc, buildMessage(&resolved, s.now(), d.Host)); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	slog.Debug("email sent", "transport", TransportSMTP, "to", resolved.ToAddress, "host", d.Host)
	return nil
}

// newDialer maps the settings file onto a dialer: implicit TLS on 465,
// mandatory STARTTLS elsewhere, PLAIN auth only with both credentials.
func (s *SMTPSender) newDialer(ctx context.Context) *gomail.Dialer {
	port := s.cfg.Port
	if port == 0 {
		port = defaultSMTPPort
	}

	// credentials go through Auth so the dialer never picks a mechanism itself
	d := gomail.NewDialer(s.cfg.Host, port, "", "")
	d.SSL = port == implicitTLSPort
	d.StartTLSPolicy = gomail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{ServerName: s.cfg.Host}
	d.RetryFailure = false
	d.Timeout = smtpTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 && left < d.Timeout {
			d.Timeout = left
		}
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		d.Auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return d
}

// encryptedAuth tells the wrapped mechanism the session is encrypted. It is
// only used after the server answered STARTTLS with "already active".
type encryptedAuth struct {
	smtp.Auth
}

func (a encryptedAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	info := *server
	info.TLS = true
	return a.Auth.Start(&info)
}

func isAlreadyEncrypted(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already")
}

// closeSMTP ends the session; errors at this point are irrelevant to delivery.
func closeSMTP(sc gomail.SendCloser) {
	if err := sc.Close(); err != nil {
		slog.Debug("smtp quit", "error", err)
	}
}

func buildMessage(msg *Message, now time.Time, host string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.FromAddress, msg.FromName)
	m.SetAddressHeader("To", msg.ToAddress, msg.ToName)
	m.SetHeader("Subject", msg.Subject)
	m.SetDateHeader("Date", now)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), host))

	if msg.TextBody != "" {
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	} else {
		m.SetBody("text/html", msg.HTMLBody)
	}
	return m
}
