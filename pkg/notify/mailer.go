// Package notify delivers email and SMS, falling back to the log when a
// provider is not configured.
package notify

import (
	"context"
	"fmt"

	"cleaning-booking/pkg/utils"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers one message over a single channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Channel() string
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	dialer dialer
	from   string
	logger *zap.Logger
}

// NewMailer returns an SMTP mailer, or a log-only sender when SMTP_HOST is empty.
func NewMailer(cfg utils.EmailConfig, logger *zap.Logger) Sender {
	if cfg.Host == "" {
		return NewLogSender(ChannelEmail, logger)
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		logger: logger.With(zap.String("component", "smtp_mailer")),
	}
}

func (m *SMTPMailer) Channel() string { return ChannelEmail }

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", msg.To)
	message.SetHeader("Subject", msg.Subject)
	message.SetBody("text/plain", msg.Body)

	if err := m.dialer.DialAndSend(message); err != nil {
		m.logger.Warn("SMTP send failed", zap.String("to", msg.To), zap.Error(err))
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
