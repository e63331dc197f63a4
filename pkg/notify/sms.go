package notify

import (
	"context"
	"fmt"

	"cleaning-booking/pkg/utils"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioSMS struct {
	api    messageCreator
	from   string
	logger *zap.Logger
}

// NewSMS returns a Twilio sender, or a log-only sender without credentials.
func NewSMS(cfg utils.TwilioConfig, logger *zap.Logger) Sender {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return NewLogSender(ChannelSMS, logger)
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSMS{
		api:    client.Api,
		from:   cfg.FromNumber,
		logger: logger.With(zap.String("component", "twilio_sms")),
	}
}

func (s *TwilioSMS) Channel() string { return ChannelSMS }

func (s *TwilioSMS) Send(_ context.Context, msg Message) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(s.from)
	params.SetBody(msg.Body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		s.logger.Warn("SMS send failed", zap.String("to", msg.To), zap.Error(err))
		return fmt.Errorf("send sms: %w", err)
	}
	if resp.Sid != nil {
		s.logger.Debug("SMS queued", zap.String("sid", *resp.Sid))
	}
	return nil
}

// LogSender writes the message to the log instead of delivering it.
type LogSender struct {
	channel string
	logger  *zap.Logger
}

func NewLogSender(channel string, logger *zap.Logger) *LogSender {
	return &LogSender{channel: channel, logger: logger}
}

func (l *LogSender) Channel() string { return l.channel }

func (l *LogSender) Send(_ context.Context, msg Message) error {
	l.logger.Info("Notification (log delivery)",
		zap.String("channel", l.channel),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}
