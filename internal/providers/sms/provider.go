package sms

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Message is one outbound SMS. NotificationID lets gateways deduplicate retries.
type Message struct {
	Phone          string
	Body           string
	NotificationID string
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

var ErrMissingPhone = errors.New("sms_missing_phone")

// LogProvider writes the message to the log and reports success.
type LogProvider struct {
	log *zap.Logger
}

func NewLogProvider(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log.Named("sms.log")}
}

func (p *LogProvider) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.Phone) == "" {
		return ErrMissingPhone
	}
	p.log.Info("sms sent",
		zap.String("notification_id", msg.NotificationID),
		zap.String("phone_suffix", phoneSuffix(msg.Phone)),
		zap.Int("length", len(msg.Body)),
	)
	return nil
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	return nil
}

func phoneSuffix(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return phone[len(phone)-4:]
}
