package sms

import (
	"context"
	"testing"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogProviderMasksPhone(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogProvider(zap.New(core))

	err := p.Send(context.Background(), Message{Phone: "+9607771234", Body: "hello", NotificationID: "1"})
	assert.NoError(t, err)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "1234", fields["phone_suffix"])
		assert.NotContains(t, fields, "phone")
	}

	assert.ErrorIs(t, p.Send(context.Background(), Message{Body: "hello"}), ErrMissingPhone)
}

func TestNewFromConfig(t *testing.T) {
	assert.IsType(t, &NoOpProvider{}, NewFromConfig(config.Config{SMSProvider: "noop"}, zap.NewNop()))
	assert.IsType(t, &LogProvider{}, NewFromConfig(config.Config{SMSProvider: "log"}, zap.NewNop()))
}
