package sms

import (
	"strings"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.sms",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	switch strings.ToLower(strings.TrimSpace(cfg.SMSProvider)) {
	case "noop", "none":
		return &NoOpProvider{}
	default:
		return NewLogProvider(log)
	}
}
