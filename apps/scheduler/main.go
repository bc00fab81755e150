package main

import (
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/billingperiod"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/clock"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/providers"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/ratelimit"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/scheduler"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by scheduler
		providers.Module,
		ratelimit.Module,
		billingperiod.Module,
		notification.Module,
		fee.Module,

		// No server module
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
