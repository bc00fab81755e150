package main

import (
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/clock"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/server"
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

		// HTTP only; run apps/scheduler next to it for the sweep and the outbox
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
