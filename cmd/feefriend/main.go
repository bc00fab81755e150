package main

import (
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/clock"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/migration"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/observability"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/scheduler"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/server"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

// Single binary serving the HTTP API and running the scheduler.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
