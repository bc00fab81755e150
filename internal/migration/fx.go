package migration

import (
	"context"
	"strings"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.DBAutoMigrate {
			return nil
		}

		switch strings.ToLower(strings.TrimSpace(cfg.DBType)) {
		case "postgres":
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		case "sqlite":
			return ApplySQLiteSchema(context.Background(), conn)
		default:
			log.Warn("auto migration is not supported for database type, apply sql/ manually",
				zap.String("db_type", cfg.DBType),
			)
			return nil
		}
	}),
)
