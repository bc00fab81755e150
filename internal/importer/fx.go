package importer

import (
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/importer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("importer.service",
	fx.Provide(service.New),
)
