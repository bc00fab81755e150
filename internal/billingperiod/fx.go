package billingperiod

import (
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/billingperiod/repository"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/billingperiod/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billingperiod.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
