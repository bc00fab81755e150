package otherpayment

import (
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/repository"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/otherpayment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("otherpayment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
