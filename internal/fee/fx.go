package fee

import (
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/domain"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/repository"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/fee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fee.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	// built eagerly so its delivery listeners exist before the outbox worker runs
	fx.Invoke(func(domain.Service) {}),
)
