package notification

import (
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/repository"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
