package academicyear

import (
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/academicyear/repository"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/academicyear/service"
	"go.uber.org/fx"
)

var Module = fx.Module("academicyear.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
