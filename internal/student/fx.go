package student

import (
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/repository"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/student/service"
	"go.uber.org/fx"
)

var Module = fx.Module("student.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
