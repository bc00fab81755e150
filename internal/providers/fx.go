package providers

import (
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/providers/sms"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	sms.Module,
)
