package unitfee

import (
	"github.com/propline/propline/internal/unitfee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("unitfee.service",
	fx.Provide(service.NewService),
)
