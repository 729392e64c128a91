package feetype

import (
	"github.com/propline/propline/internal/feetype/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feetype.service",
	fx.Provide(service.NewService),
)
