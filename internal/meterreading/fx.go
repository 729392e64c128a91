package meterreading

import (
	"github.com/propline/propline/internal/meterreading/service"
	"go.uber.org/fx"
)

var Module = fx.Module("meterreading.service",
	fx.Provide(service.NewService),
)
