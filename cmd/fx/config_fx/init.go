package config_fx

import (
	"go.uber.org/fx"

	"wayfarer/internal/config"
)

var Module = fx.Provide(config.Load)
