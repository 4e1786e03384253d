package metrics_fx

import (
	"go.uber.org/fx"

	"wayfarer/pkg/metrics"
)

var Module = fx.Provide(metrics.New)
