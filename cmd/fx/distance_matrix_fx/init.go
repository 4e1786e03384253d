package distance_matrix_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"wayfarer/internal/config"
	"wayfarer/internal/services"
)

var Module = fx.Provide(provideTravelEstimator)

func provideTravelEstimator(cfg *config.Config, log *zap.Logger) services.TravelEstimator {
	if cfg.MapboxToken == "" {
		return services.HaversineEstimator{}
	}
	return services.NewMapboxMatrixClient(cfg.MapboxToken, services.NewInMemoryPairCache(), log.Named("mapbox"))
}
