package poisfx

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wayfarer/internal/config"
	"wayfarer/internal/repositories"
	"wayfarer/internal/services"
	"wayfarer/pkg/metrics"
)

var Module = fx.Provide(
	provideCatalogRepo, providePOICache, providePOIGateway)

// provideCatalogRepo yields nil without a database.
func provideCatalogRepo(db *gorm.DB) repositories.CatalogRepository {
	if db == nil {
		return nil
	}
	return repositories.NewCatalogRepository(db)
}

func providePOICache(cfg *config.Config, client *redis.Client, log *zap.Logger) services.POICache {
	if client != nil {
		return services.NewRedisPOICache(client, cfg.POICacheTTL, log.Named("poi-cache"))
	}
	return services.NewMemoryPOICache(cfg.POICacheTTL)
}

// providePOIGateway uses OpenTripMap when a key is configured and the bundled
// fixtures otherwise; the catalogue is the secondary when a database exists.
func providePOIGateway(cfg *config.Config, catalog repositories.CatalogRepository, cache services.POICache,
	log *zap.Logger, m *metrics.Metrics) (services.POIGatewayInterface, error) {

	var primary services.POIProvider
	if cfg.OpenTripMapAPIKey != "" {
		primary = services.NewOpenTripMapProvider(cfg.OpenTripMapAPIKey, cfg.POITimeout)
	} else {
		fixtures, err := services.NewFixtureProvider()
		if err != nil {
			return nil, err
		}
		log.Info("OPENTRIPMAP_API_KEY not set, serving places from bundled fixtures")
		primary = fixtures
	}

	var secondary services.POIProvider
	if catalog != nil {
		secondary = services.NewCatalogProvider(catalog)
	}

	return services.NewPOIGateway(primary, secondary, cache, services.GatewayOptions{
		Timeout:       cfg.POITimeout,
		Retries:       cfg.POIRetries,
		DefaultRadius: cfg.POIRadiusMeters,
		DefaultLimit:  cfg.POILimit,
	}, log.Named("poi-gateway"), m), nil
}
