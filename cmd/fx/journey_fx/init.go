package journey_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"wayfarer/internal/config"
	"wayfarer/internal/services"
	"wayfarer/pkg/llm"
)

var Module = fx.Provide(
	provideDayWindow,
	provideItineraryBuilder,
	provideEditParser,
	provideEditService,
	provideEvaluationService)

func provideDayWindow(cfg *config.Config) (services.DayWindow, error) {
	return services.ParseWindow(cfg.DayStart, cfg.DayEnd)
}

func provideItineraryBuilder(gen llm.Generator, est services.TravelEstimator, window services.DayWindow, log *zap.Logger) services.ItineraryBuilderInterface {
	return services.NewItineraryBuilder(gen, est, window, log.Named("builder"))
}

func provideEditParser(gen llm.Generator, lexicon *services.Lexicon, log *zap.Logger) services.EditParserInterface {
	return services.NewEditParser(gen, lexicon, log.Named("edit-parser"))
}

func provideEditService(gateway services.POIGatewayInterface, lexicon *services.Lexicon, window services.DayWindow,
	est services.TravelEstimator, log *zap.Logger) services.EditServiceInterface {
	return services.NewEditService(gateway, lexicon, window, est, log.Named("edit"))
}

func provideEvaluationService(cfg *config.Config, window services.DayWindow) (services.EvaluationServiceInterface, error) {
	return services.NewEvaluationService(window, cfg.GroundingPatterns)
}
