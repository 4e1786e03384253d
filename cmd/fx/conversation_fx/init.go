package conversation_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"wayfarer/internal/config"
	"wayfarer/internal/services"
	"wayfarer/pkg/llm"
	mem "wayfarer/pkg/memcache"
)

var Module = fx.Provide(
	services.DefaultLexicon,
	provideIntentService,
	providePreferenceService,
	provideExplainService,
	provideConversationService)

func provideIntentService(gen llm.Generator, lexicon *services.Lexicon, log *zap.Logger) services.IntentServiceInterface {
	return services.NewIntentService(gen, lexicon, log.Named("intent"))
}

func providePreferenceService(cfg *config.Config, gen llm.Generator, lexicon *services.Lexicon, log *zap.Logger) services.PreferenceServiceInterface {
	return services.NewPreferenceService(gen, lexicon, cfg.DefaultDestination, log.Named("preferences"))
}

func provideExplainService(gen llm.Generator, retrieval services.RetrievalServiceInterface, log *zap.Logger) services.ExplainServiceInterface {
	return services.NewExplainService(gen, retrieval, log.Named("explain"))
}

type conversationParams struct {
	fx.In

	Config      *config.Config
	Store       mem.SessionStore
	Intent      services.IntentServiceInterface
	Preferences services.PreferenceServiceInterface
	Gateway     services.POIGatewayInterface
	Builder     services.ItineraryBuilderInterface
	Parser      services.EditParserInterface
	Editor      services.EditServiceInterface
	Evaluator   services.EvaluationServiceInterface
	Explainer   services.ExplainServiceInterface
	Exporter    services.ExportServiceInterface
	Lexicon     *services.Lexicon
	Log         *zap.Logger
}

func provideConversationService(p conversationParams) services.ConversationServiceInterface {
	return services.NewConversationService(services.ConversationDeps{
		Store:       p.Store,
		Intent:      p.Intent,
		Preferences: p.Preferences,
		Gateway:     p.Gateway,
		Builder:     p.Builder,
		Parser:      p.Parser,
		Editor:      p.Editor,
		Evaluator:   p.Evaluator,
		Explainer:   p.Explainer,
		Exporter:    p.Exporter,
		Lexicon:     p.Lexicon,
		Cap:         p.Config.ClarificationCap,
		Log:         p.Log.Named("conversation"),
	})
}
