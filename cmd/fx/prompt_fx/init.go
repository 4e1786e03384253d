package prompt_fx

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"wayfarer/internal/config"
	"wayfarer/pkg/llm"
	"wayfarer/pkg/metrics"
)

var Module = fx.Provide(
	ProvideGenerator,
	ProvideEmbedder)

// NewGenerator picks the text-generation backend named by LLM_PROVIDER.
func NewGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	switch cfg.LLMProvider {
	case "", "none":
		return llm.Disabled{}, nil
	case "gemini":
		return llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case "openai":
		return llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	case "openai-compatible":
		return llm.NewCompatible(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q: use gemini, openai, openai-compatible or none", cfg.LLMProvider)
	}
}

// ProvideGenerator returns the configured backend wrapped with timeouts,
// logs and metrics.
func ProvideGenerator(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (llm.Generator, error) {
	g, err := NewGenerator(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	if closer, ok := g.(interface{ Close() error }); ok {
		lc.Append(fx.StopHook(closer.Close))
	}
	log.Info("text generation configured", zap.String("provider", g.Name()))
	return llm.Instrument(g, cfg.LLMTimeout, log.Named("llm"), m), nil
}

// ProvideEmbedder uses OpenAI embeddings when a key is present and the local
// hashing embedder otherwise.
func ProvideEmbedder(cfg *config.Config) llm.Embedder {
	if cfg.OpenAIAPIKey != "" && cfg.LLMProvider == "openai" {
		return llm.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel)
	}
	return llm.HashEmbedder{}
}
