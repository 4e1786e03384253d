package poi_embedded_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wayfarer/internal/repositories"
	"wayfarer/internal/services"
	"wayfarer/pkg/llm"
)

var Module = fx.Provide(
	provideSnippetRepo, provideRetrievalService)

// provideSnippetRepo yields nil without a database.
func provideSnippetRepo(db *gorm.DB) repositories.SnippetRepository {
	if db == nil {
		return nil
	}
	return repositories.NewSnippetRepository(db)
}

func provideRetrievalService(repo repositories.SnippetRepository, embedder llm.Embedder, log *zap.Logger) services.RetrievalServiceInterface {
	return services.NewRetrievalService(repo, embedder, log.Named("retrieval"))
}
