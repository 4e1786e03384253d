package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"wayfarer/internal/domain"
	"wayfarer/internal/models/db_models"
	"wayfarer/internal/repositories"
	"wayfarer/pkg/llm"
	"wayfarer/pkg/utils"
)

type RetrievalServiceInterface interface {
	// Retrieve returns up to k citable passages about topic. A missing
	// backend yields no passages, not an error.
	Retrieve(ctx context.Context, destination, topic string, k int) ([]domain.Snippet, error)
	// Index stores a passage with its embedding.
	Index(ctx context.Context, destination string, snippet domain.Snippet, tags []string) error
}

type RetrievalService struct {
	repo     repositories.SnippetRepository
	embedder llm.Embedder
	log      *zap.Logger
}

func NewRetrievalService(repo repositories.SnippetRepository, embedder llm.Embedder, log *zap.Logger) RetrievalServiceInterface {
	if embedder == nil {
		embedder = llm.HashEmbedder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RetrievalService{repo: repo, embedder: embedder, log: log}
}

func toSnippets(rows []db_models.GuideSnippet) []domain.Snippet {
	out := make([]domain.Snippet, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Snippet{Title: r.Title, Text: r.Text, Locator: r.Locator, URL: r.URL})
	}
	return out
}

func (s *RetrievalService) Retrieve(ctx context.Context, destination, topic string, k int) ([]domain.Snippet, error) {
	if s.repo == nil || strings.TrimSpace(topic) == "" {
		return nil, nil
	}
	if k <= 0 {
		k = 3
	}

	vec, err := s.embedder.Embed(ctx, topic)
	if err == nil {
		rows, err := s.repo.Similar(ctx, destination, vec, k)
		if err == nil && len(rows) > 0 {
			return toSnippets(rows), nil
		}
		if err != nil {
			s.log.Warn("similarity search failed, falling back to keywords", zap.Error(err))
		}
	} else {
		s.log.Warn("embedding failed, falling back to keywords", zap.Error(err))
	}

	rows, err := s.repo.Keyword(ctx, destination, topic, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return toSnippets(rows), nil
}

func (s *RetrievalService) Index(ctx context.Context, destination string, snippet domain.Snippet, tags []string) error {
	if s.repo == nil {
		return fmt.Errorf("%w: no snippet store configured", utils.ErrInvalidState)
	}
	if strings.TrimSpace(snippet.Text) == "" || snippet.Locator == "" {
		return fmt.Errorf("%w: snippet needs text and a locator", utils.ErrInvalidInput)
	}
	vec, err := s.embedder.Embed(ctx, snippet.Title+" "+snippet.Text)
	if err != nil {
		return fmt.Errorf("embed %s: %w", snippet.Locator, err)
	}
	row := &db_models.GuideSnippet{
		Destination: destination,
		Title:       snippet.Title,
		Text:        snippet.Text,
		Locator:     snippet.Locator,
		URL:         snippet.URL,
		Tags:        pq.StringArray(normalizeInterests(tags)),
		Embedding:   vec,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}
