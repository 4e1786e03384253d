package repositories

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"wayfarer/internal/models/db_models"
)

type SnippetRepository interface {
	// Similar ranks a destination's snippets by cosine similarity to vector.
	Similar(ctx context.Context, destination string, vector pgvector.Vector, k int) ([]db_models.GuideSnippet, error)
	// Keyword matches topic words against title and text.
	Keyword(ctx context.Context, destination, topic string, k int) ([]db_models.GuideSnippet, error)
	Create(ctx context.Context, snippet *db_models.GuideSnippet) error
}

type snippetRepository struct {
	db *gorm.DB
}

func NewSnippetRepository(db *gorm.DB) SnippetRepository {
	return &snippetRepository{db: db}
}

func (r *snippetRepository) Similar(ctx context.Context, destination string, vector pgvector.Vector, k int) ([]db_models.GuideSnippet, error) {
	var results []db_models.GuideSnippet

	query := `
        SELECT *, (1 - (embedding <=> ?)) AS similarity
        FROM guide_snippets
        WHERE lower(destination) = ?
          AND (1 - (embedding <=> ?)) > 0.5
        ORDER BY embedding <=> ?
        LIMIT ?
    `
	vec := vector.String()
	dest := strings.ToLower(strings.TrimSpace(destination))
	err := r.db.WithContext(ctx).Raw(query, vec, dest, vec, vec, k).Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *snippetRepository) Keyword(ctx context.Context, destination, topic string, k int) ([]db_models.GuideSnippet, error) {
	var results []db_models.GuideSnippet

	q := r.db.WithContext(ctx).
		Where("lower(destination) = ?", strings.ToLower(strings.TrimSpace(destination)))
	if words := strings.Fields(topic); len(words) > 0 {
		cond := r.db.Where("1 = 0")
		for _, w := range words {
			like := "%" + w + "%"
			cond = cond.Or("title ILIKE ?", like).Or("text ILIKE ?", like)
		}
		q = q.Where(cond)
	}
	if err := q.Limit(k).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *snippetRepository) Create(ctx context.Context, snippet *db_models.GuideSnippet) error {
	return r.db.WithContext(ctx).Create(snippet).Error
}
