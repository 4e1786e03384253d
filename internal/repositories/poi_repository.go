package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"wayfarer/internal/models/db_models"
)

type CatalogRepository interface {
	Create(ctx context.Context, poi *db_models.CatalogPOI) (uuid.UUID, error)
	GetByID(ctx context.Context, id string) (*db_models.CatalogPOI, error)

	// Search lists catalogue places for a destination. When tags is non-empty
	// only places sharing at least one tag are returned.
	Search(ctx context.Context, destination string, tags []string, limit int) ([]db_models.CatalogPOI, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) Create(ctx context.Context, poi *db_models.CatalogPOI) (uuid.UUID, error) {
	if err := r.db.WithContext(ctx).Create(poi).Error; err != nil {
		return uuid.Nil, err
	}
	return poi.ID, nil
}

func (r *catalogRepository) GetByID(ctx context.Context, id string) (*db_models.CatalogPOI, error) {
	var poi db_models.CatalogPOI
	err := r.db.WithContext(ctx).First(&poi, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &poi, nil
}

func (r *catalogRepository) Search(ctx context.Context, destination string, tags []string, limit int) ([]db_models.CatalogPOI, error) {
	var pois []db_models.CatalogPOI

	q := r.db.WithContext(ctx).
		Where("lower(destination) = ?", strings.ToLower(strings.TrimSpace(destination)))
	if len(tags) > 0 {
		q = q.Where("tags && ?", pq.Array(tags))
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Order("rating DESC NULLS LAST").Order("name").Find(&pois).Error
	if err != nil {
		return nil, fmt.Errorf("catalog search: %w", err)
	}
	return pois, nil
}
