package services

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"wayfarer/internal/domain"
	"wayfarer/internal/models/db_models"
	"wayfarer/internal/repositories"
	"wayfarer/pkg/utils"
)

// CatalogProvider serves curated places from Postgres.
type CatalogProvider struct {
	repo repositories.CatalogRepository
}

func NewCatalogProvider(repo repositories.CatalogRepository) *CatalogProvider {
	return &CatalogProvider{repo: repo}
}

func (p *CatalogProvider) Name() string { return "catalog" }

func (p *CatalogProvider) Search(ctx context.Context, q POIQuery) ([]domain.POI, error) {
	tags := lo.Map(q.Interests, func(s string, _ int) string { return utils.NormalizeTag(s) })
	rows, err := p.repo.Search(ctx, q.Destination, tags, q.Limit)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(r db_models.CatalogPOI, _ int) domain.POI {
		return catalogToPOI(r)
	}), nil
}

func catalogToPOI(r db_models.CatalogPOI) domain.POI {
	duration := r.DurationMinutes
	if duration <= 0 {
		duration = domain.DefaultDurationMinutes(r.Category)
	}
	return domain.POI{
		Name:            strings.TrimSpace(r.Name),
		Category:        r.Category,
		Tags:            []string(r.Tags),
		Location:        domain.GeoPoint{Lat: r.Latitude, Lng: r.Longitude},
		DurationMinutes: duration,
		OpeningHours:    r.OpeningHours,
		SourceLocator:   "catalog:" + r.ID.String(),
		Rating:          r.Rating,
		Description:     r.Description,
		Indoor:          r.Indoor,
	}
}
