package services

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"wayfarer/internal/domain"
	"wayfarer/pkg/utils"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

type fixturePOI struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Category     string   `yaml:"category"`
	Tags         []string `yaml:"tags"`
	Lat          float64  `yaml:"lat"`
	Lng          float64  `yaml:"lng"`
	Duration     int      `yaml:"duration"`
	OpeningHours string   `yaml:"opening_hours"`
	Rating       *float64 `yaml:"rating"`
	Description  string   `yaml:"description"`
	Indoor       *bool    `yaml:"indoor"`
}

// FixtureProvider serves a small offline POI set bundled with the binary.
// It lets the service plan trips with no API key and no database.
type FixtureProvider struct {
	places map[string][]domain.POI
}

func NewFixtureProvider() (*FixtureProvider, error) {
	var raw map[string][]fixturePOI
	if err := yaml.Unmarshal(fixturesYAML, &raw); err != nil {
		return nil, fmt.Errorf("fixtures: %w", err)
	}
	places := make(map[string][]domain.POI, len(raw))
	for dest, list := range raw {
		key := utils.NormalizeTag(dest)
		for _, f := range list {
			duration := f.Duration
			if duration <= 0 {
				duration = domain.DefaultDurationMinutes(f.Category)
			}
			places[key] = append(places[key], domain.POI{
				Name:            f.Name,
				Category:        f.Category,
				Tags:            f.Tags,
				Location:        domain.GeoPoint{Lat: f.Lat, Lng: f.Lng},
				DurationMinutes: duration,
				OpeningHours:    f.OpeningHours,
				SourceLocator:   "fixture:" + f.ID,
				Rating:          f.Rating,
				Description:     f.Description,
				Indoor:          f.Indoor,
			})
		}
	}
	return &FixtureProvider{places: places}, nil
}

func (p *FixtureProvider) Name() string { return "fixture" }

func (p *FixtureProvider) Search(_ context.Context, q POIQuery) ([]domain.POI, error) {
	all := p.places[utils.NormalizeTag(q.Destination)]
	var out []domain.POI
	for _, poi := range all {
		if len(q.Interests) > 0 && !matchesAnyInterest(poi, q.Interests) {
			continue
		}
		out = append(out, poi)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

// matchesAnyInterest compares normalized interests with a POI's category,
// tags and name.
func matchesAnyInterest(poi domain.POI, interests []string) bool {
	return interestScore(poi, interests) > 0
}

func interestScore(poi domain.POI, interests []string) int {
	category := utils.NormalizeTag(poi.Category)
	score := 0
	for _, raw := range interests {
		in := utils.NormalizeTag(raw)
		if in == "" {
			continue
		}
		switch {
		case category == in:
			score++
		case containsTag(poi.Tags, in):
			score++
		case strings.Contains(utils.NormalizeTag(poi.Name), in):
			score++
		}
	}
	return score
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if utils.NormalizeTag(t) == tag {
			return true
		}
	}
	return false
}
