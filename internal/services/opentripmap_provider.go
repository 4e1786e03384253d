package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"wayfarer/internal/domain"
	"wayfarer/pkg/utils"
)

const openTripMapBaseURL = "https://api.opentripmap.com/0.1/en"

// interest tag -> OpenTripMap kinds
var otmKinds = map[string]string{
	"food":         "foods",
	"cafe":         "cafes",
	"museum":       "museums",
	"history":      "historic",
	"art":          "cultural",
	"architecture": "architecture",
	"culture":      "cultural",
	"nature":       "natural",
	"nightlife":    "bars,pubs,nightclubs",
	"shopping":     "shops",
	"beach":        "beaches",
	"sightseeing":  "interesting_places",
	"family":       "amusements",
}

// kind -> category, checked in order
var otmCategories = []struct {
	kind     string
	category string
}{
	{"cafes", "cafe"},
	{"foods", "food"},
	{"restaurants", "food"},
	{"bars", "nightlife"},
	{"pubs", "nightlife"},
	{"nightclubs", "nightlife"},
	{"museums", "museum"},
	{"historic", "history"},
	{"architecture", "architecture"},
	{"natural", "nature"},
	{"gardens_and_parks", "nature"},
	{"beaches", "beach"},
	{"shops", "shopping"},
	{"amusements", "family"},
	{"cultural", "culture"},
	{"theatres_and_entertainments", "culture"},
}

type OpenTripMapProvider struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
}

func NewOpenTripMapProvider(apiKey string, timeout time.Duration) *OpenTripMapProvider {
	return &OpenTripMapProvider{
		HTTP:    &http.Client{Timeout: timeout},
		BaseURL: openTripMapBaseURL,
		APIKey:  apiKey,
	}
}

func (p *OpenTripMapProvider) Name() string { return "opentripmap" }

type otmGeoname struct {
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Status string  `json:"status"`
	Error  string  `json:"error"`
}

type otmPlace struct {
	XID   string  `json:"xid"`
	Name  string  `json:"name"`
	Rate  float64 `json:"rate"`
	Kinds string  `json:"kinds"`
	Point struct {
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
	} `json:"point"`
}

func (p *OpenTripMapProvider) Search(ctx context.Context, q POIQuery) ([]domain.POI, error) {
	if p.APIKey == "" {
		return nil, permanent(errors.New("opentripmap: api key not configured"))
	}
	center, err := p.geoname(ctx, q.Destination)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("radius", strconv.Itoa(q.RadiusMeters))
	params.Set("lon", strconv.FormatFloat(center.Lon, 'f', 6, 64))
	params.Set("lat", strconv.FormatFloat(center.Lat, 'f', 6, 64))
	params.Set("kinds", kindsFor(q.Interests))
	params.Set("rate", "2")
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(q.Limit))

	var places []otmPlace
	if err := p.get(ctx, "/places/radius", params, &places); err != nil {
		return nil, err
	}

	pois := make([]domain.POI, 0, len(places))
	for _, pl := range places {
		name := strings.TrimSpace(pl.Name)
		if name == "" || pl.XID == "" {
			continue
		}
		category := categoryFromKinds(pl.Kinds)
		poi := domain.POI{
			Name:            name,
			Category:        category,
			Tags:            lo.Compact(strings.Split(pl.Kinds, ",")),
			Location:        domain.GeoPoint{Lat: pl.Point.Lat, Lng: pl.Point.Lon},
			DurationMinutes: domain.DefaultDurationMinutes(category),
			SourceLocator:   "otm:" + pl.XID,
		}
		if pl.Rate > 0 {
			rate := pl.Rate
			poi.Rating = &rate
		}
		pois = append(pois, poi)
	}
	return pois, nil
}

func (p *OpenTripMapProvider) geoname(ctx context.Context, destination string) (otmGeoname, error) {
	params := url.Values{}
	params.Set("name", destination)

	var g otmGeoname
	if err := p.get(ctx, "/places/geoname", params, &g); err != nil {
		return g, err
	}
	if g.Error != "" || (g.Status != "" && g.Status != "OK") {
		return g, permanent(fmt.Errorf("opentripmap: destination %q not found", destination))
	}
	return g, nil
}

func (p *OpenTripMapProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("apikey", p.APIKey)
	u := strings.TrimRight(p.BaseURL, "/") + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return permanent(err)
	}
	resp, err := p.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("opentripmap http error: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("opentripmap bad status: %s", resp.Status)
	case resp.StatusCode/100 != 2:
		return permanent(fmt.Errorf("opentripmap bad status: %s", resp.Status))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("opentripmap decode: %w", err)
	}
	return nil
}

func kindsFor(interests []string) string {
	var kinds []string
	for _, in := range interests {
		if k, ok := otmKinds[utils.NormalizeTag(in)]; ok {
			kinds = append(kinds, strings.Split(k, ",")...)
		}
	}
	kinds = lo.Uniq(kinds)
	if len(kinds) == 0 {
		return "interesting_places"
	}
	return strings.Join(kinds, ",")
}

func categoryFromKinds(kinds string) string {
	set := lo.SliceToMap(strings.Split(kinds, ","), func(k string) (string, bool) { return k, true })
	for _, c := range otmCategories {
		if set[c.kind] {
			return c.category
		}
	}
	return "sightseeing"
}
