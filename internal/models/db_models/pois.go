package db_models

import "github.com/lib/pq"

// CatalogPOI is a curated place kept in Postgres and served as the secondary
// POI provider.
type CatalogPOI struct {
	BaseModel
	Destination     string `gorm:"index"`
	Name            string
	Latitude        float64
	Longitude       float64
	Category        string
	Tags            pq.StringArray `gorm:"type:text[]"`
	OpeningHours    string
	DurationMinutes int
	Rating          *float64
	Description     string
	Indoor          *bool
}

func (CatalogPOI) TableName() string { return "catalog_pois" }
