package db_models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// GuideSnippet is a citable travel-guide passage with its embedding.
type GuideSnippet struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Destination string    `gorm:"index"`
	Title       string
	Text        string
	Locator     string `gorm:"uniqueIndex"`
	URL         string
	Tags        pq.StringArray  `gorm:"type:text[]"`
	Embedding   pgvector.Vector `gorm:"type:vector(1536)"`
	Similarity  float64         `gorm:"-:migration;->"`
	CreatedAt   time.Time       `gorm:"autoCreateTime"`
}

func (GuideSnippet) TableName() string { return "guide_snippets" }

func (s *GuideSnippet) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
