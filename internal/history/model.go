// Package history persists identification results in a bounded,
// newest-first store backed by SQLite.
package history

import (
	"time"

	"github.com/verdanthq/plantid-go/internal/plantid"
)

// Entry is a stored identification. The flat columns mirror the searchable
// record fields; the full record is kept as a JSON column.
type Entry struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`

	PlantName      string `gorm:"index" json:"-"`
	ScientificName string `json:"-"`
	Family         string `json:"-"`
	Description    string `json:"-"`
	Confidence     int    `json:"-"`

	ImageData string              `json:"imageData,omitempty"`
	Record    plantid.PlantRecord `gorm:"serializer:json" json:"record"`
}

// Stats summarizes the stored history.
type Stats struct {
	TotalIdentifications int        `json:"totalIdentifications"`
	UniqueSpecies        int        `json:"uniqueSpecies"`
	AverageConfidence    int        `json:"averageConfidence"`
	MostCommonFamily     string     `json:"mostCommonFamily,omitempty"`
	OldestEntry          *time.Time `json:"oldestEntry,omitempty"`
	NewestEntry          *time.Time `json:"newestEntry,omitempty"`
}
