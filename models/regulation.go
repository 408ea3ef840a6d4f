package models

import (
	"time"

	"github.com/google/uuid"
)

// RegulationCategory groups regulation documents by subject
type RegulationCategory string

const (
	CategoryDispensing RegulationCategory = "Dispensing Rules"
	CategoryStorage    RegulationCategory = "Storage Requirements"
	CategoryRecords    RegulationCategory = "Record Keeping"
	CategoryScheduling RegulationCategory = "Drug Scheduling"
	CategoryGeneral    RegulationCategory = "General"
)

// RegulationDocument represents a document of the regulation corpus
type RegulationDocument struct {
	ID          uuid.UUID          `json:"id"`
	Title       string             `json:"title"`
	Content     string             `json:"content"`
	Category    RegulationCategory `json:"category"`
	Source      string             `json:"source,omitempty"`
	LastUpdated time.Time          `json:"last_updated"`
	Score       float64            `json:"score,omitempty"` // Relevance for the current query, never stored
}

// Valid reports whether the category is one of the known categories
func (c RegulationCategory) Valid() bool {
	switch c {
	case CategoryDispensing, CategoryStorage, CategoryRecords, CategoryScheduling, CategoryGeneral:
		return true
	}
	return false
}
