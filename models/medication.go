package models

import (
	"time"

	"github.com/google/uuid"
)

// MedicationFrequency represents how often a medication is taken
type MedicationFrequency string

const (
	FrequencyDaily    MedicationFrequency = "daily"
	FrequencyWeekly   MedicationFrequency = "weekly"
	FrequencyAsNeeded MedicationFrequency = "as_needed"
)

// Valid reports whether the frequency is one of the known frequencies
func (f MedicationFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyAsNeeded:
		return true
	}
	return false
}

// Medication represents a medication entry owned by a patient
type Medication struct {
	ID        uuid.UUID           `json:"id"`
	UserID    uuid.UUID           `json:"user_id"`
	Name      string              `json:"medication_name"`
	Dosage    string              `json:"dosage"`
	Frequency MedicationFrequency `json:"frequency"`
	Active    bool                `json:"active"`
	CreatedAt time.Time           `json:"created_at"`
}

// MedicationSummary is the read-only view used to personalize answers
type MedicationSummary struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
}
