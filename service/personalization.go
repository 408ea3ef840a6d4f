package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pharmassist-backend/models"
)

const (
	noMedicationsListed   = "No medications listed."
	medicationUnavailable = "Medication list unavailable."
)

// medicationBlock renders the caller's active medications. Lookup failures
// degrade to a notice instead of failing the answer.
func (s *AssistantService) medicationBlock(ctx context.Context, caller *models.CallerContext) string {
	if s.medications == nil {
		return medicationUnavailable
	}

	meds, err := s.medications.ActiveByUser(ctx, caller.UserID)
	if err != nil {
		s.logger.Warn("medication lookup failed",
			zap.String("user_id", caller.UserID.String()),
			zap.Error(err),
		)
		return medicationUnavailable
	}
	return formatMedications(meds)
}

func formatMedications(meds []models.MedicationSummary) string {
	if len(meds) == 0 {
		return noMedicationsListed
	}
	lines := make([]string, 0, len(meds))
	for _, m := range meds {
		dosage := strings.TrimSpace(m.Dosage)
		if dosage == "" {
			dosage = "N/A"
		}
		lines = append(lines, fmt.Sprintf("- %s (%s)", m.Name, dosage))
	}
	return strings.Join(lines, "\n")
}
