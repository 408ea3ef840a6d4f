package repository

import (
	"context"
	"fmt"

	"pharmassist-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MedicationRepository handles database operations for patient medications
type MedicationRepository struct {
	db *pgxpool.Pool
}

// NewMedicationRepository creates a new medication repository
func NewMedicationRepository(db *pgxpool.Pool) *MedicationRepository {
	return &MedicationRepository{db: db}
}

// Create adds a medication to a user's list
func (r *MedicationRepository) Create(ctx context.Context, med *models.Medication) error {
	if med.Frequency == "" {
		med.Frequency = models.FrequencyDaily
	}

	query := `
		INSERT INTO medications (user_id, medication_name, dosage, frequency, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		med.UserID,
		med.Name,
		med.Dosage,
		med.Frequency,
		med.Active,
	).Scan(&med.ID, &med.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create medication: %w", err)
	}
	return nil
}

// ActiveByUser returns the name and dosage of the user's active medications,
// oldest first
func (r *MedicationRepository) ActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.MedicationSummary, error) {
	query := `
		SELECT medication_name, dosage
		FROM medications
		WHERE user_id = $1 AND active
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query medications: %w", err)
	}
	defer rows.Close()

	var meds []models.MedicationSummary
	for rows.Next() {
		var med models.MedicationSummary
		if err := rows.Scan(&med.Name, &med.Dosage); err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		meds = append(meds, med)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating medications: %w", err)
	}

	return meds, nil
}
