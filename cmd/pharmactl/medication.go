package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pharmassist-backend/models"
	"pharmassist-backend/repository"
)

type medicationCreator interface {
	Create(ctx context.Context, med *models.Medication) error
}

type newMedication struct {
	UserID    string
	Name      string
	Dosage    string
	Frequency string
	Inactive  bool
}

func addMedicationCMD() *cobra.Command {
	var m newMedication

	cmd := &cobra.Command{
		Use:   "add-medication",
		Short: "Add a medication to a user's list",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			db, err := connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			med, err := addMedication(cmd.Context(), repository.NewMedicationRepository(db), m)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s, %s) for user %s: %s\n", med.Name, med.Dosage, med.Frequency, med.UserID, med.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&m.UserID, "user-id", "", "owner of the medication")
	cmd.Flags().StringVar(&m.Name, "name", "", "medication name")
	cmd.Flags().StringVar(&m.Dosage, "dosage", "", "dosage, e.g. 500mg")
	cmd.Flags().StringVar(&m.Frequency, "frequency", string(models.FrequencyDaily), "daily, weekly or as_needed")
	cmd.Flags().BoolVar(&m.Inactive, "inactive", false, "record the medication as no longer taken")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func addMedication(ctx context.Context, meds medicationCreator, m newMedication) (*models.Medication, error) {
	userID, err := uuid.Parse(strings.TrimSpace(m.UserID))
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", m.UserID, err)
	}
	name := strings.TrimSpace(m.Name)
	if name == "" {
		return nil, errors.New("medication name is required")
	}
	frequency := models.MedicationFrequency(strings.TrimSpace(m.Frequency))
	if frequency == "" {
		frequency = models.FrequencyDaily
	}
	if !frequency.Valid() {
		return nil, fmt.Errorf("unknown frequency %q", m.Frequency)
	}

	med := &models.Medication{
		UserID:    userID,
		Name:      name,
		Dosage:    strings.TrimSpace(m.Dosage),
		Frequency: frequency,
		Active:    !m.Inactive,
	}
	if err := meds.Create(ctx, med); err != nil {
		return nil, err
	}
	return med, nil
}
