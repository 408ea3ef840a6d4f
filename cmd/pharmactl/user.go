package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"pharmassist-backend/middleware"
	"pharmassist-backend/models"
	"pharmassist-backend/repository"
)

const tokenTTL = 5 * 24 * time.Hour

type userCreator interface {
	Create(ctx context.Context, user *models.User) error
}

type newUser struct {
	Email    string
	Password string
	Name     string
	Premium  bool
}

func createUserCMD() *cobra.Command {
	var u newUser

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user and print a signed token for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is required to sign the token")
			}

			ctx := cmd.Context()
			db, err := connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			user, token, err := createUser(ctx, repository.NewUserRepository(db), u, []byte(cfg.JWTSecret))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s user %s (%s)\nToken: %s\n", user.Plan, user.Email, user.ID, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&u.Email, "email", "", "account email")
	cmd.Flags().StringVar(&u.Password, "password", "", "account password")
	cmd.Flags().StringVar(&u.Name, "name", "", "display name")
	cmd.Flags().BoolVar(&u.Premium, "premium", false, "subscribe the user to the premium plan")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func createUser(ctx context.Context, users userCreator, u newUser, secret []byte) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email == "" || u.Password == "" {
		return nil, "", errors.New("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(u.Name),
		Plan:         models.PlanFree,
	}
	if u.Premium {
		user.Plan = models.PlanPremium
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := middleware.SignToken(user.ID, secret, tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}
	return user, token, nil
}
