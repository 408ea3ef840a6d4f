package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionPlan represents the plan a user is subscribed to
type SubscriptionPlan string

const (
	PlanFree    SubscriptionPlan = "free"
	PlanPremium SubscriptionPlan = "premium"
)

// User represents a patient account
type User struct {
	ID           uuid.UUID        `json:"id"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"` // Never serialize password hash
	Name         string           `json:"name"`
	Plan         SubscriptionPlan `json:"plan"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// IsPremium reports whether the user is entitled to personalized answers
func (u *User) IsPremium() bool {
	return u != nil && u.Plan == PlanPremium
}

// CallerContext identifies who is asking the assistant
type CallerContext struct {
	UserID    uuid.UUID
	IsPremium bool
}
