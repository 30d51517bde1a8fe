package models

import (
	"time"

	"github.com/google/uuid"
)

// Achievement trigger types.
const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

// Achievement is an organization-scoped unlockable definition.
type Achievement struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Points         int       `json:"points"`
	Rarity         string    `json:"rarity"`
	MaxProgress    int       `json:"max_progress"`
	Icon           string    `json:"icon"`
	Active         bool      `json:"active"`
	TriggerType    string    `json:"trigger_type"` // manual or auto
	TriggerValue   int       `json:"trigger_value"`
	AutoUnlock     bool      `json:"auto_unlock"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserAchievement is one row of the achievement unlock ledger.
// Unique per (user_id, achievement_id).
type UserAchievement struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	AchievementID uuid.UUID `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}
