package achievements

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bizquest/backend/internal/models"
)

var (
	// ErrAchievementNotFound means no achievement matched the id within the organization.
	ErrAchievementNotFound = errors.New("achievement not found")
	// ErrAlreadyUnlocked means the (user, achievement) pair already has a ledger row.
	ErrAlreadyUnlocked = errors.New("achievement already unlocked")
)

// UnlockRow is one row of the achievement history view.
type UnlockRow struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	UserEmail       string    `json:"user_email"`
	UserName        string    `json:"user_name"`
	AchievementID   uuid.UUID `json:"achievement_id"`
	AchievementName string    `json:"achievement_name"`
	Points          int       `json:"points"`
	UnlockedAt      time.Time `json:"unlocked_at"`
}

// UpdateParams holds optional achievement fields for update; nil leaves a field unchanged.
type UpdateParams struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	Points       *int    `json:"points"`
	Rarity       *string `json:"rarity"`
	MaxProgress  *int    `json:"max_progress"`
	Icon         *string `json:"icon"`
	Active       *bool   `json:"active"`
	TriggerType  *string `json:"trigger_type"`
	TriggerValue *int    `json:"trigger_value"`
	AutoUnlock   *bool   `json:"auto_unlock"`
}

// Store is the achievement catalog and unlock ledger persistence contract.
type Store interface {
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Achievement, error)
	Create(ctx context.Context, a *models.Achievement) error
	Update(ctx context.Context, id, orgID uuid.UUID, p UpdateParams) error
	// Delete removes dependent unlock rows first (best effort, tolerating a
	// missing dependent table), then the catalog row, both scoped by org.
	Delete(ctx context.Context, id, orgID uuid.UUID) error
	// Claim records an unlock and credits the achievement's points as a gem
	// transaction, atomically. At-most-once per (user, achievement). The
	// catalog lookup is scoped by org; another tenant's achievement id is
	// ErrAchievementNotFound.
	Claim(ctx context.Context, orgID, userID, achievementID uuid.UUID) (*models.UserAchievement, error)
	History(ctx context.Context, orgID uuid.UUID, achievementID, userID *uuid.UUID) ([]UnlockRow, error)
	// UnlockAutoTriggered claims every active auto-trigger achievement in the
	// org whose trigger_value the user's completed-task count has reached.
	// Already-unlocked achievements are skipped. Returns the newly unlocked ones.
	UnlockAutoTriggered(ctx context.Context, orgID, userID uuid.UUID, completedCount int) ([]models.Achievement, error)
}
