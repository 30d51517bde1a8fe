package badges

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bizquest/backend/internal/models"
)

var (
	// ErrBadgeNotFound means no badge matched the id within the organization.
	ErrBadgeNotFound = errors.New("badge not found")
	// ErrAlreadyClaimed means the (user, badge) pair already has an unlock row.
	ErrAlreadyClaimed = errors.New("badge already claimed")
)

// UnlockRow is one row of the badge history view: unlock ledger joined to
// users and the badge catalog.
type UnlockRow struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	UserEmail  string    `json:"user_email"`
	UserName   string    `json:"user_name"`
	BadgeID    uuid.UUID `json:"badge_id"`
	BadgeName  string    `json:"badge_name"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// UpdateParams holds optional badge fields for update; nil leaves a field unchanged.
type UpdateParams struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	IsActive    *bool   `json:"is_active"`
}

// Store is the badge catalog and unlock ledger persistence contract.
// Every catalog operation is scoped by organization id.
type Store interface {
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Badge, error)
	ListActiveByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Badge, error)
	Create(ctx context.Context, b *models.Badge) error
	Update(ctx context.Context, id, orgID uuid.UUID, p UpdateParams) error
	Delete(ctx context.Context, id, orgID uuid.UUID) error
	// UnlockedBadgeIDs returns the set of badge ids the user has unlocked.
	UnlockedBadgeIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
	// Claim records an unlock. At-most-once per (user, badge): a duplicate
	// claim returns ErrAlreadyClaimed and creates no second row. The badge
	// must belong to the organization; another tenant's badge id is
	// ErrBadgeNotFound.
	Claim(ctx context.Context, orgID, userID, badgeID uuid.UUID) (*models.UserBadge, error)
	// History returns unlock rows for the organization, optionally narrowed
	// by badge and/or user, newest first.
	History(ctx context.Context, orgID uuid.UUID, badgeID, userID *uuid.UUID) ([]UnlockRow, error)
}

// MergeUnlockStatus derives the per-user unlocked flag for each badge by set
// membership against the unlock ledger. Pure function; the flag is never stored.
func MergeUnlockStatus(list []models.Badge, unlocked map[uuid.UUID]bool) []models.BadgeWithStatus {
	out := make([]models.BadgeWithStatus, 0, len(list))
	for _, b := range list {
		out = append(out, models.BadgeWithStatus{Badge: b, Unlocked: unlocked[b.ID]})
	}
	return out
}
