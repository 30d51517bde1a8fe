package models

import (
	"time"

	"github.com/google/uuid"
)

// Badge is an organization-scoped unlockable badge definition.
// Kept as a catalog separate from Achievement: the two have independent
// lifecycles and ledgers.
type Badge struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Icon           string    `json:"icon"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// BadgeWithStatus is a Badge plus the caller-specific derived unlocked flag.
// The flag is computed by set membership against the unlock ledger, never stored.
type BadgeWithStatus struct {
	Badge
	Unlocked bool `json:"unlocked"`
}

// UserBadge is one row of the badge unlock ledger. Unique per (user_id, badge_id).
type UserBadge struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	BadgeID    uuid.UUID `json:"badge_id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}
