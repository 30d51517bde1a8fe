package models

import (
	"time"

	"github.com/google/uuid"
)

// Redemption statuses.
const (
	RedemptionPending   = "pending"
	RedemptionDelivered = "delivered"
	RedemptionCancelled = "cancelled"
)

// Reward is an organization-scoped purchasable catalog entry.
type Reward struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	CostInGems     int       `json:"cost_in_gems"`
	Icon           string    `json:"icon"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserReward is one row of the redemption ledger.
type UserReward struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	RewardID    uuid.UUID  `json:"reward_id"`
	GemsSpent   int        `json:"gems_spent"`
	Status      string     `json:"status"` // pending, delivered, cancelled
	ClaimedAt   time.Time  `json:"claimed_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}
