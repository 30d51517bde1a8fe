package rewards

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bizquest/backend/internal/models"
)

var (
	// ErrRewardNotFound means no reward matched the id within the organization.
	ErrRewardNotFound = errors.New("reward not found")
	// ErrRedemptionNotFound means no redemption matched the id.
	ErrRedemptionNotFound = errors.New("redemption not found")
	// ErrInsufficientGems means the user's gem balance does not cover the cost.
	ErrInsufficientGems = errors.New("insufficient gem balance")
	// ErrInvalidTransition means the redemption is not in a state the
	// requested status change can apply to.
	ErrInvalidTransition = errors.New("invalid redemption status transition")
)

// RedemptionRow is one row of the redemption history view.
type RedemptionRow struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	UserEmail   string     `json:"user_email"`
	UserName    string     `json:"user_name"`
	RewardID    uuid.UUID  `json:"reward_id"`
	RewardTitle string     `json:"reward_title"`
	GemsSpent   int        `json:"gems_spent"`
	Status      string     `json:"status"`
	ClaimedAt   time.Time  `json:"claimed_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// UpdateParams holds optional reward fields for update; nil leaves a field unchanged.
type UpdateParams struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	CostInGems  *int    `json:"cost_in_gems"`
	Icon        *string `json:"icon"`
	IsActive    *bool   `json:"is_active"`
}

// Store is the reward catalog and redemption ledger persistence contract.
type Store interface {
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Reward, error)
	ListActiveByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Reward, error)
	Create(ctx context.Context, r *models.Reward) error
	Update(ctx context.Context, id, orgID uuid.UUID, p UpdateParams) error
	Delete(ctx context.Context, id, orgID uuid.UUID) error
	// Redeem atomically checks the user's gem balance against the reward's
	// cost, records a pending redemption and debits the gems. The reward
	// must be active and belong to the organization.
	Redeem(ctx context.Context, orgID, userID, rewardID uuid.UUID) (*models.UserReward, error)
	History(ctx context.Context, orgID uuid.UUID, rewardID, userID *uuid.UUID) ([]RedemptionRow, error)
	// UpdateStatus moves a pending redemption to delivered or cancelled.
	// Cancelling refunds the spent gems to the user's ledger.
	UpdateStatus(ctx context.Context, redemptionID uuid.UUID, status string) (*models.UserReward, error)
}
