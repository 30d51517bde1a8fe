package models

import (
	"time"

	"github.com/google/uuid"
)

// Gem transaction reasons.
const (
	GemReasonTaskCompleted     = "task_completed"
	GemReasonAchievementUnlock = "achievement_unlock"
	GemReasonRewardRedemption  = "reward_redemption"
	GemReasonRedemptionRefund  = "redemption_refund"
)

// GemTransaction is one row of the gem ledger. Amount is positive for
// earning events and negative for spends; a user's balance is the sum.
type GemTransaction struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Amount      int        `json:"amount"`
	Reason      string     `json:"reason"`
	ReferenceID *uuid.UUID `json:"reference_id,omitempty"` // task, achievement or redemption id
	CreatedAt   time.Time  `json:"created_at"`
}
