package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessCode is a single-use registration code (5 letters + 4 digits).
// The used flag transitions false -> true exactly once, when a registration
// consuming the code commits.
type AccessCode struct {
	ID           uuid.UUID  `json:"id"`
	Code         string     `json:"code"`
	IsUsed       bool       `json:"is_used"`
	UsedByUserID *uuid.UUID `json:"used_by_user_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
}
