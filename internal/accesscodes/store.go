package accesscodes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bizquest/backend/internal/models"
)

var (
	// ErrCodeNotFound means the code does not exist.
	ErrCodeNotFound = errors.New("access code not found")
	// ErrCodeUsed means the code was already consumed by a registration.
	ErrCodeUsed = errors.New("access code already used")
)

// HistoryRow is one access code with the consuming user's info attached.
type HistoryRow struct {
	ID           uuid.UUID  `json:"id"`
	Code         string     `json:"code"`
	IsUsed       bool       `json:"is_used"`
	CreatedAt    time.Time  `json:"created_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	UsedByUserID *uuid.UUID `json:"used_by_user_id,omitempty"`
	UsedByEmail  string     `json:"used_by_email,omitempty"`
	UsedByName   string     `json:"used_by_name,omitempty"`
}

// Summary aggregates code counts for the history endpoint.
type Summary struct {
	Total     int `json:"total"`
	Used      int `json:"used"`
	Available int `json:"available"`
}

// Store is the access code persistence contract.
type Store interface {
	// Create inserts a new unused code. Returns a unique-violation error
	// (database.IsUniqueViolation) on collision.
	Create(ctx context.Context, code string) (*models.AccessCode, error)
	// GetByCode returns the code row, matching case-insensitively. ErrCodeNotFound if unknown.
	GetByCode(ctx context.Context, code string) (*models.AccessCode, error)
	// CodeExists reports whether a code already exists.
	CodeExists(ctx context.Context, code string) (bool, error)
	// MarkUsed consumes a code for a user. First-wins: returns ErrCodeUsed if
	// the code is already consumed, ErrCodeNotFound if unknown. Never resets used_at.
	MarkUsed(ctx context.Context, code string, userID uuid.UUID) error
	// List returns all codes newest-first with consuming-user info.
	List(ctx context.Context) ([]HistoryRow, error)
}
