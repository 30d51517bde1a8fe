package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/bizquest/backend/internal/models"
)

// Store is the user persistence contract.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.UserPublic, error)
	// CreateWithAccessCode registers a user while consuming the access code,
	// atomically. Returns ErrEmailTaken, accesscodes.ErrCodeNotFound or
	// accesscodes.ErrCodeUsed on the corresponding failures.
	CreateWithAccessCode(ctx context.Context, email, passwordHash, fullName string, role models.Role, code string) (*models.User, error)
}
