package organizations

import (
	"context"

	"github.com/google/uuid"

	"github.com/bizquest/backend/internal/models"
)

// Store is the organization and membership persistence contract.
type Store interface {
	// Create inserts a new organization. A duplicate slug surfaces as a
	// unique violation (database.IsUniqueViolation).
	Create(ctx context.Context, org *models.Organization) error
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
	AddUser(ctx context.Context, orgID, userID uuid.UUID, role string) error
	// GetUserRole returns the user's role in the organization, or an error
	// if not a member.
	GetUserRole(ctx context.Context, orgID, userID uuid.UUID) (string, error)
	ListOrganizationsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error)
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]Member, error)
}
