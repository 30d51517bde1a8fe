package tasks

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bizquest/backend/internal/models"
)

var (
	// ErrTaskNotFound means no task matched the id within the organization.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskAlreadyCompleted means the task was completed before this attempt.
	ErrTaskAlreadyCompleted = errors.New("task already completed")
)

// UpdateParams holds optional task fields for update; nil leaves a field unchanged.
type UpdateParams struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	GemsReward  *int       `json:"gems_reward"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
}

// Store is the task persistence contract.
type Store interface {
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]models.Task, error)
	Create(ctx context.Context, t *models.Task) error
	Update(ctx context.Context, id, orgID uuid.UUID, p UpdateParams) error
	Delete(ctx context.Context, id, orgID uuid.UUID) error
	// Complete moves an open task to completed, first completion wins. The
	// completing user earns the task's gem reward in the same transaction.
	// Returns the completed task and the user's completed-task count in the
	// organization after this completion.
	Complete(ctx context.Context, id, orgID, userID uuid.UUID) (*models.Task, int, error)
}
