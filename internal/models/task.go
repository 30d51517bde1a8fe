package models

import (
	"time"

	"github.com/google/uuid"
)

// Task statuses.
const (
	TaskOpen      = "open"
	TaskCompleted = "completed"
)

// Task is an organization-scoped work item. Completing a task earns the
// assignee gems and may fire auto-unlock achievements.
type Task struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	GemsReward     int        `json:"gems_reward"`
	Status         string     `json:"status"`
	AssignedTo     *uuid.UUID `json:"assigned_to,omitempty"`
	CreatedBy      uuid.UUID  `json:"created_by"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
