package tasks

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizquest/backend/internal/achievements"
	"github.com/bizquest/backend/internal/middleware"
	"github.com/bizquest/backend/internal/models"
	"github.com/bizquest/backend/pkg/response"
)

// Handler handles task HTTP endpoints.
type Handler struct {
	store        Store
	achievements achievements.Store
	logger       *zap.Logger
}

// NewHandler creates a tasks handler. achievements may be nil; completions
// then award gems without firing auto-unlocks.
func NewHandler(store Store, achievementStore achievements.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, achievements: achievementStore, logger: logger}
}

// CreateRequest is the body for POST /admin/tasks.
type CreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	GemsReward  int    `json:"gems_reward"`
	AssignedTo  string `json:"assigned_to"`
}

// List handles GET /tasks.
func (h *Handler) List(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	list, err := h.store.ListByOrg(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("list tasks failed", zap.Error(err))
		response.Internal(c, "failed to load tasks")
		return
	}
	response.OK(c, list)
}

// Create handles POST /admin/tasks.
func (h *Handler) Create(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	creatorID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.GemsReward < 0 {
		response.BadRequest(c, "gems_reward must be non-negative")
		return
	}
	t := &models.Task{
		OrganizationID: orgID,
		Title:          req.Title,
		Description:    req.Description,
		GemsReward:     req.GemsReward,
		CreatedBy:      creatorID,
	}
	if req.AssignedTo != "" {
		id, err := uuid.Parse(req.AssignedTo)
		if err != nil {
			response.BadRequest(c, "invalid assigned_to")
			return
		}
		t.AssignedTo = &id
	}
	if err := h.store.Create(c.Request.Context(), t); err != nil {
		h.logger.Error("create task failed", zap.Error(err))
		response.Internal(c, "failed to create task")
		return
	}
	response.Created(c, t)
}

// Update handles PUT /admin/tasks/:id.
func (h *Handler) Update(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	var p UpdateParams
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if p.GemsReward != nil && *p.GemsReward < 0 {
		response.BadRequest(c, "gems_reward must be non-negative")
		return
	}
	if err := h.store.Update(c.Request.Context(), id, orgID, p); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			response.NotFound(c, "task not found")
			return
		}
		h.logger.Error("update task failed", zap.Error(err), zap.String("task_id", id.String()))
		response.Internal(c, "failed to update task")
		return
	}
	response.OK(c, gin.H{"id": id})
}

// Delete handles DELETE /admin/tasks/:id.
func (h *Handler) Delete(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id, orgID); err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			response.NotFound(c, "task not found")
			return
		}
		h.logger.Error("delete task failed", zap.Error(err), zap.String("task_id", id.String()))
		response.Internal(c, "failed to delete task")
		return
	}
	response.NoContent(c)
}

// Complete handles POST /tasks/:id/complete. The caller earns the task's gem
// reward; any auto-trigger achievements whose threshold the caller's
// completed-task count now reaches are unlocked as well.
func (h *Handler) Complete(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return
	}

	t, completedCount, err := h.store.Complete(c.Request.Context(), id, orgID, userID)
	if errors.Is(err, ErrTaskNotFound) {
		response.NotFound(c, "task not found")
		return
	}
	if errors.Is(err, ErrTaskAlreadyCompleted) {
		response.Conflict(c, "task already completed")
		return
	}
	if err != nil {
		h.logger.Error("complete task failed", zap.Error(err), zap.String("task_id", id.String()))
		response.Internal(c, "failed to complete task")
		return
	}

	var unlocked []models.Achievement
	if h.achievements != nil {
		unlocked, err = h.achievements.UnlockAutoTriggered(c.Request.Context(), orgID, userID, completedCount)
		if err != nil {
			// The completion and gem award are committed; unlocks will be
			// retried on the next completion.
			h.logger.Warn("auto unlock failed", zap.Error(err),
				zap.String("user_id", userID.String()), zap.Int("completed_count", completedCount))
		}
	}
	response.OK(c, gin.H{
		"task":                  t,
		"completed_count":       completedCount,
		"unlocked_achievements": unlocked,
	})
}
