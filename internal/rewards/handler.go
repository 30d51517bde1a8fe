package rewards

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizquest/backend/internal/middleware"
	"github.com/bizquest/backend/internal/models"
	"github.com/bizquest/backend/pkg/queue"
	"github.com/bizquest/backend/pkg/response"
)

// Enqueuer hands successful redemptions to the fulfillment worker.
type Enqueuer interface {
	EnqueueRewardFulfillment(ctx context.Context, payload queue.RewardFulfillmentPayload) error
}

// Handler handles reward HTTP endpoints.
type Handler struct {
	store  Store
	queue  Enqueuer
	logger *zap.Logger
}

// NewHandler creates a rewards handler. queue may be nil; redemptions then
// stay pending until an operator resolves them.
func NewHandler(store Store, q Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, queue: q, logger: logger}
}

// CreateRequest is the body for POST /admin/rewards.
type CreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	CostInGems  *int   `json:"cost_in_gems" binding:"required"`
	Icon        string `json:"icon"`
	IsActive    *bool  `json:"is_active"`
}

// RedeemRequest is the body for POST /rewards/redeem.
type RedeemRequest struct {
	RewardID string `json:"rewardId"`
}

// StatusRequest is the body for PATCH /admin/rewards/redemptions/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// List handles GET /rewards. Returns the organization's active rewards.
func (h *Handler) List(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	list, err := h.store.ListActiveByOrg(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("list rewards failed", zap.Error(err))
		response.Internal(c, "failed to load rewards")
		return
	}
	response.OK(c, list)
}

// Redeem handles POST /rewards/redeem. Spends the caller's gems on a reward
// and queues the redemption for fulfillment.
func (h *Handler) Redeem(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RewardID == "" {
		response.BadRequest(c, "rewardId required")
		return
	}
	rewardID, err := uuid.Parse(req.RewardID)
	if err != nil {
		response.BadRequest(c, "invalid rewardId")
		return
	}

	ur, err := h.store.Redeem(c.Request.Context(), orgID, userID, rewardID)
	if errors.Is(err, ErrRewardNotFound) {
		response.NotFound(c, "reward not found")
		return
	}
	if errors.Is(err, ErrInsufficientGems) {
		response.Conflict(c, "insufficient gem balance")
		return
	}
	if err != nil {
		h.logger.Error("redeem reward failed", zap.Error(err),
			zap.String("user_id", userID.String()), zap.String("reward_id", rewardID.String()))
		response.Internal(c, "failed to redeem reward")
		return
	}

	if h.queue != nil {
		payload := queue.RewardFulfillmentPayload{
			RedemptionID: ur.ID,
			RewardID:     ur.RewardID,
			UserID:       ur.UserID,
		}
		if err := h.queue.EnqueueRewardFulfillment(c.Request.Context(), payload); err != nil {
			// The redemption is committed; fulfillment can be resolved
			// manually if the queue is down.
			h.logger.Warn("enqueue fulfillment failed", zap.Error(err),
				zap.String("redemption_id", ur.ID.String()))
		}
	}
	response.Created(c, ur)
}

// History handles GET /admin/rewards-history?rewardId&userId. Organization
// comes from the session, never from the request body.
func (h *Handler) History(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	var rewardID, userID *uuid.UUID
	if q := c.Query("rewardId"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			response.BadRequest(c, "invalid rewardId")
			return
		}
		rewardID = &id
	}
	if q := c.Query("userId"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			response.BadRequest(c, "invalid userId")
			return
		}
		userID = &id
	}
	rows, err := h.store.History(c.Request.Context(), orgID, rewardID, userID)
	if err != nil {
		h.logger.Error("reward history failed", zap.Error(err))
		response.Internal(c, "failed to load reward history")
		return
	}
	response.OK(c, rows)
}

// ListAdmin handles GET /admin/rewards. Returns all org rewards including inactive.
func (h *Handler) ListAdmin(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	list, err := h.store.ListByOrg(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("list rewards failed", zap.Error(err))
		response.Internal(c, "failed to load rewards")
		return
	}
	response.OK(c, list)
}

// Create handles POST /admin/rewards.
func (h *Handler) Create(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if *req.CostInGems < 0 {
		response.BadRequest(c, "cost_in_gems must be non-negative")
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	rw := &models.Reward{
		OrganizationID: orgID,
		Title:          req.Title,
		Description:    req.Description,
		CostInGems:     *req.CostInGems,
		Icon:           req.Icon,
		IsActive:       active,
	}
	if err := h.store.Create(c.Request.Context(), rw); err != nil {
		h.logger.Error("create reward failed", zap.Error(err))
		response.Internal(c, "failed to create reward")
		return
	}
	response.Created(c, rw)
}

// Update handles PUT /admin/rewards/:id.
func (h *Handler) Update(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reward id")
		return
	}
	var p UpdateParams
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if p.CostInGems != nil && *p.CostInGems < 0 {
		response.BadRequest(c, "cost_in_gems must be non-negative")
		return
	}
	if err := h.store.Update(c.Request.Context(), id, orgID, p); err != nil {
		if errors.Is(err, ErrRewardNotFound) {
			response.NotFound(c, "reward not found")
			return
		}
		h.logger.Error("update reward failed", zap.Error(err), zap.String("reward_id", id.String()))
		response.Internal(c, "failed to update reward")
		return
	}
	response.OK(c, gin.H{"id": id})
}

// Delete handles DELETE /admin/rewards/:id.
func (h *Handler) Delete(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid reward id")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id, orgID); err != nil {
		if errors.Is(err, ErrRewardNotFound) {
			response.NotFound(c, "reward not found")
			return
		}
		h.logger.Error("delete reward failed", zap.Error(err), zap.String("reward_id", id.String()))
		response.Internal(c, "failed to delete reward")
		return
	}
	response.NoContent(c)
}

// UpdateStatus handles PATCH /admin/rewards/redemptions/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid redemption id")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "status required")
		return
	}
	if req.Status != models.RedemptionDelivered && req.Status != models.RedemptionCancelled {
		response.BadRequest(c, "status must be delivered or cancelled")
		return
	}
	ur, err := h.store.UpdateStatus(c.Request.Context(), id, req.Status)
	if errors.Is(err, ErrRedemptionNotFound) {
		response.NotFound(c, "redemption not found")
		return
	}
	if errors.Is(err, ErrInvalidTransition) {
		response.Conflict(c, "redemption is not pending")
		return
	}
	if err != nil {
		h.logger.Error("update redemption status failed", zap.Error(err), zap.String("redemption_id", id.String()))
		response.Internal(c, "failed to update redemption")
		return
	}
	response.OK(c, ur)
}
