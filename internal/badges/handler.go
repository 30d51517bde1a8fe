package badges

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizquest/backend/internal/middleware"
	"github.com/bizquest/backend/internal/models"
	"github.com/bizquest/backend/pkg/response"
)

// Handler handles badge HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a badges handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// CreateRequest is the body for POST /admin/badges.
type CreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	IsActive    *bool  `json:"is_active"`
}

// ClaimRequest is the body for POST /badges/claim.
type ClaimRequest struct {
	UserID  string `json:"userId"`
	BadgeID string `json:"badgeId"`
}

// ListForUser handles GET /badges?userId=. Returns the organization's active
// badges with the derived unlocked flag for the given user (defaults to the
// caller).
func (h *Handler) ListForUser(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if q := c.Query("userId"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			response.BadRequest(c, "invalid userId")
			return
		}
		userID = id
	}

	list, err := h.store.ListActiveByOrg(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("list badges failed", zap.Error(err))
		response.Internal(c, "failed to load badges")
		return
	}
	unlocked, err := h.store.UnlockedBadgeIDs(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("load unlocks failed", zap.Error(err))
		response.Internal(c, "failed to load badges")
		return
	}
	response.OK(c, MergeUnlockStatus(list, unlocked))
}

// Claim handles POST /badges/claim. At-most-once per (user, badge). Only
// badges in the session organization are claimable.
func (h *Handler) Claim(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.BadgeID == "" {
		response.BadRequest(c, "userId and badgeId required")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(c, "invalid userId")
		return
	}
	badgeID, err := uuid.Parse(req.BadgeID)
	if err != nil {
		response.BadRequest(c, "invalid badgeId")
		return
	}

	ub, err := h.store.Claim(c.Request.Context(), orgID, userID, badgeID)
	if errors.Is(err, ErrAlreadyClaimed) {
		response.Conflict(c, "badge already claimed")
		return
	}
	if errors.Is(err, ErrBadgeNotFound) {
		response.NotFound(c, "badge not found")
		return
	}
	if err != nil {
		h.logger.Error("claim badge failed", zap.Error(err),
			zap.String("user_id", userID.String()), zap.String("badge_id", badgeID.String()))
		response.Internal(c, "failed to claim badge")
		return
	}
	response.OK(c, ub)
}

// ListAdmin handles GET /admin/badges. Returns all org badges including inactive.
func (h *Handler) ListAdmin(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	list, err := h.store.ListByOrg(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("list badges failed", zap.Error(err))
		response.Internal(c, "failed to load badges")
		return
	}
	response.OK(c, list)
}

// Create handles POST /admin/badges.
func (h *Handler) Create(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	b := &models.Badge{
		OrganizationID: orgID,
		Name:           req.Name,
		Description:    req.Description,
		Icon:           req.Icon,
		IsActive:       active,
	}
	if err := h.store.Create(c.Request.Context(), b); err != nil {
		h.logger.Error("create badge failed", zap.Error(err))
		response.Internal(c, "failed to create badge")
		return
	}
	response.Created(c, b)
}

// Update handles PUT /admin/badges/:id.
func (h *Handler) Update(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid badge id")
		return
	}
	var p UpdateParams
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if err := h.store.Update(c.Request.Context(), id, orgID, p); err != nil {
		if errors.Is(err, ErrBadgeNotFound) {
			response.NotFound(c, "badge not found")
			return
		}
		h.logger.Error("update badge failed", zap.Error(err), zap.String("badge_id", id.String()))
		response.Internal(c, "failed to update badge")
		return
	}
	response.OK(c, gin.H{"id": id})
}

// Delete handles DELETE /admin/badges/:id.
func (h *Handler) Delete(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid badge id")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id, orgID); err != nil {
		if errors.Is(err, ErrBadgeNotFound) {
			response.NotFound(c, "badge not found")
			return
		}
		h.logger.Error("delete badge failed", zap.Error(err), zap.String("badge_id", id.String()))
		response.Internal(c, "failed to delete badge")
		return
	}
	response.NoContent(c)
}

// History handles GET /admin/badges-history?badgeId&userId.
func (h *Handler) History(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	var badgeID, userID *uuid.UUID
	if q := c.Query("badgeId"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			response.BadRequest(c, "invalid badgeId")
			return
		}
		badgeID = &id
	}
	if q := c.Query("userId"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			response.BadRequest(c, "invalid userId")
			return
		}
		userID = &id
	}
	rows, err := h.store.History(c.Request.Context(), orgID, badgeID, userID)
	if err != nil {
		h.logger.Error("badge history failed", zap.Error(err))
		response.Internal(c, "failed to load badge history")
		return
	}
	response.OK(c, rows)
}
