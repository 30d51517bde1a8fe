package achievements

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizquest/backend/internal/middleware"
	"github.com/bizquest/backend/internal/models"
	"github.com/bizquest/backend/pkg/response"
)

// Handler handles achievement HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an achievements handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// CreateRequest is the body for POST /admin/achievements.
type CreateRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Points       int    `json:"points"`
	Rarity       string `json:"rarity"`
	MaxProgress  *int   `json:"max_progress"`
	Icon         string `json:"icon"`
	Active       *bool  `json:"active"`
	TriggerType  string `json:"trigger_type"`
	TriggerValue int    `json:"trigger_value"`
	AutoUnlock   bool   `json:"auto_unlock"`
}

// ClaimRequest is the body for POST /achievements/claim.
type ClaimRequest struct {
	UserID        string `json:"userId"`
	AchievementID string `json:"achievementId"`
}

// List handles GET /admin/achievements. Returns all org achievements.
func (h *Handler) List(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	list, err := h.store.ListByOrg(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Error("list achievements failed", zap.Error(err))
		response.Internal(c, "failed to load achievements")
		return
	}
	response.OK(c, list)
}

// Create handles POST /admin/achievements. Missing trigger fields default to
// a manual, non-auto-unlocking achievement.
func (h *Handler) Create(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.TriggerType == "" {
		req.TriggerType = models.TriggerManual
	}
	if req.TriggerType != models.TriggerManual && req.TriggerType != models.TriggerAuto {
		response.BadRequest(c, "trigger_type must be manual or auto")
		return
	}
	if req.Rarity == "" {
		req.Rarity = "common"
	}
	maxProgress := 1
	if req.MaxProgress != nil {
		maxProgress = *req.MaxProgress
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	a := &models.Achievement{
		OrganizationID: orgID,
		Name:           req.Name,
		Description:    req.Description,
		Category:       req.Category,
		Points:         req.Points,
		Rarity:         req.Rarity,
		MaxProgress:    maxProgress,
		Icon:           req.Icon,
		Active:         active,
		TriggerType:    req.TriggerType,
		TriggerValue:   req.TriggerValue,
		AutoUnlock:     req.AutoUnlock,
	}
	if err := h.store.Create(c.Request.Context(), a); err != nil {
		h.logger.Error("create achievement failed", zap.Error(err))
		response.Internal(c, "failed to create achievement")
		return
	}
	response.Created(c, a)
}

// Update handles PUT /admin/achievements/:id.
func (h *Handler) Update(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid achievement id")
		return
	}
	var p UpdateParams
	if err := c.ShouldBindJSON(&p); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	if p.TriggerType != nil && *p.TriggerType != models.TriggerManual && *p.TriggerType != models.TriggerAuto {
		response.BadRequest(c, "trigger_type must be manual or auto")
		return
	}
	if err := h.store.Update(c.Request.Context(), id, orgID, p); err != nil {
		if errors.Is(err, ErrAchievementNotFound) {
			response.NotFound(c, "achievement not found")
			return
		}
		h.logger.Error("update achievement failed", zap.Error(err), zap.String("achievement_id", id.String()))
		response.Internal(c, "failed to update achievement")
		return
	}
	response.OK(c, gin.H{"id": id})
}

// Delete handles DELETE /admin/achievements/:id.
func (h *Handler) Delete(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid achievement id")
		return
	}
	if err := h.store.Delete(c.Request.Context(), id, orgID); err != nil {
		if errors.Is(err, ErrAchievementNotFound) {
			response.NotFound(c, "achievement not found")
			return
		}
		h.logger.Error("delete achievement failed", zap.Error(err), zap.String("achievement_id", id.String()))
		response.Internal(c, "failed to delete achievement")
		return
	}
	response.NoContent(c)
}

// Claim handles POST /achievements/claim. Records the unlock and credits the
// achievement's points to the user's gem ledger. Only achievements in the
// session organization are claimable.
func (h *Handler) Claim(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.AchievementID == "" {
		response.BadRequest(c, "userId and achievementId required")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(c, "invalid userId")
		return
	}
	achievementID, err := uuid.Parse(req.AchievementID)
	if err != nil {
		response.BadRequest(c, "invalid achievementId")
		return
	}

	ua, err := h.store.Claim(c.Request.Context(), orgID, userID, achievementID)
	if errors.Is(err, ErrAlreadyUnlocked) {
		response.Conflict(c, "achievement already unlocked")
		return
	}
	if errors.Is(err, ErrAchievementNotFound) {
		response.NotFound(c, "achievement not found")
		return
	}
	if err != nil {
		h.logger.Error("claim achievement failed", zap.Error(err),
			zap.String("user_id", userID.String()), zap.String("achievement_id", achievementID.String()))
		response.Internal(c, "failed to claim achievement")
		return
	}
	response.OK(c, ua)
}

// History handles GET /admin/achievements-history?achievementId&userId.
func (h *Handler) History(c *gin.Context) {
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)
	var achievementID, userID *uuid.UUID
	if q := c.Query("achievementId"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			response.BadRequest(c, "invalid achievementId")
			return
		}
		achievementID = &id
	}
	if q := c.Query("userId"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			response.BadRequest(c, "invalid userId")
			return
		}
		userID = &id
	}
	rows, err := h.store.History(c.Request.Context(), orgID, achievementID, userID)
	if err != nil {
		h.logger.Error("achievement history failed", zap.Error(err))
		response.Internal(c, "failed to load achievement history")
		return
	}
	response.OK(c, rows)
}
