package gems

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizquest/backend/internal/middleware"
	"github.com/bizquest/backend/pkg/response"
)

// Handler handles gem ledger HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a gems handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Balance handles GET /gems/balance. Returns the caller's current balance.
func (h *Handler) Balance(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	balance, err := h.store.Balance(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("gem balance failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to load gem balance")
		return
	}
	response.OK(c, gin.H{"balance": balance})
}

// Transactions handles GET /gems/transactions?limit=. Newest first.
func (h *Handler) Transactions(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	limit := 0
	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	list, err := h.store.List(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("gem transactions failed", zap.Error(err), zap.String("user_id", userID.String()))
		response.Internal(c, "failed to load gem transactions")
		return
	}
	response.OK(c, list)
}
