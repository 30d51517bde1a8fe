package accesscodes

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizquest/backend/pkg/response"
)

// Handler handles access code HTTP endpoints.
type Handler struct {
	store         Store
	generator     *Generator
	adminPassword string
	logger        *zap.Logger
}

// NewHandler creates an access codes handler. adminPassword gates the
// generate and history endpoints.
func NewHandler(store Store, generator *Generator, adminPassword string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, generator: generator, adminPassword: adminPassword, logger: logger}
}

// PasswordRequest is the body for the password-gated endpoints.
type PasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// ValidateRequest is the body for POST /access-codes/validate.
type ValidateRequest struct {
	Code string `json:"code"`
}

// checkPassword compares the operator password in constant time.
func (h *Handler) checkPassword(password string) bool {
	return subtle.ConstantTimeCompare([]byte(password), []byte(h.adminPassword)) == 1
}

// Generate handles POST /access-codes/generate. Mints a new single-use code.
func (h *Handler) Generate(c *gin.Context) {
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "password required")
		return
	}
	if !h.checkPassword(req.Password) {
		response.Unauthorized(c, "invalid password")
		return
	}
	ac, err := h.generator.Generate(c.Request.Context())
	if err != nil {
		h.logger.Error("generate access code failed", zap.Error(err))
		response.Internal(c, "failed to generate access code")
		return
	}
	response.OK(c, gin.H{"code": ac.Code, "created_at": ac.CreatedAt})
}

// Validate handles POST /access-codes/validate. Pure status report, no side effect.
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		response.BadRequest(c, "code required")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	ac, err := h.store.GetByCode(c.Request.Context(), code)
	if errors.Is(err, ErrCodeNotFound) {
		response.NotFound(c, "unknown access code")
		return
	}
	if err != nil {
		h.logger.Error("validate access code failed", zap.Error(err), zap.String("code", code))
		response.Internal(c, "failed to validate access code")
		return
	}
	if ac.IsUsed {
		response.Conflict(c, "access code already used")
		return
	}
	response.OK(c, gin.H{"valid": true})
}

// History handles POST /access-codes/history. Lists all codes with usage summary.
func (h *Handler) History(c *gin.Context) {
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "password required")
		return
	}
	if !h.checkPassword(req.Password) {
		response.Unauthorized(c, "invalid password")
		return
	}
	codes, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list access codes failed", zap.Error(err))
		response.Internal(c, "failed to load access codes")
		return
	}
	summary := Summary{Total: len(codes)}
	for _, row := range codes {
		if row.IsUsed {
			summary.Used++
		}
	}
	summary.Available = summary.Total - summary.Used
	response.OK(c, gin.H{"codes": codes, "summary": summary})
}
