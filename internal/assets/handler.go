package assets

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizquest/backend/internal/middleware"
	"github.com/bizquest/backend/pkg/response"
	"github.com/bizquest/backend/pkg/storage"
)

// Handler handles catalog asset uploads.
type Handler struct {
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates an assets handler. s3 may be nil when object storage is
// not configured; uploads then fail with 503.
func NewHandler(s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{s3: s3, logger: logger}
}

// UploadIcon handles POST /admin/assets/icon. Accepts a multipart "file"
// field and returns the public URL for use as a catalog icon.
func (h *Handler) UploadIcon(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "object storage not configured")
		return
	}
	orgID := c.MustGet(middleware.ContextOrgID).(uuid.UUID)

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file required")
		return
	}
	if file.Size > storage.MaxIconFileSize {
		response.BadRequest(c, "file too large, max 2MB")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(file.Filename)
	}
	if !storage.ValidateIconFileType(contentType, file.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}

	src, err := file.Open()
	if err != nil {
		h.logger.Error("open upload failed", zap.Error(err))
		response.Internal(c, "failed to read upload")
		return
	}
	defer src.Close()

	key := storage.IconKey(orgID.String(), file.Filename)
	url, err := h.s3.Upload(c.Request.Context(), key, contentType, src, file.Size, true)
	if err != nil {
		h.logger.Error("icon upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to upload icon")
		return
	}

	response.Created(c, gin.H{"url": url, "key": key})
}
