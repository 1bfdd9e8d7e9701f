package emaillogs

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/pkg/response"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Lister reads email logs. *Repository implements it.
type Lister interface {
	List(ctx context.Context, status string, limit int) ([]*models.EmailLog, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo   Lister
	logger *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(repo Lister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /admin/emails?status=&limit=. Call after RequireRole(admin).
func (h *Handler) List(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != models.EmailLogStatusSent && status != models.EmailLogStatusFailed {
		response.BadRequest(c, "invalid status")
		return
	}
	limit := defaultLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = min(n, maxLimit)
	}
	logs, err := h.repo.List(c.Request.Context(), status, limit)
	if err != nil {
		h.logger.Error("list email logs failed", zap.Error(err))
		response.Internal(c, "failed to load email logs")
		return
	}
	response.OK(c, logs)
}
