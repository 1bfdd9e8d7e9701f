package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/pkg/response"
)

const (
	// DefaultWindowHours is the email counter window when none is given.
	DefaultWindowHours = 24
	// MaxWindowHours caps the email counter window.
	MaxWindowHours = 24 * 30
)

// Summary is the admin dashboard payload.
type Summary struct {
	Users          int            `json:"users"`
	VerifiedUsers  int            `json:"verified_users"`
	ProfilesByKind map[string]int `json:"profiles_by_kind"`
	VideosByStatus map[string]int `json:"videos_by_status"`
	ReadySeconds   float64        `json:"ready_seconds"`
	EmailsSent     int            `json:"emails_sent"`
	EmailsFailed   int            `json:"emails_failed"`
	WindowHours    int            `json:"window_hours"`
}

// Source loads the summary. *Repository implements it.
type Source interface {
	Summary(ctx context.Context, since time.Time) (*Summary, error)
}

// Handler handles GET /admin/stats.
type Handler struct {
	source Source
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates an analytics handler.
func NewHandler(source Source, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{source: source, logger: logger, now: time.Now}
}

// Get handles GET /admin/stats?window_hours=. Every video status is present in the result, zero or not.
func (h *Handler) Get(c *gin.Context) {
	window := DefaultWindowHours
	if s := c.Query("window_hours"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxWindowHours {
			response.BadRequest(c, "invalid window_hours")
			return
		}
		window = n
	}

	since := h.now().Add(-time.Duration(window) * time.Hour)
	out, err := h.source.Summary(c.Request.Context(), since)
	if err != nil {
		h.logger.Error("load admin summary failed", zap.Error(err))
		response.Internal(c, "failed to load summary")
		return
	}
	for _, st := range models.VideoStatuses {
		if _, ok := out.VideosByStatus[string(st)]; !ok {
			out.VideosByStatus[string(st)] = 0
		}
	}
	out.WindowHours = window
	response.OK(c, out)
}
