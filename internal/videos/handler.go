package videos

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coachhub/backend/internal/middleware"
	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/pkg/mux"
	"github.com/coachhub/backend/pkg/response"
)

// Handler handles video HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a videos handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// CreateUploadRequest is the body for POST /videos/uploads.
type CreateUploadRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
}

// UpdateRequest is the body for PATCH /videos/:id.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// CreateUpload handles POST /videos/uploads.
func (h *Handler) CreateUpload(c *gin.Context) {
	var req CreateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	target, err := h.svc.CreateUpload(c.Request.Context(), userID, CreateUploadInput{Title: req.Title, Description: req.Description})
	if err != nil {
		h.writeError(c, err, "failed to create upload")
		return
	}
	response.Created(c, target)
}

// List handles GET /videos?status=&limit=&include_incomplete=.
func (h *Handler) List(c *gin.Context) {
	params, ok := parseListParams(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	list, err := h.svc.List(c.Request.Context(), userID, params)
	if err != nil {
		h.writeError(c, err, "failed to list videos")
		return
	}
	response.OK(c, list)
}

// Get handles GET /videos/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	v, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to load video")
		return
	}
	response.OK(c, v)
}

// Update handles PATCH /videos/:id. Owner only.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	if err := h.svc.UpdateMetadata(c.Request.Context(), userID, id, UpdateInput{Title: req.Title, Description: req.Description}); err != nil {
		h.writeError(c, err, "failed to update video")
		return
	}
	response.OK(c, nil)
}

// MarkUploading handles POST /videos/:id/uploading. Owner only.
func (h *Handler) MarkUploading(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	if err := h.svc.MarkUploading(c.Request.Context(), userID, id); err != nil {
		h.writeError(c, err, "failed to update video")
		return
	}
	response.OK(c, nil)
}

// Delete handles DELETE /videos/:id. Owner only.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	if err := h.svc.Delete(c.Request.Context(), userID, id); err != nil {
		h.writeError(c, err, "failed to delete video")
		return
	}
	response.OK(c, nil)
}

// AdminList handles GET /admin/videos?owner=&status=&limit=&include_incomplete=.
func (h *Handler) AdminList(c *gin.Context) {
	params, ok := parseListParams(c)
	if !ok {
		return
	}
	var owner *uuid.UUID
	if s := c.Query("owner"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid owner id")
			return
		}
		owner = &id
	}
	list, err := h.svc.AdminList(c.Request.Context(), owner, params)
	if err != nil {
		h.writeError(c, err, "failed to list videos")
		return
	}
	response.OK(c, list)
}

// AdminDelete handles DELETE /admin/videos/:id.
func (h *Handler) AdminDelete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.AdminDelete(c.Request.Context(), id); err != nil {
		h.writeError(c, err, "failed to delete video")
		return
	}
	h.logger.Info("video removed by admin", zap.String("video_id", id.String()))
	response.OK(c, nil)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid video id")
		return uuid.Nil, false
	}
	return id, true
}

func parseListParams(c *gin.Context) (ListParams, bool) {
	var p ListParams
	if s := c.Query("status"); s != "" {
		st := models.VideoStatus(s)
		if !st.Valid() {
			response.BadRequest(c, "invalid status")
			return p, false
		}
		p.Status = &st
	}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.BadRequest(c, "invalid limit")
			return p, false
		}
		p.Limit = n
	}
	if s := c.Query("include_incomplete"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			response.BadRequest(c, "invalid include_incomplete")
			return p, false
		}
		p.IncludeIncomplete = b
	}
	return p, true
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	var apiErr *mux.APIError
	switch {
	case errors.Is(err, ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrProfileNotFound), errors.Is(err, ErrVideoNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrUnauthorized):
		response.Forbidden(c, err.Error())
	case errors.Is(err, mux.ErrNotConfigured):
		h.logger.Error("video provider not configured")
		response.Internal(c, err.Error())
	case errors.As(err, &apiErr):
		h.logger.Error("video provider request failed", zap.Error(err))
		response.BadGateway(c, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		response.Internal(c, fallback)
	}
}
