package profiles

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coachhub/backend/internal/middleware"
	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/pkg/response"
	"github.com/coachhub/backend/pkg/storage"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	maxDisplayName   = 100
	maxBio           = 2000
)

// Store is the persistence the profile handler needs. *Repository implements it.
type Store interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
	SetAvatarKey(ctx context.Context, id uuid.UUID, key string) (string, error)
	ListByKind(ctx context.Context, kind models.ProfileKind, limit int) ([]models.Profile, error)
}

// Avatars signs avatar uploads and reads. *storage.S3 implements it.
type Avatars interface {
	PresignAvatarUpload(ctx context.Context, key, contentType string) (string, error)
	AvatarURL(ctx context.Context, key string) (string, error)
	DeleteAvatar(ctx context.Context, key string) error
	PresignExpire() time.Duration
}

// UpsertRequest is the body for PUT /profile.
type UpsertRequest struct {
	Kind        string `json:"kind" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Bio         string `json:"bio"`
	Sport       string `json:"sport"`
}

// AvatarUploadRequest is the body for POST /profile/avatar-upload-url.
type AvatarUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// AvatarUploadResponse carries the pre-signed PUT URL.
type AvatarUploadResponse struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// Handler handles profile HTTP endpoints.
type Handler struct {
	store   Store
	avatars Avatars
	logger  *zap.Logger
}

// NewHandler creates a profiles handler. avatars may be nil when S3 is not configured.
func NewHandler(store Store, avatars Avatars, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, avatars: avatars, logger: logger}
}

// Upsert handles PUT /profile. Creating the profile completes onboarding.
func (h *Handler) Upsert(c *gin.Context) {
	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	kind := models.ProfileKind(strings.ToLower(req.Kind))
	if kind != models.ProfileKindCoach && kind != models.ProfileKindAthlete {
		response.BadRequest(c, "kind must be coach or athlete")
		return
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" || len(name) > maxDisplayName {
		response.BadRequest(c, "display_name must be 1-100 characters")
		return
	}
	if len(req.Bio) > maxBio {
		response.BadRequest(c, "bio is too long")
		return
	}

	p := &models.Profile{
		UserID:      c.MustGet(middleware.ContextUserID).(uuid.UUID),
		Kind:        kind,
		DisplayName: name,
		Bio:         strings.TrimSpace(req.Bio),
		Sport:       strings.TrimSpace(req.Sport),
	}
	if err := h.store.Upsert(c.Request.Context(), p); err != nil {
		h.logger.Error("upsert profile failed", zap.Error(err))
		response.Internal(c, "failed to save profile")
		return
	}
	h.withAvatarURL(c.Request.Context(), p)
	response.OK(c, p)
}

// Me handles GET /profile.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	p, err := h.store.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("load profile failed", zap.Error(err))
		response.Internal(c, "failed to load profile")
		return
	}
	if p == nil {
		response.NotFound(c, ErrNotFound.Error())
		return
	}
	h.withAvatarURL(c.Request.Context(), p)
	response.OK(c, p)
}

// Get handles GET /profiles/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid profile id")
		return
	}
	p, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, err.Error())
			return
		}
		h.logger.Error("load profile failed", zap.Error(err))
		response.Internal(c, "failed to load profile")
		return
	}
	h.withAvatarURL(c.Request.Context(), p)
	response.OK(c, p.ToPublic())
}

// ListCoaches handles GET /coaches?limit=.
func (h *Handler) ListCoaches(c *gin.Context) {
	limit := DefaultListLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = min(n, MaxListLimit)
	}
	list, err := h.store.ListByKind(c.Request.Context(), models.ProfileKindCoach, limit)
	if err != nil {
		h.logger.Error("list coaches failed", zap.Error(err))
		response.Internal(c, "failed to list coaches")
		return
	}
	out := make([]models.ProfilePublic, 0, len(list))
	for i := range list {
		h.withAvatarURL(c.Request.Context(), &list[i])
		out = append(out, list[i].ToPublic())
	}
	response.OK(c, out)
}

// AvatarUploadURL handles POST /profile/avatar-upload-url. The new key replaces the old avatar.
func (h *Handler) AvatarUploadURL(c *gin.Context) {
	if h.avatars == nil {
		response.ServiceUnavailable(c, "avatar storage not configured")
		return
	}
	var req AvatarUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ext, err := storage.AvatarExtension(req.ContentType)
	if err != nil {
		response.BadRequest(c, "content_type must be image/jpeg, image/png or image/webp")
		return
	}
	ctx := c.Request.Context()
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	p, err := h.store.GetByUserID(ctx, userID)
	if err != nil {
		h.logger.Error("load profile failed", zap.Error(err))
		response.Internal(c, "failed to load profile")
		return
	}
	if p == nil {
		response.NotFound(c, ErrNotFound.Error())
		return
	}

	key := storage.AvatarKey(p.ID, ext)
	url, err := h.avatars.PresignAvatarUpload(ctx, key, req.ContentType)
	if err != nil {
		h.logger.Error("presign avatar upload failed", zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}
	previous, err := h.store.SetAvatarKey(ctx, p.ID, key)
	if err != nil {
		h.logger.Error("save avatar key failed", zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}
	if previous != "" {
		if err := h.avatars.DeleteAvatar(ctx, previous); err != nil {
			h.logger.Warn("delete previous avatar failed", zap.String("key", previous), zap.Error(err))
		}
	}
	response.OK(c, AvatarUploadResponse{UploadURL: url, Key: key, ExpiresIn: int(h.avatars.PresignExpire().Seconds())})
}

// withAvatarURL fills AvatarURL from AvatarKey. Signing errors leave it empty.
func (h *Handler) withAvatarURL(ctx context.Context, p *models.Profile) {
	if p.AvatarKey == "" || h.avatars == nil {
		return
	}
	url, err := h.avatars.AvatarURL(ctx, p.AvatarKey)
	if err != nil {
		h.logger.Warn("sign avatar url failed", zap.String("profile_id", p.ID.String()), zap.Error(err))
		return
	}
	p.AvatarURL = url
}
