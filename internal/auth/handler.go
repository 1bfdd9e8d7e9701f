package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coachhub/backend/internal/models"
	"github.com/coachhub/backend/pkg/queue"
	"github.com/coachhub/backend/pkg/response"
	"github.com/coachhub/backend/pkg/utils"
)

const (
	// VerifyTokenTTL is how long an email verification link stays valid.
	VerifyTokenTTL = 48 * time.Hour
	// ResetTokenTTL is how long a password reset link stays valid.
	ResetTokenTTL = time.Hour
)

// Store is the persistence the auth handler needs. *Repository implements it.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash string, role models.Role) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	CreateToken(ctx context.Context, userID uuid.UUID, purpose models.TokenPurpose, tokenHash string, expiresAt time.Time) error
	ConsumeToken(ctx context.Context, tokenHash string, purpose models.TokenPurpose, now time.Time) (uuid.UUID, error)
}

// EmailQueue hands transactional emails to the worker.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenRequest is the body for POST /auth/verify-email.
type TokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// ForgotPasswordRequest is the body for POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body for POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token     string            `json:"token"`
	ExpiresIn int64             `json:"expires_in"`
	User      models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	store     Store
	jwt       *JWTService
	emails    EmailQueue
	publicURL string
	logger    *zap.Logger
	now       func() time.Time
}

// NewHandler creates an auth handler. publicURL is the frontend origin used in emailed links.
func NewHandler(store Store, jwt *JWTService, emails EmailQueue, publicURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:     store,
		jwt:       jwt,
		emails:    emails,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	email := strings.ToLower(strings.TrimSpace(req.Email))

	_, err := h.store.GetByEmail(ctx, email)
	if err == nil {
		response.Conflict(c, "email already registered")
		return
	}
	if !errors.Is(err, ErrUserNotFound) {
		h.logger.Error("lookup user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user, err := h.store.Create(ctx, email, hash, models.RoleMember)
	if errors.Is(err, ErrEmailTaken) {
		response.Conflict(c, "email already registered")
		return
	}
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	h.sendLink(ctx, user, models.TokenPurposeVerifyEmail, VerifyTokenTTL, models.EmailTypeVerifyEmail, "/verify-email")
	h.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	response.Created(c, TokenResponse{Token: token, ExpiresIn: int64(h.jwt.TTL().Seconds()), User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.store.GetByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			h.logger.Error("lookup user failed", zap.Error(err))
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, ExpiresIn: int64(h.jwt.TTL().Seconds()), User: user.ToPublic()})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	// Set by middleware.JWT; the key is spelled out to avoid an import cycle.
	userID, _ := c.Get("user_id")
	id, ok := userID.(uuid.UUID)
	if !ok {
		response.Unauthorized(c, "Not authenticated")
		return
	}
	user, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		response.Internal(c, "failed to load user")
		return
	}
	response.OK(c, user.ToPublic())
}

// VerifyEmail handles POST /auth/verify-email.
func (h *Handler) VerifyEmail(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	userID, err := h.store.ConsumeToken(ctx, utils.HashToken(req.Token), models.TokenPurposeVerifyEmail, h.now())
	if err != nil {
		h.tokenError(c, err)
		return
	}
	if err := h.store.MarkEmailVerified(ctx, userID); err != nil {
		h.logger.Error("mark email verified failed", zap.Error(err))
		response.Internal(c, "failed to verify email")
		return
	}
	response.OK(c, gin.H{"verified": true})
}

// ForgotPassword handles POST /auth/forgot-password. Always 200 so callers cannot probe for accounts.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	user, err := h.store.GetByEmail(ctx, strings.TrimSpace(req.Email))
	switch {
	case err == nil:
		h.sendLink(ctx, user, models.TokenPurposeResetPassword, ResetTokenTTL, models.EmailTypeResetPassword, "/reset-password")
	case !errors.Is(err, ErrUserNotFound):
		h.logger.Error("lookup user failed", zap.Error(err))
	}
	response.OK(c, gin.H{"sent": true})
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	userID, err := h.store.ConsumeToken(ctx, utils.HashToken(req.Token), models.TokenPurposeResetPassword, h.now())
	if err != nil {
		h.tokenError(c, err)
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.store.UpdatePassword(ctx, userID, hash); err != nil {
		h.logger.Error("update password failed", zap.Error(err))
		response.Internal(c, "failed to reset password")
		return
	}
	response.OK(c, gin.H{"reset": true})
}

func (h *Handler) tokenError(c *gin.Context, err error) {
	if errors.Is(err, ErrTokenInvalid) {
		response.BadRequest(c, err.Error())
		return
	}
	h.logger.Error("consume token failed", zap.Error(err))
	response.Internal(c, "failed to process token")
}

// sendLink stores a one-time token and queues the email carrying it. Failures are logged only.
func (h *Handler) sendLink(ctx context.Context, user *models.User, purpose models.TokenPurpose, ttl time.Duration, emailType, path string) {
	plain, hash, err := utils.NewToken()
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err))
		return
	}
	if err := h.store.CreateToken(ctx, user.ID, purpose, hash, h.now().Add(ttl)); err != nil {
		h.logger.Error("store token failed", zap.Error(err), zap.String("purpose", string(purpose)))
		return
	}
	if h.emails == nil {
		return
	}
	userID := user.ID
	payload := queue.EmailPayload{
		EmailType:      emailType,
		UserID:         &userID,
		RecipientEmail: user.Email,
		Data:           map[string]string{"link": h.publicURL + path + "?token=" + plain},
	}
	if err := h.emails.EnqueueEmail(ctx, payload); err != nil {
		h.logger.Error("enqueue email failed", zap.Error(err), zap.String("email_type", emailType))
	}
}
