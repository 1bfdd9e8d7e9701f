package videos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coachhub/backend/pkg/mux"
)

const maxWebhookBody = 1 << 20

// EventHandler applies a verified provider event. *Service implements it.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev mux.Event) error
}

// WebhookHandler receives lifecycle callbacks from Mux.
type WebhookHandler struct {
	events    EventHandler
	secret    string
	tolerance time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewWebhookHandler creates a webhook handler. An empty secret makes every delivery fail with 500.
func NewWebhookHandler(events EventHandler, secret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{events: events, secret: secret, tolerance: mux.DefaultTolerance, logger: logger, now: time.Now}
}

// SetClock overrides the time source used for the signature age check.
func (h *WebhookHandler) SetClock(now func() time.Time) { h.now = now }

// Receive handles POST /mux/webhook. Once the signature is verified the provider
// always gets 200, so a processing bug cannot trigger endless redelivery.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := mux.VerifySignature(body, c.GetHeader(mux.SignatureHeader), h.secret, h.now(), h.tolerance); err != nil {
		if errors.Is(err, mux.ErrSecretNotConfigured) {
			h.logger.Error("mux webhook rejected: signing secret missing")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		h.logger.Warn("mux webhook rejected", zap.Error(err), zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusBadRequest, gin.H{"error": mux.ErrInvalidSignature.Error()})
		return
	}

	ev, err := mux.ParseEvent(body)
	if err != nil {
		h.logger.Error("mux webhook undecodable", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if err := h.dispatch(c.Request.Context(), ev); err != nil {
		h.logger.Error("mux webhook processing failed", zap.Error(err), zap.String("type", ev.EventType()))
	} else {
		h.logger.Info("mux webhook processed", zap.String("type", ev.EventType()))
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) dispatch(ctx context.Context, ev mux.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic handling %s: %v", ev.EventType(), r)
		}
	}()
	return h.events.HandleEvent(ctx, ev)
}
