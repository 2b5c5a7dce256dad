package telephony

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"time"

	"voiceagent-platform/internal/calls"
	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	headerServerSecret = "X-Vapi-Secret"
	maxStatusBody      = 1 << 20
)

// StatusWriter is the calls write the status webhook needs.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, providerCallID string, u calls.StatusUpdate) (calls.Call, error)
}

// StatusWebhookHandler applies the provider's call status messages to call
// rows. No business logic here.
type StatusWebhookHandler struct {
	Calls StatusWriter

	// Secret, when set, must match the provider's server secret header.
	Secret string

	Now func() time.Time
}

func (h StatusWebhookHandler) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls store not configured"})
		return
	}
	if h.Secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(headerServerSecret)), []byte(h.Secret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxStatusBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	ev, err := ParseStatusEvent(body)
	switch {
	case errors.Is(err, ErrNotStatusEvent):
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	case err != nil:
		log.Warn("status webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now().UTC()
	}
	u := ev.Update()
	u.At = now

	call, err := h.Calls.UpdateStatus(c.Request.Context(), ev.Call.ID, u)
	if errors.Is(err, calls.ErrNotFound) {
		// Calls started outside the dialer have no row.
		log.Info("status for unknown call", "provider_call_id", ev.Call.ID)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if err != nil {
		log.Error("call status update failed", "provider_call_id", ev.Call.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	log.Info("call status updated",
		"call_id", call.ID,
		"organization_id", call.OrganizationID,
		"status", string(call.Status),
	)
	c.JSON(http.StatusOK, gin.H{"received": true, "status": call.Status})
}
