package httpapi

import (
	"context"
	"net/http"
	"time"

	"voiceagent-platform/internal/access"
	"voiceagent-platform/internal/audit"
	"voiceagent-platform/internal/auth"
	"voiceagent-platform/internal/campaigns"
	"voiceagent-platform/internal/orgs"
	"voiceagent-platform/internal/reporting"
	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups the dashboard and admin panel handlers.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Organizations orgs.Repository
	Campaigns     campaigns.Repository
	Reports       *reporting.Service
	Audit         *audit.Service
	Gate          *access.Gate

	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}

func actorFrom(c *gin.Context) audit.Actor {
	id, _ := auth.IdentityFrom(c.Request.Context())
	return audit.Actor{UserID: id.UserID, Email: id.Email, Role: id.Role, IP: c.ClientIP()}
}

// record appends an audit event. Failures are logged, never surfaced.
func (h Handlers) record(c *gin.Context, orgID string, t audit.EventType, message string, metadata any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(c.Request.Context(), orgID, t, actorFrom(c), message, metadata); err != nil {
		logger.FromGin(c).Error("audit append failed", "organization_id", orgID, "type", string(t), "err", err)
	}
}

func requestCtx(c *gin.Context) context.Context {
	return logger.With(c.Request.Context(), logger.FromGin(c))
}

func abortInternal(c *gin.Context, msg string, err error) {
	logger.FromGin(c).Error(msg, "err", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
}
