package campaigns

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"voiceagent-platform/internal/telephony"
	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ScanHandler exposes one scanner run to the periodic trigger.
//
// No business logic here.
type ScanHandler struct {
	Runner Runner

	// CronSecret, when set, must match the bearer token.
	CronSecret string
}

func (h ScanHandler) ProcessCampaigns(c *gin.Context) {
	log := logger.FromGin(c)

	if h.CronSecret != "" && !bearerMatches(c.GetHeader("Authorization"), h.CronSecret) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if h.Runner == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign scanner not configured"})
		return
	}
	sum, err := h.Runner.Run(logger.With(c.Request.Context(), log))
	if errors.Is(err, telephony.ErrNotConfigured) {
		log.Error("campaign scan refused", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call provider api key not configured"})
		return
	}
	if err != nil {
		log.Error("campaign scan failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaign scan failed"})
		return
	}

	msg := "campaigns processed"
	if sum.CampaignsProcessed == 0 {
		msg = "no active campaigns"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":            msg,
		"campaignsProcessed": sum.CampaignsProcessed,
		"callsInitiated":     sum.CallsInitiated,
		"errors":             sum.Errors,
	})
}

func bearerMatches(header, secret string) bool {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(secret)) == 1
}
