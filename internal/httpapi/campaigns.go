package httpapi

import (
	"errors"
	"net/http"
	"time"

	"voiceagent-platform/internal/auth"
	"voiceagent-platform/internal/campaigns"
	"voiceagent-platform/internal/reporting"
	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const defaultSummaryWindow = 7 * 24 * time.Hour

func (h Handlers) ListCampaigns(c *gin.Context) {
	if h.Campaigns == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaigns not configured"})
		return
	}
	orgID, err := auth.OrganizationID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
		return
	}

	rows, err := h.Campaigns.ListByOrganization(c.Request.Context(), orgID)
	if err != nil {
		abortInternal(c, "campaign list failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": rows})
}

type campaignStatusRequest struct {
	Status string `json:"status"`
}

// SetCampaignStatus moves a campaign between draft, active, paused and
// completed. Only active campaigns are picked up by the scanner.
func (h Handlers) SetCampaignStatus(c *gin.Context) {
	if h.Campaigns == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "campaigns not configured"})
		return
	}
	orgID, err := auth.OrganizationID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
		return
	}
	campaignID := c.Param("campaign_id")

	var req campaignStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	status, ok := campaigns.ParseStatus(req.Status)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status must be one of draft, active, paused, completed"})
		return
	}

	ctx := c.Request.Context()
	camp, err := h.Campaigns.Get(ctx, orgID, campaignID)
	if errors.Is(err, campaigns.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}
	if err != nil {
		abortInternal(c, "campaign lookup failed", err)
		return
	}
	if camp.Status == status {
		c.JSON(http.StatusOK, gin.H{"campaign": camp})
		return
	}

	if err := h.Campaigns.SetStatus(ctx, orgID, campaignID, status); err != nil {
		if errors.Is(err, campaigns.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
			return
		}
		abortInternal(c, "campaign status update failed", err)
		return
	}

	if h.Audit != nil {
		if err := h.Audit.RecordCampaignStatus(ctx, orgID, campaignID, actorFrom(c), string(camp.Status), string(status)); err != nil {
			logger.FromGin(c).Error("audit append failed", "organization_id", orgID, "campaign_id", campaignID, "err", err)
		}
	}
	camp.Status = status
	c.JSON(http.StatusOK, gin.H{"campaign": camp})
}

// CampaignSummary reports call metrics for a campaign. from/to are RFC 3339;
// the default window is the last seven days.
func (h Handlers) CampaignSummary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	orgID, err := auth.OrganizationID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
		return
	}

	rng, err := h.parseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.Reports.CampaignSummary(c.Request.Context(), reporting.CampaignSummaryRequest{
		OrganizationID: orgID,
		CampaignID:     c.Param("campaign_id"),
		Range:          rng,
	})
	switch {
	case errors.Is(err, campaigns.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
	case errors.Is(err, reporting.ErrInvalidRequest):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
	case err != nil:
		abortInternal(c, "campaign summary failed", err)
	default:
		c.JSON(http.StatusOK, out)
	}
}

func (h Handlers) parseRange(from, to string) (reporting.TimeRange, error) {
	end := h.now()
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return reporting.TimeRange{}, errors.New("to must be RFC 3339")
		}
		end = t
	}
	start := end.Add(-defaultSummaryWindow)
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return reporting.TimeRange{}, errors.New("from must be RFC 3339")
		}
		start = t
	}
	return reporting.TimeRange{From: start, To: end}, nil
}
