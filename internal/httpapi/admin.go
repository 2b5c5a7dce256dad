package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"voiceagent-platform/internal/audit"
	"voiceagent-platform/internal/orgs"

	"github.com/gin-gonic/gin"
)

var errExpiryInPast = errors.New("expires_at must be in the future")

type grantPlanRequest struct {
	Plan      string     `json:"plan"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// GrantPlan gives an organization a plan outside billing, optionally until
// expires_at.
func (h Handlers) GrantPlan(c *gin.Context) {
	if h.Organizations == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "organizations not configured"})
		return
	}
	orgID := c.Param("org_id")

	var req grantPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req.Plan = strings.TrimSpace(req.Plan)
	if req.Plan == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "plan required"})
		return
	}

	now := h.now()
	org, err := h.Organizations.UpdateBilling(c.Request.Context(), orgID, func(o *orgs.Organization) error {
		if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
			return errExpiryInPast
		}
		plan := req.Plan
		o.AdminGrantedPlan = &plan
		o.AdminGrantedPlanExpiresAt = req.ExpiresAt
		return nil
	})
	if !h.writeBillingErr(c, err) {
		return
	}

	h.record(c, orgID, audit.EventPlanGranted, "plan granted", gin.H{"plan": req.Plan, "expires_at": req.ExpiresAt})
	c.JSON(http.StatusOK, gin.H{"organization": org})
}

// RevokeGrant clears the admin-granted plan.
func (h Handlers) RevokeGrant(c *gin.Context) {
	if h.Organizations == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "organizations not configured"})
		return
	}
	orgID := c.Param("org_id")

	var previous string
	org, err := h.Organizations.UpdateBilling(c.Request.Context(), orgID, func(o *orgs.Organization) error {
		if o.AdminGrantedPlan != nil {
			previous = *o.AdminGrantedPlan
		}
		o.AdminGrantedPlan = nil
		o.AdminGrantedPlanExpiresAt = nil
		return nil
	})
	if !h.writeBillingErr(c, err) {
		return
	}

	h.record(c, orgID, audit.EventPlanRevoked, "plan grant revoked", gin.H{"previous_plan": previous})
	c.JSON(http.StatusOK, gin.H{"organization": org})
}

type privilegesRequest struct {
	BypassLimits *bool `json:"bypass_limits"`
}

func (h Handlers) SetPrivileges(c *gin.Context) {
	if h.Organizations == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "organizations not configured"})
		return
	}
	orgID := c.Param("org_id")

	var req privilegesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BypassLimits == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bypass_limits required"})
		return
	}

	org, err := h.Organizations.UpdateBilling(c.Request.Context(), orgID, func(o *orgs.Organization) error {
		o.AdminPrivileges.BypassLimits = *req.BypassLimits
		return nil
	})
	if !h.writeBillingErr(c, err) {
		return
	}

	h.record(c, orgID, audit.EventPrivilegesChanged, "admin privileges changed", org.AdminPrivileges)
	c.JSON(http.StatusOK, gin.H{"organization": org})
}

// CheckOrganizationAccess runs the entitlement evaluation for an
// organization without a call context.
func (h Handlers) CheckOrganizationAccess(c *gin.Context) {
	if h.Organizations == nil || h.Gate == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "access gate not configured"})
		return
	}
	orgID := c.Param("org_id")

	org, err := h.Organizations.Get(c.Request.Context(), orgID)
	if errors.Is(err, orgs.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "organization not found"})
		return
	}
	if err != nil {
		abortInternal(c, "organization lookup failed", err)
		return
	}

	d := h.Gate.Evaluate(requestCtx(c), org)
	c.JSON(http.StatusOK, gin.H{
		"organization_id": org.ID,
		"source":          orgs.Resolve(org, h.now()),
		"decision":        d,
	})
}

// writeBillingErr maps UpdateBilling errors. It reports whether the caller
// should continue.
func (h Handlers) writeBillingErr(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, orgs.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "organization not found"})
	case errors.Is(err, errExpiryInPast):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		abortInternal(c, "organization update failed", err)
	}
	return false
}
