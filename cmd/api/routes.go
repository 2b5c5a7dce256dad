package main

import (
	"net/http"
	"time"

	"voiceagent-platform/internal/access"
	"voiceagent-platform/internal/auth"
	"voiceagent-platform/internal/campaigns"
	"voiceagent-platform/internal/httpapi"
	"voiceagent-platform/internal/rbac"
	"voiceagent-platform/internal/telephony"
	"voiceagent-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

// registerPublicRoutes wires health checks, the scan trigger and provider
// webhooks. Each authenticates itself (shared secret or signature).
// Keep this file free of business logic.
func registerPublicRoutes(r *gin.Engine, d deps) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	scan := campaigns.ScanHandler{
		Runner:     d.scanner,
		CronSecret: d.cronSecret,
	}
	r.POST("/cron/process-campaigns", scan.ProcessCampaigns)
	r.GET("/cron/process-campaigns", scan.ProcessCampaigns)

	hooks := r.Group("/webhooks")
	{
		hooks.POST("/voice/access-check", access.Handler{Gate: d.gate}.CheckAccess)
		hooks.POST("/voice/status", telephony.StatusWebhookHandler{Calls: d.calls, Secret: d.providerSecret}.HandleStatus)
		hooks.POST("/stripe", d.stripeWebhook.HandleStripe)
	}
}

// registerProtectedRoutes wires the dashboard and admin panel API.
func registerProtectedRoutes(r *gin.Engine, d deps, authMW gin.HandlerFunc) {
	h := httpapi.Handlers{
		Organizations: d.orgs,
		Campaigns:     d.campaigns,
		Reports:       d.reports,
		Audit:         d.audit,
		Gate:          d.gate,
	}

	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", func(c *gin.Context) {
			id, _ := auth.IdentityFrom(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{
				"user_id":         id.UserID,
				"organization_id": id.OrganizationID,
				"email":           id.Email,
				"role":            id.Role,
			})
		})

		camps := v1.Group("/campaigns")
		camps.Use(rbac.RequireOrganization())
		{
			camps.GET("", h.ListCampaigns)
			camps.GET("/:campaign_id/summary", h.CampaignSummary)
			camps.POST("/:campaign_id/status",
				rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleManager),
				h.SetCampaignStatus,
			)
		}

		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAdminEmail(d.adminEmails))
		{
			o := admin.Group("/organizations/:org_id")
			o.POST("/grant", h.GrantPlan)
			o.DELETE("/grant", h.RevokeGrant)
			o.PUT("/privileges", h.SetPrivileges)
			o.GET("/access", h.CheckOrganizationAccess)
		}
	}
}
