package rbac

import (
	"net/http"
	"strings"

	"voiceagent-platform/internal/auth"
	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequireOrganization enforces tenant scoping: organization_id must be in
// the request context.
func RequireOrganization() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.OrganizationID(c.Request.Context()); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "organization_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows the request if the caller has one of the roles.
// super_admin always passes.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if IsSuperAdmin(role) {
			c.Next()
			return
		}
		if _, ok := allowedSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// RequireAdminEmail guards the admin panel. The caller passes when their
// email is in the allow-list (compared lowercased) or their role is
// super_admin. An empty allow-list admits super_admin only.
func RequireAdminEmail(allowList map[string]bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.IdentityFrom(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if IsSuperAdmin(id.Role) || allowList[strings.ToLower(strings.TrimSpace(id.Email))] {
			c.Next()
			return
		}
		logger.FromGin(c).Warn("admin access denied", "user_id", id.UserID)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
	}
}
