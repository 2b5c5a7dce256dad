package rbac

// Role names carried in access tokens.
const (
	RoleOwner      = "owner"
	RoleManager    = "manager"
	RoleViewer     = "viewer"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }
