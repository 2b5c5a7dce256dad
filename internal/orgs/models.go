package orgs

import "time"

// Organization is a tenant: the unit of billing and data isolation.
//
// Billing fields are written by the billing webhook and the admin panel.
// Whether the tenant may place calls is derived from them (see Resolve) and is
// never stored.
type Organization struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// Plan is the paid plan name (e.g. "starter", "growth"). Nil means no paid plan.
	Plan        *string    `json:"plan,omitempty" db:"plan"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty" db:"trial_ends_at"`

	AdminGrantedPlan          *string    `json:"admin_granted_plan,omitempty" db:"admin_granted_plan"`
	AdminGrantedPlanExpiresAt *time.Time `json:"admin_granted_plan_expires_at,omitempty" db:"admin_granted_plan_expires_at"`

	// BillingCustomerID is the payments provider's customer identifier.
	BillingCustomerID *string `json:"billing_customer_id,omitempty" db:"billing_customer_id"`

	AdminPrivileges AdminPrivileges `json:"admin_privileges" db:"admin_privileges"`

	ServiceAreas []string `json:"service_areas,omitempty" db:"service_areas"`
	City         string   `json:"city,omitempty" db:"city"`
	State        string   `json:"state,omitempty" db:"state"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AdminPrivileges is stored as a JSON object.
type AdminPrivileges struct {
	BypassLimits bool `json:"bypass_limits"`
}

const PlanStarter = "starter"

// PlanName returns the paid plan or "" when none is set.
func (o Organization) PlanName() string {
	if o.Plan == nil {
		return ""
	}
	return *o.Plan
}

// CustomerID returns the billing customer id or "" when none is set.
func (o Organization) CustomerID() string {
	if o.BillingCustomerID == nil {
		return ""
	}
	return *o.BillingCustomerID
}
