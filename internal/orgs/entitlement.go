package orgs

import "time"

// Source identifies which billing field decided an organization's access.
type Source string

const (
	SourceBypass       Source = "admin_bypass"
	SourceAdminGrant   Source = "admin_grant"
	SourcePaidPlan     Source = "paid_plan"
	SourceTrial        Source = "active_trial"
	SourceTrialExpired Source = "trial_expired"
	SourceNone         Source = "no_subscription"
)

// Resolve applies the entitlement precedence; the first match wins:
//
//  1. admin_privileges.bypass_limits
//  2. admin_granted_plan with no expiry or an expiry after now
//  3. a paid plan
//  4. trial_ends_at after now (active) or not after now (expired)
//  5. nothing
//
// A paid plan only tells the caller that the plan branch applies; whether it
// grants access is policy-specific (see internal/access).
func Resolve(o Organization, now time.Time) Source {
	if o.AdminPrivileges.BypassLimits {
		return SourceBypass
	}
	if o.AdminGrantedPlan != nil && *o.AdminGrantedPlan != "" {
		if o.AdminGrantedPlanExpiresAt == nil || o.AdminGrantedPlanExpiresAt.After(now) {
			return SourceAdminGrant
		}
	}
	if o.PlanName() != "" {
		return SourcePaidPlan
	}
	if o.TrialEndsAt != nil {
		if o.TrialEndsAt.After(now) {
			return SourceTrial
		}
		return SourceTrialExpired
	}
	return SourceNone
}

// Grants reports whether a source allows calls without further checks.
func (s Source) Grants() bool {
	switch s {
	case SourceBypass, SourceAdminGrant, SourceTrial:
		return true
	default:
		return false
	}
}
