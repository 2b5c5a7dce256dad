package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voiceagent-platform/internal/orgs"
	"voiceagent-platform/pkg/logger"
)

const (
	ReasonUnidentifiedOpen = "unidentified, allowing through (fail open)"
	ReasonErrorOpen        = "error, allowing through"
)

// SubscriptionChecker asks the payments provider whether a customer has an
// active subscription.
type SubscriptionChecker interface {
	HasActiveSubscription(ctx context.Context, customerID string) (bool, error)
}

type OrganizationLookup interface {
	Get(ctx context.Context, id string) (orgs.Organization, error)
}

// Gate decides whether a call may proceed. It never writes.
type Gate struct {
	Policy        Policy
	Resolver      Resolver
	Organizations OrganizationLookup

	// Subscriptions and StarterBlocked are consulted under PolicyStrict only.
	Subscriptions  SubscriptionChecker
	StarterBlocked func(orgs.Organization) bool

	Now func() time.Time
}

func (g *Gate) now() time.Time {
	if g.Now == nil {
		return time.Now().UTC()
	}
	return g.Now().UTC()
}

func (g *Gate) policy() Policy {
	if g.Policy == "" {
		return PolicyOpen
	}
	return g.Policy
}

// Check evaluates one call. Errors are returned to the caller, which applies
// the policy's error behavior (see Handler).
func (g *Gate) Check(ctx context.Context, cc CallContext) (Decision, error) {
	log := logger.From(ctx)
	p := g.policy()

	tenant, ok, err := g.Resolver.Resolve(ctx, cc)
	if err != nil {
		return Decision{}, fmt.Errorf("access: resolve tenant: %w", err)
	}
	if !ok {
		log.Info("access check unidentified",
			"assistant_id", cc.AssistantID,
			"phone_number_id", cc.PhoneNumberID,
			"destination", cc.Destination,
			"policy", string(p),
		)
		if p == PolicyStrict {
			return p.deny("unidentified", msgUnidentified, ActionReject, ""), nil
		}
		return allow(ReasonUnidentifiedOpen, ""), nil
	}

	if tenant.Agent != nil && !tenant.Agent.Enabled(tenant.Direction) {
		return p.deny(string(tenant.Direction)+" disabled", msgDirectionOff, ActionHangup, tenant.OrganizationID), nil
	}

	org, err := g.Organizations.Get(ctx, tenant.OrganizationID)
	if errors.Is(err, orgs.ErrNotFound) {
		if p == PolicyStrict {
			return p.deny("organization not found", msgUnidentified, ActionReject, tenant.OrganizationID), nil
		}
		return allow(ReasonUnidentifiedOpen, tenant.OrganizationID), nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("access: load organization: %w", err)
	}

	d := g.Evaluate(ctx, org)
	log.Info("access check decided",
		"organization_id", org.ID,
		"via", string(tenant.Via),
		"allowed", d.Allowed,
		"reason", d.Reason,
	)
	return d, nil
}

// Evaluate applies the entitlement precedence to an organization under the
// gate's policy. It is also used by the admin panel's access check.
func (g *Gate) Evaluate(ctx context.Context, org orgs.Organization) Decision {
	p := g.policy()
	now := g.now()

	switch src := orgs.Resolve(org, now); src {
	case orgs.SourceBypass:
		return allow("admin bypass", org.ID)
	case orgs.SourceAdminGrant:
		return allow("admin granted plan", org.ID)
	case orgs.SourceTrial:
		return allow("active trial", org.ID)
	case orgs.SourceTrialExpired:
		return p.deny("trial expired", msgTrialExpired, ActionHangup, org.ID)
	case orgs.SourcePaidPlan:
		if p == PolicyOpen {
			return allow("paid plan", org.ID)
		}
		return g.verifyPaidPlan(ctx, org)
	default:
		return p.deny("no subscription", msgNoSubscription, ActionHangup, org.ID)
	}
}

// verifyPaidPlan is the strict paid-plan branch. It fails closed on
// payments-provider errors.
func (g *Gate) verifyPaidPlan(ctx context.Context, org orgs.Organization) Decision {
	p := PolicyStrict
	if org.PlanName() == orgs.PlanStarter && g.StarterBlocked != nil && g.StarterBlocked(org) {
		return p.deny("starter plan blocked", msgNoSubscription, ActionHangup, org.ID)
	}

	customerID := org.CustomerID()
	if customerID == "" {
		return p.deny("no billing customer", msgNoSubscription, ActionHangup, org.ID)
	}
	if g.Subscriptions == nil {
		logger.From(ctx).Error("subscription checker not configured", "organization_id", org.ID)
		return p.deny("subscription check failed", msgSubscriptionEnd, ActionHangup, org.ID)
	}

	active, err := g.Subscriptions.HasActiveSubscription(ctx, customerID)
	if err != nil {
		logger.From(ctx).Error("subscription check failed", "organization_id", org.ID, "err", err)
		return p.deny("subscription check failed", msgSubscriptionEnd, ActionHangup, org.ID)
	}
	if !active {
		return p.deny("subscription ended", msgSubscriptionEnd, ActionHangup, org.ID)
	}
	return allow("active subscription", org.ID)
}
