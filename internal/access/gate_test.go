package access

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/numbers"
	"voiceagent-platform/internal/orgs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gateNow = time.Date(2024, 3, 4, 19, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type stubSubscriptions struct {
	active bool
	err    error
	calls  int
}

func (s *stubSubscriptions) HasActiveSubscription(context.Context, string) (bool, error) {
	s.calls++
	return s.active, s.err
}

func newGate(p Policy, org orgs.Organization, subs SubscriptionChecker) *Gate {
	return &Gate{
		Policy: p,
		Resolver: Resolver{
			Agents: agents.NewMemoryRepo(agents.AgentConfig{
				OrganizationID:     org.ID,
				InboundAgentID:     "asst_in",
				OutboundAgentID:    "asst_out",
				InboundEnabled:     true,
				OutboundEnabled:    false,
				InboundPhoneNumber: "+15559998888",
			}),
			Numbers: numbers.NewMemoryRepo(numbers.PhoneNumber{
				ID:              "pn1",
				OrganizationID:  org.ID,
				Number:          "+15550001111",
				ProviderPhoneID: "vapi_pn1",
				IsActive:        true,
			}),
		},
		Organizations: orgs.NewMemoryRepo(org),
		Subscriptions: subs,
		Now:           func() time.Time { return gateNow },
	}
}

func TestGate_UnidentifiedFailsOpen(t *testing.T) {
	g := newGate(PolicyOpen, orgs.Organization{ID: "org1"}, nil)

	d, err := g.Check(context.Background(), CallContext{AssistantID: "asst_unknown", Destination: "+15557770000"})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonUnidentifiedOpen, d.Reason)
	assert.Contains(t, d.Reason, "fail open")
	assert.Equal(t, http.StatusOK, d.Status)
}

func TestGate_UnidentifiedRejectedWhenStrict(t *testing.T) {
	g := newGate(PolicyStrict, orgs.Organization{ID: "org1"}, nil)

	d, err := g.Check(context.Background(), CallContext{})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ActionReject, d.Action)
	assert.Equal(t, http.StatusForbidden, d.Status)
}

func TestGate_Trial(t *testing.T) {
	for _, p := range []Policy{PolicyOpen, PolicyStrict} {
		t.Run(string(p), func(t *testing.T) {
			active := newGate(p, orgs.Organization{ID: "org1", TrialEndsAt: ptr(gateNow.Add(time.Hour))}, nil)
			d, err := active.Check(context.Background(), CallContext{PhoneNumberID: "vapi_pn1"})
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, "active trial", d.Reason)
			assert.Equal(t, "org1", d.OrganizationID)

			expired := newGate(p, orgs.Organization{ID: "org1", TrialEndsAt: ptr(gateNow.Add(-time.Hour))}, nil)
			d, err = expired.Check(context.Background(), CallContext{PhoneNumberID: "vapi_pn1"})
			require.NoError(t, err)
			assert.False(t, d.Allowed)
			assert.Equal(t, "trial expired", d.Reason)
			assert.Contains(t, d.Message, "trial has expired")
			assert.Contains(t, d.Message, "hang up")
			if p == PolicyStrict {
				assert.Equal(t, ActionHangup, d.Action)
				assert.Equal(t, http.StatusForbidden, d.Status)
			} else {
				assert.Empty(t, d.Action)
				assert.Equal(t, http.StatusOK, d.Status)
			}
		})
	}
}

func TestGate_StrictSubscriptionEnded(t *testing.T) {
	subs := &stubSubscriptions{active: false}
	g := newGate(PolicyStrict, orgs.Organization{ID: "org1", Plan: ptr("growth"), BillingCustomerID: ptr("cus_1")}, subs)

	d, err := g.Check(context.Background(), CallContext{Destination: "5550001111"})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "subscription ended", d.Reason)
	assert.Contains(t, d.Message, "subscription has ended")
	assert.Equal(t, http.StatusForbidden, d.Status)
	assert.Equal(t, ActionHangup, d.Action)
	assert.Equal(t, 1, subs.calls)
}

func TestGate_StrictPaidPlanBranch(t *testing.T) {
	paid := orgs.Organization{ID: "org1", Plan: ptr("growth"), BillingCustomerID: ptr("cus_1")}

	t.Run("active subscription allows", func(t *testing.T) {
		d, err := newGate(PolicyStrict, paid, &stubSubscriptions{active: true}).Check(context.Background(), CallContext{PhoneNumberID: "vapi_pn1"})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("provider error fails closed", func(t *testing.T) {
		d, err := newGate(PolicyStrict, paid, &stubSubscriptions{err: errors.New("stripe down")}).Check(context.Background(), CallContext{PhoneNumberID: "vapi_pn1"})
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, "subscription check failed", d.Reason)
	})

	t.Run("no billing customer denies", func(t *testing.T) {
		org := paid
		org.BillingCustomerID = nil
		subs := &stubSubscriptions{active: true}
		d, err := newGate(PolicyStrict, org, subs).Check(context.Background(), CallContext{PhoneNumberID: "vapi_pn1"})
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Zero(t, subs.calls)
	})

	t.Run("blocked starter denies before provider call", func(t *testing.T) {
		org := paid
		org.Plan = ptr(orgs.PlanStarter)
		subs := &stubSubscriptions{active: true}
		g := newGate(PolicyStrict, org, subs)
		g.StarterBlocked = func(o orgs.Organization) bool { return o.ID == "org1" }

		d, err := g.Check(context.Background(), CallContext{PhoneNumberID: "vapi_pn1"})
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, "starter plan blocked", d.Reason)
		assert.Zero(t, subs.calls)
	})

	t.Run("open policy trusts the stored plan", func(t *testing.T) {
		subs := &stubSubscriptions{}
		d, err := newGate(PolicyOpen, paid, subs).Check(context.Background(), CallContext{PhoneNumberID: "vapi_pn1"})
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, "paid plan", d.Reason)
		assert.Zero(t, subs.calls)
	})
}

func TestGate_PrecedenceBypassAndGrantWin(t *testing.T) {
	subs := &stubSubscriptions{}
	expiredTrial := ptr(gateNow.Add(-time.Hour))

	bypass := orgs.Organization{ID: "org1", TrialEndsAt: expiredTrial, AdminPrivileges: orgs.AdminPrivileges{BypassLimits: true}}
	d := newGate(PolicyStrict, bypass, subs).Evaluate(context.Background(), bypass)
	assert.True(t, d.Allowed)
	assert.Equal(t, "admin bypass", d.Reason)

	grant := orgs.Organization{ID: "org1", Plan: ptr("growth"), AdminGrantedPlan: ptr("pro"), AdminGrantedPlanExpiresAt: ptr(gateNow.Add(time.Hour))}
	d = newGate(PolicyStrict, grant, subs).Evaluate(context.Background(), grant)
	assert.True(t, d.Allowed)
	assert.Equal(t, "admin granted plan", d.Reason)
	assert.Zero(t, subs.calls)

	lapsed := orgs.Organization{ID: "org1", AdminGrantedPlan: ptr("pro"), AdminGrantedPlanExpiresAt: ptr(gateNow.Add(-time.Hour))}
	d = newGate(PolicyOpen, lapsed, nil).Evaluate(context.Background(), lapsed)
	assert.False(t, d.Allowed)
	assert.Equal(t, "no subscription", d.Reason)
}

func TestGate_DirectionDisabledHangsUp(t *testing.T) {
	org := orgs.Organization{ID: "org1", AdminPrivileges: orgs.AdminPrivileges{BypassLimits: true}}

	d, err := newGate(PolicyStrict, org, nil).Check(context.Background(), CallContext{AssistantID: "asst_out"})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ActionHangup, d.Action)
	assert.Equal(t, "outbound disabled", d.Reason)

	d, err = newGate(PolicyStrict, org, nil).Check(context.Background(), CallContext{AssistantID: "asst_in"})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestGate_LegacyInboundNumberResolves(t *testing.T) {
	org := orgs.Organization{ID: "org1", TrialEndsAt: ptr(gateNow.Add(time.Hour))}
	d, err := newGate(PolicyStrict, org, nil).Check(context.Background(), CallContext{Destination: "(555) 999-8888"})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, "org1", d.OrganizationID)
}

func TestGate_MissingOrganizationRow(t *testing.T) {
	g := newGate(PolicyOpen, orgs.Organization{ID: "org1"}, nil)
	g.Organizations = orgs.NewMemoryRepo()

	d, err := g.Check(context.Background(), CallContext{PhoneNumberID: "vapi_pn1"})
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	g.Policy = PolicyStrict
	d, err = g.Check(context.Background(), CallContext{PhoneNumberID: "vapi_pn1"})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, ActionReject, d.Action)
}
