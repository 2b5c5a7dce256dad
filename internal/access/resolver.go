package access

import (
	"context"
	"errors"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/numbers"
)

// Strategy names how a tenant was identified.
type Strategy string

const (
	ViaAssistant     Strategy = "assistant_id"
	ViaPhoneNumberID Strategy = "phone_number_id"
	ViaDestination   Strategy = "destination_number"
	ViaLegacyInbound Strategy = "legacy_inbound_number"
)

// Tenant is an identified calling organization.
type Tenant struct {
	OrganizationID string
	Via            Strategy

	// Agent and Direction are set only when the assistant id matched.
	Agent     *agents.AgentConfig
	Direction agents.Direction
}

type AgentLookup interface {
	FindByAssistantID(ctx context.Context, assistantID string) (agents.AgentConfig, error)
	FindByInboundNumber(ctx context.Context, number string) (agents.AgentConfig, error)
}

type NumberLookup interface {
	FindByProviderID(ctx context.Context, providerPhoneID string) (numbers.PhoneNumber, error)
	FindByNumber(ctx context.Context, number string) (numbers.PhoneNumber, error)
}

// Resolver maps a CallContext to a tenant, trying each strategy in order.
type Resolver struct {
	Agents  AgentLookup
	Numbers NumberLookup
}

// Resolve returns ok=false when no strategy matched. Lookup misses are not
// errors; store failures are.
func (r Resolver) Resolve(ctx context.Context, cc CallContext) (Tenant, bool, error) {
	if cc.AssistantID != "" {
		a, err := r.Agents.FindByAssistantID(ctx, cc.AssistantID)
		if err == nil {
			d, _ := a.MatchAssistant(cc.AssistantID)
			return Tenant{OrganizationID: a.OrganizationID, Via: ViaAssistant, Agent: &a, Direction: d}, true, nil
		}
		if !errors.Is(err, agents.ErrNotFound) {
			return Tenant{}, false, err
		}
	}

	if cc.PhoneNumberID != "" {
		p, err := r.Numbers.FindByProviderID(ctx, cc.PhoneNumberID)
		if err == nil {
			return Tenant{OrganizationID: p.OrganizationID, Via: ViaPhoneNumberID}, true, nil
		}
		if !errors.Is(err, numbers.ErrNotFound) {
			return Tenant{}, false, err
		}
	}

	candidates := numbers.Candidates(cc.Destination)
	for _, n := range candidates {
		p, err := r.Numbers.FindByNumber(ctx, n)
		if err == nil {
			return Tenant{OrganizationID: p.OrganizationID, Via: ViaDestination}, true, nil
		}
		if !errors.Is(err, numbers.ErrNotFound) {
			return Tenant{}, false, err
		}
	}

	for _, n := range candidates {
		a, err := r.Agents.FindByInboundNumber(ctx, n)
		if err == nil {
			return Tenant{OrganizationID: a.OrganizationID, Via: ViaLegacyInbound}, true, nil
		}
		if !errors.Is(err, agents.ErrNotFound) {
			return Tenant{}, false, err
		}
	}

	return Tenant{}, false, nil
}
