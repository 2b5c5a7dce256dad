package campaigns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/numbers"
	"voiceagent-platform/internal/orgs"
	"voiceagent-platform/internal/telephony"
	"voiceagent-platform/pkg/logger"

	"github.com/google/uuid"
)

var ErrProviderRejected = errors.New("campaigns: provider rejected call")

// DialTarget is everything needed to originate one call for one contact.
type DialTarget struct {
	Campaign     Campaign
	Organization orgs.Organization
	Phone        numbers.PhoneNumber
	Agent        agents.AgentConfig
	Contact      Contact
}

// CounterWriter persists phone number daily counters.
type CounterWriter interface {
	UpdateCounter(ctx context.Context, id string, callsToday int, lastResetDate string) error
}

// ContactWriter persists the outcome of a dial attempt on a contact.
type ContactWriter interface {
	MarkContactDialed(ctx context.Context, contactID string, callCount int, at time.Time) error
}

// CallRecorder stores the origination record.
type CallRecorder interface {
	Insert(ctx context.Context, c calls.Call) error
}

// Dialer originates exactly one outbound call attempt and records it.
// It never retries.
type Dialer struct {
	Provider telephony.CallProvider
	Calls    CallRecorder
	Numbers  CounterWriter
	Contacts ContactWriter

	Now   func() time.Time
	NewID func() string
}

// Configured reports whether the dialer can reach a call provider. Providers
// that do not implement telephony.Configurable are assumed ready.
func (d *Dialer) Configured() bool {
	if d == nil || d.Provider == nil {
		return false
	}
	if c, ok := d.Provider.(telephony.Configurable); ok {
		return c.Configured()
	}
	return true
}

func (d *Dialer) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

func (d *Dialer) newID() string {
	if d.NewID == nil {
		return uuid.NewString()
	}
	return d.NewID()
}

// Dial calls the provider and, on success, writes the call row, the phone
// counter (t.Phone.CallsToday + 1) and the contact in that order. A failed
// write does not undo earlier ones.
func (d *Dialer) Dial(ctx context.Context, t DialTarget) (calls.Call, error) {
	log := logger.From(ctx).With(
		"campaign_id", t.Campaign.ID,
		"contact_id", t.Contact.ID,
		"phone_number_id", t.Phone.ID,
	)
	if !d.Configured() {
		return calls.Call{}, telephony.ErrNotConfigured
	}

	req := telephony.OutboundCallRequest{
		AssistantID:   t.Agent.OutboundAgentID,
		PhoneNumberID: t.Phone.ProviderPhoneID,
		Customer: telephony.Customer{
			Number: t.Contact.Phone,
			Name:   t.Contact.DisplayName(),
		},
		Variables: BuildVariables(t.Agent, t.Organization),
		Metadata: telephony.CallMetadata{
			OrganizationID:    t.Campaign.OrganizationID,
			CampaignID:        t.Campaign.ID,
			CampaignContactID: t.Contact.ID,
			PhoneNumberID:     t.Phone.ID,
		},
	}

	res, err := d.Provider.CreateOutboundCall(ctx, req)
	if err != nil {
		var pe *telephony.ProviderError
		if errors.As(err, &pe) {
			log.Error("provider rejected outbound call", "provider", pe.Provider, "status", pe.Status, "body", pe.Body)
			return calls.Call{}, fmt.Errorf("%w: %v", ErrProviderRejected, err)
		}
		return calls.Call{}, err
	}

	now := d.now()
	call := calls.Call{
		ID:                d.newID(),
		OrganizationID:    t.Campaign.OrganizationID,
		CampaignID:        t.Campaign.ID,
		CampaignContactID: t.Contact.ID,
		PhoneNumberID:     t.Phone.ID,
		Direction:         calls.DirectionOutbound,
		Status:            calls.CallStatusQueued,
		ProviderCallID:    res.ProviderCallID,
		From:              t.Phone.Number,
		To:                t.Contact.Phone,
		RawPayload:        res.Raw,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := d.Calls.Insert(ctx, call); err != nil {
		return call, fmt.Errorf("campaigns: insert call: %w", err)
	}

	resetDate := t.Phone.LastResetDate
	if resetDate == "" {
		resetDate = now.Format(numbers.DateLayout)
	}
	if err := d.Numbers.UpdateCounter(ctx, t.Phone.ID, t.Phone.CallsToday+1, resetDate); err != nil {
		return call, fmt.Errorf("campaigns: update phone counter: %w", err)
	}
	if err := d.Contacts.MarkContactDialed(ctx, t.Contact.ID, t.Contact.CallCount+1, now); err != nil {
		return call, fmt.Errorf("campaigns: update contact: %w", err)
	}

	log.Info("outbound call queued", "call_id", call.ID, "provider_call_id", call.ProviderCallID)
	return call, nil
}

// BuildVariables merges call-time template variables, later sources winning:
// agent defaults (organization fields fill gaps), the custom greeting, then
// the agent's free-form custom variables.
func BuildVariables(a agents.AgentConfig, o orgs.Organization) map[string]any {
	vars := map[string]any{}

	businessName := a.BusinessName
	if businessName == "" {
		businessName = o.Name
	}
	if businessName != "" {
		vars["businessName"] = businessName
	}

	serviceArea := a.ServiceArea
	if serviceArea == "" {
		serviceArea = strings.Join(o.ServiceAreas, ", ")
	}
	if serviceArea == "" {
		serviceArea = cityState(o.City, o.State)
	}
	if serviceArea != "" {
		vars["serviceArea"] = serviceArea
	}

	if a.CustomGreeting != "" {
		vars["customGreeting"] = a.CustomGreeting
	}
	for k, v := range a.CustomVariables {
		vars[k] = v
	}
	return vars
}

func cityState(city, state string) string {
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}
