package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// CallProvider defines the provider-agnostic interface used by business logic.
//
// Rules:
// - No provider HTTP calls outside telephony adapters.
// - All requests must be organization-scoped (organization_id in metadata).
// - Keep request/response types provider-agnostic; keep the raw provider body for audit.
type CallProvider interface {
	Name() string
	CreateOutboundCall(ctx context.Context, req OutboundCallRequest) (OutboundCallResult, error)
}

// Configurable is implemented by providers that can report missing credentials.
type Configurable interface {
	Configured() bool
}

// OutboundCallRequest asks the provider to originate one call with an assistant.
type OutboundCallRequest struct {
	AssistantID string `json:"assistantId"`

	// PhoneNumberID is the provider's identifier of the caller-id number.
	PhoneNumberID string `json:"phoneNumberId"`

	Customer Customer `json:"customer"`

	// Variables are passed verbatim as call-time template variables.
	Variables map[string]any `json:"variables,omitempty"`

	Metadata CallMetadata `json:"metadata"`
}

type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

// CallMetadata links a provider call back to internal rows.
type CallMetadata struct {
	OrganizationID    string `json:"organizationId"`
	CampaignID        string `json:"campaignId,omitempty"`
	CampaignContactID string `json:"campaignContactId,omitempty"`
	PhoneNumberID     string `json:"phoneNumberId,omitempty"`
}

// OutboundCallResult is the accepted call as reported by the provider.
type OutboundCallResult struct {
	ProviderCallID string `json:"provider_call_id"`

	// Raw is the provider's response body.
	Raw json.RawMessage `json:"raw,omitempty"`
}

var (
	ErrNotConfigured  = errors.New("telephony: call provider not configured")
	ErrMissingCallID  = errors.New("telephony: provider response has no call id")
	ErrInvalidRequest = errors.New("telephony: invalid outbound call request")
)

// ProviderError is a non-success response from the provider.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("telephony: %s returned %d: %s", e.Provider, e.Status, e.Body)
}

func (r OutboundCallRequest) validate() error {
	switch {
	case r.AssistantID == "":
		return fmt.Errorf("%w: assistant id required", ErrInvalidRequest)
	case r.PhoneNumberID == "":
		return fmt.Errorf("%w: phone number id required", ErrInvalidRequest)
	case r.Customer.Number == "":
		return fmt.Errorf("%w: customer number required", ErrInvalidRequest)
	case r.Metadata.OrganizationID == "":
		return fmt.Errorf("%w: organization id required", ErrInvalidRequest)
	}
	return nil
}
