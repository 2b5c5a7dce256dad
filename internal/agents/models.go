package agents

import "time"

// AgentConfig holds an organization's call-AI assistant setup.
// This service only reads it; the dashboard owns writes.
type AgentConfig struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`

	// Provider assistant identifiers, one per direction.
	InboundAgentID  string `json:"inbound_agent_id,omitempty" db:"inbound_agent_id"`
	OutboundAgentID string `json:"outbound_agent_id,omitempty" db:"outbound_agent_id"`

	InboundEnabled  bool `json:"inbound_enabled" db:"inbound_enabled"`
	OutboundEnabled bool `json:"outbound_enabled" db:"outbound_enabled"`

	// InboundPhoneNumber predates the phone_numbers table and is only used
	// as a last-resort tenant lookup.
	InboundPhoneNumber string `json:"inbound_phone_number,omitempty" db:"inbound_phone_number"`

	BusinessName    string         `json:"business_name,omitempty" db:"business_name"`
	ServiceArea     string         `json:"service_area,omitempty" db:"service_area"`
	CustomGreeting  string         `json:"custom_greeting,omitempty" db:"custom_greeting"`
	CustomVariables map[string]any `json:"custom_variables,omitempty" db:"custom_variables"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Direction is the call direction an assistant serves.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// OutboundReady reports whether campaigns may dial with this config.
func (a AgentConfig) OutboundReady() bool {
	return a.OutboundEnabled && a.OutboundAgentID != ""
}

// MatchAssistant reports which direction assistantID is configured for.
func (a AgentConfig) MatchAssistant(assistantID string) (Direction, bool) {
	if assistantID == "" {
		return "", false
	}
	switch assistantID {
	case a.InboundAgentID:
		return DirectionInbound, true
	case a.OutboundAgentID:
		return DirectionOutbound, true
	}
	return "", false
}

// Enabled reports whether the given direction is switched on.
func (a AgentConfig) Enabled(d Direction) bool {
	if d == DirectionInbound {
		return a.InboundEnabled
	}
	return a.OutboundEnabled
}
