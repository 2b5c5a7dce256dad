package calls

import (
	"encoding/json"
	"time"
)

// Call represents a tenant-scoped phone call handled by the call-AI provider.
//
// Multi-tenant invariant: OrganizationID is required on every row.
//
// The dialer creates outbound rows in status queued; the provider's status
// webhook moves them forward later.
type Call struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`

	CampaignID        string `json:"campaign_id,omitempty" db:"campaign_id"`
	CampaignContactID string `json:"campaign_contact_id,omitempty" db:"campaign_contact_id"`
	PhoneNumberID     string `json:"phone_number_id,omitempty" db:"phone_number_id"`

	Direction Direction  `json:"direction" db:"direction"`
	Status    CallStatus `json:"status" db:"status"`

	// ProviderCallID is the provider's identifier for this call.
	ProviderCallID string `json:"provider_call_id" db:"provider_call_id"`

	From string `json:"from_number" db:"from_number"`
	To   string `json:"to_number" db:"to_number"`

	DurationSeconds int    `json:"duration_seconds" db:"duration_seconds"`
	RecordingURL    string `json:"recording_url,omitempty" db:"recording_url"`

	// RawPayload keeps the provider response verbatim for audit (JSONB).
	RawPayload json.RawMessage `json:"raw_payload,omitempty" db:"raw_payload"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusNoAnswer   CallStatus = "no_answer"
	CallStatusBusy       CallStatus = "busy"
	CallStatusCanceled   CallStatus = "canceled"
)

// rank orders statuses along the call lifecycle. Terminal statuses share the
// highest rank; unknown statuses rank zero.
func (s CallStatus) rank() int {
	switch s {
	case CallStatusQueued:
		return 1
	case CallStatusRinging:
		return 2
	case CallStatusInProgress:
		return 3
	}
	if s.Terminal() {
		return 4
	}
	return 0
}

// Advances reports whether moving from s to next goes forward. Updates that
// go backwards, repeat a status, or leave a terminal status are ignored.
func (s CallStatus) Advances(next CallStatus) bool {
	return next.rank() > s.rank()
}

// Terminal reports whether no further status transitions are expected.
func (s CallStatus) Terminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusFailed, CallStatusNoAnswer, CallStatusBusy, CallStatusCanceled:
		return true
	default:
		return false
	}
}
