package audit

import (
	"encoding/json"
	"time"
)

// Event is an append-only audit record of an admin or tenant mutation.
// Events are internal and never shown to tenant users.
type Event struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	Type           EventType `json:"type" db:"type"`

	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorEmail  string `json:"actor_email,omitempty" db:"actor_email"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	CampaignID string `json:"campaign_id,omitempty" db:"campaign_id"`

	Message  string          `json:"message,omitempty" db:"message"`
	Metadata json.RawMessage `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventPlanGranted       EventType = "plan_granted"
	EventPlanRevoked       EventType = "plan_revoked"
	EventPrivilegesChanged EventType = "privileges_changed"
	EventCampaignStatus    EventType = "campaign_status_changed"
)

// Actor is who caused an event.
type Actor struct {
	UserID string
	Email  string
	Role   string
	IP     string
}
