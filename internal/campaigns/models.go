package campaigns

import (
	"time"
)

// Campaign is a batch outbound-calling effort owned by one organization.
//
// Counters are denormalized and maintained by other writers (status webhook,
// dashboard); the scanner does not touch them.
type Campaign struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`
	Name           string `json:"name" db:"name"`

	Status     Status    `json:"status" db:"status"`
	DailyLimit int       `json:"daily_limit" db:"daily_limit"`
	Schedule   *Schedule `json:"schedule,omitempty" db:"schedule"`

	// PhoneNumberID pins the campaign to a number; it wins over Schedule.SelectedPhoneID.
	PhoneNumberID string `json:"phone_number_id,omitempty" db:"phone_number_id"`

	TotalContacts      int `json:"total_contacts" db:"total_contacts"`
	ContactsCalled     int `json:"contacts_called" db:"contacts_called"`
	ContactsInterested int `json:"contacts_interested" db:"contacts_interested"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusDraft, StatusActive, StatusPaused, StatusCompleted:
		return st, true
	default:
		return "", false
	}
}

// Contact is one row of a campaign's contact list.
type Contact struct {
	ID         string `json:"id" db:"id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`

	Phone        string `json:"phone" db:"phone"`
	Name         string `json:"name,omitempty" db:"name"`
	BusinessName string `json:"business_name,omitempty" db:"business_name"`

	Status     ContactStatus `json:"status" db:"status"`
	CallCount  int           `json:"call_count" db:"call_count"`
	LastCallAt *time.Time    `json:"last_call_at,omitempty" db:"last_call_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ContactStatus string

const (
	ContactStatusPending       ContactStatus = "pending"
	ContactStatusQueued        ContactStatus = "queued"
	ContactStatusCalled        ContactStatus = "called"
	ContactStatusInterested    ContactStatus = "interested"
	ContactStatusNotInterested ContactStatus = "not_interested"
	ContactStatusFailed        ContactStatus = "failed"
)

// MaxCallsPerDay is how many attempts a contact may receive on one calendar day.
const MaxCallsPerDay = 2

// DisplayName is the name passed to the provider for caller context.
func (c Contact) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.BusinessName
}

// ExhaustedToday reports whether the contact already received MaxCallsPerDay
// attempts on now's UTC date.
func (c Contact) ExhaustedToday(now time.Time) bool {
	if c.LastCallAt == nil || c.CallCount < MaxCallsPerDay {
		return false
	}
	return sameUTCDate(*c.LastCallAt, now)
}

func sameUTCDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
