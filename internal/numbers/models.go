package numbers

import "time"

// PhoneNumber is an organization-owned number registered with the call-AI provider.
//
// Multi-tenant invariant: OrganizationID is required on every row.
//
// CallsToday is a best-effort daily counter. It is reset lazily (see ResetIfNewDay)
// the first time the row is touched on a new calendar date, and incremented
// without a row lock by the dialer. Concurrent scanner runs can over- or
// under-count; DailyLimit is a soft cap, not a hard one.
type PhoneNumber struct {
	ID             string `json:"id" db:"id"`
	OrganizationID string `json:"organization_id" db:"organization_id"`

	// Number is the E.164 phone number as stored (normally already normalized).
	Number string     `json:"phone_number" db:"phone_number"`
	Type   NumberType `json:"type" db:"type"`

	// ProviderPhoneID is the call-AI provider's own identifier for this number.
	ProviderPhoneID string `json:"provider_phone_id,omitempty" db:"provider_phone_id"`

	IsActive bool `json:"is_active" db:"is_active"`

	CallsToday int `json:"calls_today" db:"calls_today"`
	DailyLimit int `json:"daily_limit" db:"daily_limit"`
	// LastResetDate is a calendar date formatted as YYYY-MM-DD. Empty means never reset.
	LastResetDate string `json:"last_reset_date,omitempty" db:"last_reset_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type NumberType string

const (
	NumberTypeInbound  NumberType = "inbound"
	NumberTypeOutbound NumberType = "outbound"
	NumberTypeBoth     NumberType = "both"
)

// DateLayout is the storage format of LastResetDate.
const DateLayout = "2006-01-02"

// CanDialOut reports whether the number may be used for outbound calling.
func (p PhoneNumber) CanDialOut() bool {
	return p.IsActive && (p.Type == NumberTypeOutbound || p.Type == NumberTypeBoth)
}

// ResetIfNewDay zeroes CallsToday when LastResetDate differs from today's date.
// It returns true when a reset happened and the row must be persisted.
func (p *PhoneNumber) ResetIfNewDay(now time.Time) bool {
	today := now.UTC().Format(DateLayout)
	if p.LastResetDate == today {
		return false
	}
	p.CallsToday = 0
	p.LastResetDate = today
	return true
}

// AvailableCalls is the remaining daily capacity. It may be negative when a
// race pushed CallsToday past DailyLimit.
func (p PhoneNumber) AvailableCalls() int {
	return p.DailyLimit - p.CallsToday
}
