package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CampaignSummaryRequest asks for one campaign's call metrics over [From, To).
type CampaignSummaryRequest struct {
	OrganizationID string    `json:"organization_id"`
	CampaignID     string    `json:"campaign_id"`
	Range          TimeRange `json:"range"`
}

type CampaignSummary struct {
	OrganizationID string    `json:"organization_id"`
	CampaignID     string    `json:"campaign_id"`
	CampaignName   string    `json:"campaign_name"`
	CampaignStatus string    `json:"campaign_status"`
	Range          TimeRange `json:"range"`

	TotalCalls      int `json:"total_calls"`
	QueuedCalls     int `json:"queued_calls"`
	InProgressCalls int `json:"in_progress_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	NoAnswerCalls   int `json:"no_answer_calls"`
	BusyCalls       int `json:"busy_calls"`
	CanceledCalls   int `json:"canceled_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// ConnectionRate is completed calls over calls that reached a terminal status.
	ConnectionRate float64 `json:"connection_rate"`

	// Denormalized campaign counters, as stored.
	TotalContacts      int     `json:"total_contacts"`
	ContactsCalled     int     `json:"contacts_called"`
	ContactsInterested int     `json:"contacts_interested"`
	InterestRate       float64 `json:"interest_rate"`
}
