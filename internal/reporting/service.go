package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/campaigns"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// CallLister is the calls read the summary needs. calls.Repository satisfies it.
type CallLister interface {
	List(ctx context.Context, organizationID string, from, to time.Time, campaignID string) ([]calls.Call, error)
}

type CampaignGetter interface {
	Get(ctx context.Context, organizationID, id string) (campaigns.Campaign, error)
}

type Service struct {
	calls     CallLister
	campaigns CampaignGetter
}

func NewService(c CallLister, cg CampaignGetter) *Service {
	return &Service{calls: c, campaigns: cg}
}

// CampaignSummary aggregates a campaign's calls in the range. It returns
// campaigns.ErrNotFound when the campaign is not the organization's.
func (s *Service) CampaignSummary(ctx context.Context, req CampaignSummaryRequest) (CampaignSummary, error) {
	if req.OrganizationID == "" || req.CampaignID == "" {
		return CampaignSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CampaignSummary{}, ErrInvalidRequest
	}
	if s.calls == nil || s.campaigns == nil {
		return CampaignSummary{}, errors.New("reporting: repository not configured")
	}

	camp, err := s.campaigns.Get(ctx, req.OrganizationID, req.CampaignID)
	if err != nil {
		return CampaignSummary{}, err
	}
	rows, err := s.calls.List(ctx, req.OrganizationID, req.Range.From, req.Range.To, req.CampaignID)
	if err != nil {
		return CampaignSummary{}, fmt.Errorf("reporting: list calls: %w", err)
	}

	out := CampaignSummary{
		OrganizationID:     req.OrganizationID,
		CampaignID:         camp.ID,
		CampaignName:       camp.Name,
		CampaignStatus:     string(camp.Status),
		Range:              req.Range,
		TotalContacts:      camp.TotalContacts,
		ContactsCalled:     camp.ContactsCalled,
		ContactsInterested: camp.ContactsInterested,
	}

	terminal := 0
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		if c.Status.Terminal() {
			terminal++
		}
		switch c.Status {
		case calls.CallStatusQueued, calls.CallStatusRinging:
			out.QueuedCalls++
		case calls.CallStatusInProgress:
			out.InProgressCalls++
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusFailed:
			out.FailedCalls++
		case calls.CallStatusNoAnswer:
			out.NoAnswerCalls++
		case calls.CallStatusBusy:
			out.BusyCalls++
		case calls.CallStatusCanceled:
			out.CanceledCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	if terminal > 0 {
		out.ConnectionRate = float64(out.CompletedCalls) / float64(terminal)
	}
	if camp.ContactsCalled > 0 {
		out.InterestRate = float64(camp.ContactsInterested) / float64(camp.ContactsCalled)
	}
	return out, nil
}
