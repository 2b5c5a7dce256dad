package campaigns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/numbers"
	"voiceagent-platform/internal/orgs"
	"voiceagent-platform/internal/telephony"
	"voiceagent-platform/pkg/logger"
)

const (
	// BatchSize caps pending contacts fetched and dialed per campaign per run.
	BatchSize = 10

	DefaultPacing = time.Second
)

// RunSummary is the outcome of one scanner invocation.
type RunSummary struct {
	CampaignsProcessed int `json:"campaignsProcessed"`
	CallsInitiated     int `json:"callsInitiated"`
	Errors             int `json:"errors"`
}

// CampaignSource is the part of Repository the scanner reads.
type CampaignSource interface {
	ListActive(ctx context.Context) ([]Campaign, error)
	PendingContacts(ctx context.Context, campaignID string, limit int) ([]Contact, error)
}

type AgentSource interface {
	GetByOrganization(ctx context.Context, organizationID string) (agents.AgentConfig, error)
}

type OrganizationSource interface {
	Get(ctx context.Context, id string) (orgs.Organization, error)
}

type NumberSource interface {
	Get(ctx context.Context, organizationID, id string) (numbers.PhoneNumber, error)
	FirstOutbound(ctx context.Context, organizationID string) (numbers.PhoneNumber, error)
	CounterWriter
}

// Scanner walks active campaigns and hands eligible contacts to the Dialer.
//
// Campaigns and contacts are processed sequentially. There is no lock against
// overlapping runs; phone counters are best-effort (see numbers.PhoneNumber).
type Scanner struct {
	Campaigns     CampaignSource
	Agents        AgentSource
	Organizations OrganizationSource
	Numbers       NumberSource
	Dialer        *Dialer

	// Pacing is the delay between dial attempts within one campaign.
	Pacing time.Duration
	Now    func() time.Time
}

func (s *Scanner) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Run performs one scan. It returns an error when the call provider is not
// configured (before any read or write), when the active campaign list cannot
// be loaded, or when ctx is done. Per-campaign and per-contact failures are
// logged and counted in the summary.
func (s *Scanner) Run(ctx context.Context) (RunSummary, error) {
	log := logger.From(ctx)

	if !s.Dialer.Configured() {
		return RunSummary{}, fmt.Errorf("campaigns: %w", telephony.ErrNotConfigured)
	}

	active, err := s.Campaigns.ListActive(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("campaigns: list active: %w", err)
	}

	sum := RunSummary{CampaignsProcessed: len(active)}
	for _, c := range active {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		initiated, errs, err := s.processCampaign(ctx, c)
		sum.CallsInitiated += initiated
		sum.Errors += errs
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sum, ctxErr
			}
			sum.Errors++
			log.Error("campaign processing failed", "campaign_id", c.ID, "organization_id", c.OrganizationID, "err", err)
		}
	}

	log.Info("campaign scan finished",
		"campaigns_processed", sum.CampaignsProcessed,
		"calls_initiated", sum.CallsInitiated,
		"errors", sum.Errors,
	)
	return sum, nil
}

// processCampaign returns calls initiated, per-contact errors, and a
// campaign-level error. Skips are not errors.
func (s *Scanner) processCampaign(ctx context.Context, c Campaign) (int, int, error) {
	log := logger.From(ctx).With("campaign_id", c.ID, "organization_id", c.OrganizationID)
	now := s.now()

	agent, err := s.Agents.GetByOrganization(ctx, c.OrganizationID)
	if errors.Is(err, agents.ErrNotFound) {
		log.Debug("campaign skipped", "reason", "no_agent_config")
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	if !agent.OutboundReady() {
		log.Debug("campaign skipped", "reason", "outbound_not_enabled")
		return 0, 0, nil
	}

	if c.Schedule != nil {
		wc, err := c.Schedule.Allows(now)
		if err != nil {
			return 0, 0, err
		}
		if !wc.Allowed {
			log.Debug("campaign skipped", "reason", wc.Reason, "weekday", wc.Weekday, "clock", wc.Clock)
			return 0, 0, nil
		}
	}

	phone, ok, err := s.resolvePhone(ctx, c)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		log.Debug("campaign skipped", "reason", "no_phone_number")
		return 0, 0, nil
	}

	org, err := s.Organizations.Get(ctx, c.OrganizationID)
	if err != nil {
		return 0, 0, err
	}

	contacts, err := s.Campaigns.PendingContacts(ctx, c.ID, BatchSize)
	if err != nil {
		return 0, 0, err
	}

	if phone.ResetIfNewDay(now) {
		if err := s.Numbers.UpdateCounter(ctx, phone.ID, phone.CallsToday, phone.LastResetDate); err != nil {
			return 0, 0, fmt.Errorf("reset phone counter: %w", err)
		}
	}
	available := phone.AvailableCalls()
	if available <= 0 {
		log.Debug("campaign skipped", "reason", "phone_daily_limit_reached", "phone_number_id", phone.ID)
		return 0, 0, nil
	}
	batch := min(available, BatchSize)

	var initiated, errs, attempts int
	for _, contact := range contacts {
		if attempts >= batch {
			break
		}
		if contact.ExhaustedToday(now) {
			log.Debug("contact skipped", "contact_id", contact.ID, "reason", "called_twice_today")
			continue
		}
		if attempts > 0 {
			if err := s.pause(ctx); err != nil {
				return initiated, errs, err
			}
		}
		attempts++

		call, err := s.Dialer.Dial(ctx, DialTarget{
			Campaign:     c,
			Organization: org,
			Phone:        phone,
			Agent:        agent,
			Contact:      contact,
		})
		if call.ProviderCallID != "" {
			// The provider accepted the call even if a later write failed.
			phone.CallsToday++
		}
		if err != nil {
			errs++
			log.Error("dial failed", "contact_id", contact.ID, "err", err)
			continue
		}
		initiated++
	}
	return initiated, errs, nil
}

// resolvePhone picks the campaign's number, then the schedule's selected
// number, then the organization's first active outbound-capable number.
func (s *Scanner) resolvePhone(ctx context.Context, c Campaign) (numbers.PhoneNumber, bool, error) {
	id := c.PhoneNumberID
	if id == "" && c.Schedule != nil {
		id = c.Schedule.SelectedPhoneID
	}

	var (
		p   numbers.PhoneNumber
		err error
	)
	if id != "" {
		p, err = s.Numbers.Get(ctx, c.OrganizationID, id)
	} else {
		p, err = s.Numbers.FirstOutbound(ctx, c.OrganizationID)
	}
	if errors.Is(err, numbers.ErrNotFound) {
		return numbers.PhoneNumber{}, false, nil
	}
	if err != nil {
		return numbers.PhoneNumber{}, false, err
	}
	return p, true, nil
}

func (s *Scanner) pause(ctx context.Context) error {
	if s.Pacing <= 0 {
		return nil
	}
	t := time.NewTimer(s.Pacing)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
