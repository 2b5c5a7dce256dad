package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidEvent = errors.New("audit: invalid event")

// Service records audit events. Callers treat failures as best-effort and
// log them instead of failing the mutation.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.OrganizationID == "" || e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Record builds an event from an actor and JSON-encodes metadata.
func (s *Service) Record(ctx context.Context, orgID string, t EventType, actor Actor, message string, metadata any) error {
	e := Event{
		OrganizationID: orgID,
		Type:           t,
		ActorUserID:    actor.UserID,
		ActorEmail:     actor.Email,
		ActorRole:      actor.Role,
		IPAddress:      actor.IP,
		Message:        message,
	}
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("audit: encode metadata: %w", err)
		}
		e.Metadata = b
	}
	return s.Append(ctx, e)
}

// RecordCampaignStatus records a tenant changing a campaign's status.
func (s *Service) RecordCampaignStatus(ctx context.Context, orgID, campaignID string, actor Actor, from, to string) error {
	b, err := json.Marshal(map[string]string{"from": from, "to": to})
	if err != nil {
		return err
	}
	return s.Append(ctx, Event{
		OrganizationID: orgID,
		Type:           EventCampaignStatus,
		ActorUserID:    actor.UserID,
		ActorEmail:     actor.Email,
		ActorRole:      actor.Role,
		IPAddress:      actor.IP,
		CampaignID:     campaignID,
		Message:        "campaign status changed",
		Metadata:       b,
	})
}
