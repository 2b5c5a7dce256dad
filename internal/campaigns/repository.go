package campaigns

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("campaigns: not found")

// Repository is the campaigns and campaign_contacts persistence.
type Repository interface {
	ListActive(ctx context.Context) ([]Campaign, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]Campaign, error)
	Get(ctx context.Context, organizationID, id string) (Campaign, error)
	SetStatus(ctx context.Context, organizationID, id string, status Status) error

	// PendingContacts returns up to limit pending contacts ordered by
	// (created_at, id).
	PendingContacts(ctx context.Context, campaignID string, limit int) ([]Contact, error)
	// MarkContactDialed writes status=queued with absolute call_count and last_call_at.
	MarkContactDialed(ctx context.Context, contactID string, callCount int, at time.Time) error
}

const selectCampaign = `
SELECT id, organization_id, name, status, daily_limit, schedule, COALESCE(phone_number_id::text, ''),
       total_contacts, contacts_called, contacts_interested, created_at, updated_at
FROM campaigns
`

type rowScanner interface {
	Scan(dest ...any) error
}

type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) ListActive(ctx context.Context) ([]Campaign, error) {
	return r.list(ctx, selectCampaign+`WHERE status = 'active' ORDER BY created_at, id`)
}

func (r *PostgresRepo) ListByOrganization(ctx context.Context, organizationID string) ([]Campaign, error) {
	return r.list(ctx, selectCampaign+`WHERE organization_id = $1 ORDER BY created_at DESC, id`, organizationID)
}

func (r *PostgresRepo) Get(ctx context.Context, organizationID, id string) (Campaign, error) {
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, selectCampaign+`WHERE organization_id = $1 AND id = $2`, organizationID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepo) SetStatus(ctx context.Context, organizationID, id string, status Status) error {
	const q = `UPDATE campaigns SET status = $3, updated_at = now() WHERE organization_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, q, organizationID, id, string(status))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) PendingContacts(ctx context.Context, campaignID string, limit int) ([]Contact, error) {
	const q = `
SELECT id, campaign_id, phone, COALESCE(name, ''), COALESCE(business_name, ''), status,
       call_count, last_call_at, created_at, updated_at
FROM campaign_contacts
WHERE campaign_id = $1 AND status = 'pending'
ORDER BY created_at, id
LIMIT $2
`
	rows, err := r.DB.QueryContext(ctx, q, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Contact, 0, limit)
	for rows.Next() {
		var c Contact
		if err := rows.Scan(
			&c.ID,
			&c.CampaignID,
			&c.Phone,
			&c.Name,
			&c.BusinessName,
			&c.Status,
			&c.CallCount,
			&c.LastCallAt,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) MarkContactDialed(ctx context.Context, contactID string, callCount int, at time.Time) error {
	const q = `
UPDATE campaign_contacts
SET status = 'queued', call_count = $2, last_call_at = $3, updated_at = $3
WHERE id = $1
`
	res, err := r.DB.ExecContext(ctx, q, contactID, callCount, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) list(ctx context.Context, q string, args ...any) ([]Campaign, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCampaign(row rowScanner) (Campaign, error) {
	var (
		c        Campaign
		schedule []byte
	)
	if err := row.Scan(
		&c.ID,
		&c.OrganizationID,
		&c.Name,
		&c.Status,
		&c.DailyLimit,
		&schedule,
		&c.PhoneNumberID,
		&c.TotalContacts,
		&c.ContactsCalled,
		&c.ContactsInterested,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return Campaign{}, err
	}
	if len(schedule) > 0 && string(schedule) != "null" {
		var s Schedule
		if err := json.Unmarshal(schedule, &s); err != nil {
			return Campaign{}, fmt.Errorf("campaigns: decode schedule for %s: %w", c.ID, err)
		}
		c.Schedule = &s
	}
	return c, nil
}

// MemoryRepo is an in-memory repository useful for tests.
type MemoryRepo struct {
	mu        sync.Mutex
	campaigns []Campaign
	contacts  []Contact
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (m *MemoryRepo) PutCampaign(c Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.campaigns {
		if m.campaigns[i].ID == c.ID {
			m.campaigns[i] = c
			return
		}
	}
	m.campaigns = append(m.campaigns, c)
}

func (m *MemoryRepo) PutContact(c Contact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.contacts {
		if m.contacts[i].ID == c.ID {
			m.contacts[i] = c
			return
		}
	}
	m.contacts = append(m.contacts, c)
}

// Contact returns a stored contact by id.
func (m *MemoryRepo) Contact(id string) (Contact, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return Contact{}, false
}

func (m *MemoryRepo) ListActive(_ context.Context) ([]Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Campaign, 0)
	for _, c := range m.campaigns {
		if c.Status == StatusActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryRepo) ListByOrganization(_ context.Context, organizationID string) ([]Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Campaign, 0)
	for _, c := range m.campaigns {
		if c.OrganizationID == organizationID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryRepo) Get(_ context.Context, organizationID, id string) (Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.campaigns {
		if c.OrganizationID == organizationID && c.ID == id {
			return c, nil
		}
	}
	return Campaign{}, ErrNotFound
}

func (m *MemoryRepo) SetStatus(_ context.Context, organizationID, id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.campaigns {
		if m.campaigns[i].OrganizationID == organizationID && m.campaigns[i].ID == id {
			m.campaigns[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryRepo) PendingContacts(_ context.Context, campaignID string, limit int) ([]Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Contact, 0)
	for _, c := range m.contacts {
		if c.CampaignID == campaignID && c.Status == ContactStatusPending {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepo) MarkContactDialed(_ context.Context, contactID string, callCount int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.contacts {
		if m.contacts[i].ID == contactID {
			m.contacts[i].Status = ContactStatusQueued
			m.contacts[i].CallCount = callCount
			t := at
			m.contacts[i].LastCallAt = &t
			m.contacts[i].UpdatedAt = at
			return nil
		}
	}
	return ErrNotFound
}
