package calls

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

var (
	ErrInvalidCall = errors.New("calls: organization_id and id required")
	ErrNotFound    = errors.New("calls: call not found")
)

// StatusUpdate is a provider-reported change to a call. Zero fields are left
// unchanged.
type StatusUpdate struct {
	Status          CallStatus
	DurationSeconds *int
	RecordingURL    string
	At              time.Time
}

// Repository persists call records. Rows are created here and moved forward
// by the provider status webhook.
type Repository interface {
	Insert(ctx context.Context, c Call) error
	// List returns calls created in [from, to). campaignID is optional.
	List(ctx context.Context, organizationID string, from, to time.Time, campaignID string) ([]Call, error)
	// UpdateStatus applies a provider update by provider call id. A call in a
	// terminal status keeps it.
	UpdateStatus(ctx context.Context, providerCallID string, u StatusUpdate) (Call, error)
}

type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) Insert(ctx context.Context, c Call) error {
	if c.ID == "" || c.OrganizationID == "" {
		return ErrInvalidCall
	}
	const q = `
INSERT INTO calls (
  id, organization_id, campaign_id, campaign_contact_id, phone_number_id,
  direction, status, provider_call_id, from_number, to_number, raw_payload,
  created_at, updated_at
) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $12)
`
	var raw any
	if len(c.RawPayload) > 0 {
		raw = []byte(c.RawPayload)
	}
	_, err := r.DB.ExecContext(ctx, q,
		c.ID,
		c.OrganizationID,
		c.CampaignID,
		c.CampaignContactID,
		c.PhoneNumberID,
		string(c.Direction),
		string(c.Status),
		c.ProviderCallID,
		c.From,
		c.To,
		raw,
		c.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context, organizationID string, from, to time.Time, campaignID string) ([]Call, error) {
	const q = `
SELECT id, organization_id, COALESCE(campaign_id::text, ''), COALESCE(campaign_contact_id::text, ''),
       COALESCE(phone_number_id::text, ''), direction, status, COALESCE(provider_call_id, ''),
       COALESCE(from_number, ''), COALESCE(to_number, ''), COALESCE(duration_seconds, 0),
       COALESCE(recording_url, ''), created_at, updated_at
FROM calls
WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3
  AND ($4 = '' OR campaign_id::text = $4)
ORDER BY created_at
`
	rows, err := r.DB.QueryContext(ctx, q, organizationID, from, to, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Call, 0)
	for rows.Next() {
		var c Call
		if err := rows.Scan(
			&c.ID,
			&c.OrganizationID,
			&c.CampaignID,
			&c.CampaignContactID,
			&c.PhoneNumberID,
			&c.Direction,
			&c.Status,
			&c.ProviderCallID,
			&c.From,
			&c.To,
			&c.DurationSeconds,
			&c.RecordingURL,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateStatus applies a provider status change. The status only moves
// forward along CallStatus.Advances; duration and recording are always kept.
func (r *PostgresRepo) UpdateStatus(ctx context.Context, providerCallID string, u StatusUpdate) (Call, error) {
	if providerCallID == "" {
		return Call{}, ErrNotFound
	}
	const q = `
UPDATE calls
SET status = CASE
        WHEN (CASE $2::text WHEN 'queued' THEN 1 WHEN 'ringing' THEN 2 WHEN 'in_progress' THEN 3
                  WHEN 'completed' THEN 4 WHEN 'failed' THEN 4 WHEN 'no_answer' THEN 4 WHEN 'busy' THEN 4 WHEN 'canceled' THEN 4
                  ELSE 0 END)
           > (CASE status::text WHEN 'queued' THEN 1 WHEN 'ringing' THEN 2 WHEN 'in_progress' THEN 3
                  WHEN 'completed' THEN 4 WHEN 'failed' THEN 4 WHEN 'no_answer' THEN 4 WHEN 'busy' THEN 4 WHEN 'canceled' THEN 4
                  ELSE 0 END)
        THEN $2 ELSE status END,
    duration_seconds = COALESCE($3, duration_seconds),
    recording_url = COALESCE(NULLIF($4, ''), recording_url),
    updated_at = $5
WHERE provider_call_id = $1
RETURNING id, organization_id, COALESCE(campaign_id::text, ''), COALESCE(campaign_contact_id::text, ''), status
`
	var c Call
	err := r.DB.QueryRowContext(ctx, q, providerCallID, string(u.Status), u.DurationSeconds, u.RecordingURL, u.At).
		Scan(&c.ID, &c.OrganizationID, &c.CampaignID, &c.CampaignContactID, &c.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	if err != nil {
		return Call{}, err
	}
	c.ProviderCallID = providerCallID
	return c, nil
}

// MemoryRepo is an in-memory repository useful for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	rows []Call
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (m *MemoryRepo) Insert(_ context.Context, c Call) error {
	if c.ID == "" || c.OrganizationID == "" {
		return ErrInvalidCall
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, c)
	return nil
}

func (m *MemoryRepo) List(_ context.Context, organizationID string, from, to time.Time, campaignID string) ([]Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, 0)
	for _, c := range m.rows {
		if c.OrganizationID != organizationID {
			continue
		}
		if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
			continue
		}
		if campaignID != "" && c.CampaignID != campaignID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// All returns every stored call in insertion order.
func (m *MemoryRepo) All() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.rows))
	copy(out, m.rows)
	return out
}

func (m *MemoryRepo) UpdateStatus(_ context.Context, providerCallID string, u StatusUpdate) (Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		c := &m.rows[i]
		if providerCallID == "" || c.ProviderCallID != providerCallID {
			continue
		}
		if c.Status.Advances(u.Status) {
			c.Status = u.Status
		}
		if u.DurationSeconds != nil {
			c.DurationSeconds = *u.DurationSeconds
		}
		if u.RecordingURL != "" {
			c.RecordingURL = u.RecordingURL
		}
		c.UpdatedAt = u.At
		return *c, nil
	}
	return Call{}, ErrNotFound
}
