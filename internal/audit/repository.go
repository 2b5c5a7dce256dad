package audit

import (
	"context"
	"database/sql"
	"sync"
)

// Repository is append-only: there is no update or delete.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// NOTE: This repository assumes the following table exists:
// - audit_events (metadata jsonb), INSERT-only for the application role
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (id, organization_id, type, actor_user_id, actor_email, actor_role, ip_address, campaign_id, message, metadata, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11)
`
	var meta any
	if len(e.Metadata) > 0 {
		meta = []byte(e.Metadata)
	}
	_, err := r.DB.ExecContext(ctx, q,
		e.ID, e.OrganizationID, string(e.Type),
		e.ActorUserID, e.ActorEmail, e.ActorRole, e.IPAddress,
		e.CampaignID, e.Message, meta, e.CreatedAt,
	)
	return err
}

// MemoryRepo is an in-memory repository useful for tests.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
