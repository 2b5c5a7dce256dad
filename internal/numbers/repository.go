package numbers

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("numbers: phone number not found")

// Repository is the phone_numbers persistence used by the scanner, the dialer
// and the access gate.
type Repository interface {
	Get(ctx context.Context, organizationID, id string) (PhoneNumber, error)
	// FirstOutbound returns the organization's first active number of type
	// outbound or both.
	FirstOutbound(ctx context.Context, organizationID string) (PhoneNumber, error)
	FindByProviderID(ctx context.Context, providerPhoneID string) (PhoneNumber, error)
	FindByNumber(ctx context.Context, number string) (PhoneNumber, error)

	// UpdateCounter writes absolute counter values. It is a plain write, not a
	// conditional increment.
	UpdateCounter(ctx context.Context, id string, callsToday int, lastResetDate string) error
}

// NOTE: This repository assumes the following table exists:
// - phone_numbers (last_reset_date is a DATE, nullable)

const selectColumns = `
SELECT id, organization_id, phone_number, type, COALESCE(provider_phone_id, ''), is_active,
       calls_today, daily_limit, COALESCE(to_char(last_reset_date, 'YYYY-MM-DD'), ''),
       created_at, updated_at
FROM phone_numbers
`

type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) Get(ctx context.Context, organizationID, id string) (PhoneNumber, error) {
	return r.one(ctx, selectColumns+`WHERE organization_id = $1 AND id = $2`, organizationID, id)
}

func (r *PostgresRepo) FirstOutbound(ctx context.Context, organizationID string) (PhoneNumber, error) {
	return r.one(ctx, selectColumns+`
WHERE organization_id = $1 AND is_active AND type IN ('outbound', 'both')
ORDER BY created_at, id
LIMIT 1`, organizationID)
}

func (r *PostgresRepo) FindByProviderID(ctx context.Context, providerPhoneID string) (PhoneNumber, error) {
	if providerPhoneID == "" {
		return PhoneNumber{}, ErrNotFound
	}
	return r.one(ctx, selectColumns+`WHERE provider_phone_id = $1 LIMIT 1`, providerPhoneID)
}

func (r *PostgresRepo) FindByNumber(ctx context.Context, number string) (PhoneNumber, error) {
	if number == "" {
		return PhoneNumber{}, ErrNotFound
	}
	return r.one(ctx, selectColumns+`WHERE phone_number = $1 LIMIT 1`, number)
}

func (r *PostgresRepo) UpdateCounter(ctx context.Context, id string, callsToday int, lastResetDate string) error {
	const q = `
UPDATE phone_numbers
SET calls_today = $2, last_reset_date = $3::date, updated_at = now()
WHERE id = $1
`
	res, err := r.DB.ExecContext(ctx, q, id, callsToday, lastResetDate)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) one(ctx context.Context, q string, args ...any) (PhoneNumber, error) {
	var p PhoneNumber
	if err := r.DB.QueryRowContext(ctx, q, args...).Scan(
		&p.ID,
		&p.OrganizationID,
		&p.Number,
		&p.Type,
		&p.ProviderPhoneID,
		&p.IsActive,
		&p.CallsToday,
		&p.DailyLimit,
		&p.LastResetDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PhoneNumber{}, ErrNotFound
		}
		return PhoneNumber{}, err
	}
	return p, nil
}

// MemoryRepo is an in-memory repository useful for tests. Insertion order is
// the FirstOutbound order.
type MemoryRepo struct {
	mu   sync.Mutex
	rows []PhoneNumber
}

func NewMemoryRepo(rows ...PhoneNumber) *MemoryRepo {
	return &MemoryRepo{rows: append([]PhoneNumber(nil), rows...)}
}

func (m *MemoryRepo) Put(p PhoneNumber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == p.ID {
			m.rows[i] = p
			return
		}
	}
	m.rows = append(m.rows, p)
}

func (m *MemoryRepo) Get(_ context.Context, organizationID, id string) (PhoneNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.OrganizationID == organizationID && p.ID == id {
			return p, nil
		}
	}
	return PhoneNumber{}, ErrNotFound
}

func (m *MemoryRepo) FirstOutbound(_ context.Context, organizationID string) (PhoneNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.OrganizationID == organizationID && p.CanDialOut() {
			return p, nil
		}
	}
	return PhoneNumber{}, ErrNotFound
}

func (m *MemoryRepo) FindByProviderID(_ context.Context, providerPhoneID string) (PhoneNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if providerPhoneID != "" && p.ProviderPhoneID == providerPhoneID {
			return p, nil
		}
	}
	return PhoneNumber{}, ErrNotFound
}

func (m *MemoryRepo) FindByNumber(_ context.Context, number string) (PhoneNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if number != "" && p.Number == number {
			return p, nil
		}
	}
	return PhoneNumber{}, ErrNotFound
}

func (m *MemoryRepo) UpdateCounter(_ context.Context, id string, callsToday int, lastResetDate string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].CallsToday = callsToday
			m.rows[i].LastResetDate = lastResetDate
			m.rows[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}
