package orgs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"voiceagent-platform/pkg/utils"
)

var ErrNotFound = errors.New("orgs: organization not found")

// Repository is the organizations persistence.
type Repository interface {
	Get(ctx context.Context, id string) (Organization, error)

	// UpdateBilling locks the row, lets mutate change the admin-owned billing
	// fields and writes them back atomically.
	UpdateBilling(ctx context.Context, id string, mutate func(*Organization) error) (Organization, error)

	// SetPlanByCustomer sets (or clears, when plan is nil) the paid plan of the
	// organization owning a billing customer id.
	SetPlanByCustomer(ctx context.Context, customerID string, plan *string) (string, error)
}

// NOTE: This repository assumes the following table exists:
// - organizations (service_areas text[], admin_privileges jsonb)

const selectColumns = `
SELECT id, name, plan, trial_ends_at, admin_granted_plan, admin_granted_plan_expires_at,
       billing_customer_id, COALESCE(admin_privileges, '{}'::jsonb),
       COALESCE(array_to_json(service_areas)::text, '[]'), COALESCE(city, ''), COALESCE(state, ''),
       created_at, updated_at
FROM organizations
`

type rowScanner interface {
	Scan(dest ...any) error
}

type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) Get(ctx context.Context, id string) (Organization, error) {
	return scanOrganization(r.DB.QueryRowContext(ctx, selectColumns+`WHERE id = $1`, id))
}

func (r *PostgresRepo) UpdateBilling(ctx context.Context, id string, mutate func(*Organization) error) (Organization, error) {
	var out Organization
	err := utils.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the row to serialize concurrent admin changes per organization.
		o, err := scanOrganization(tx.QueryRowContext(ctx, selectColumns+`WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := mutate(&o); err != nil {
			return err
		}

		privs, err := json.Marshal(o.AdminPrivileges)
		if err != nil {
			return err
		}
		const q = `
UPDATE organizations
SET admin_granted_plan = $2, admin_granted_plan_expires_at = $3, admin_privileges = $4, updated_at = now()
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, q, id, o.AdminGrantedPlan, o.AdminGrantedPlanExpiresAt, privs); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return Organization{}, err
	}
	return out, nil
}

func (r *PostgresRepo) SetPlanByCustomer(ctx context.Context, customerID string, plan *string) (string, error) {
	if customerID == "" {
		return "", ErrNotFound
	}
	const q = `
UPDATE organizations
SET plan = $2, updated_at = now()
WHERE billing_customer_id = $1
RETURNING id
`
	var id string
	if err := r.DB.QueryRowContext(ctx, q, customerID, plan).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return id, nil
}

func scanOrganization(row rowScanner) (Organization, error) {
	var (
		o     Organization
		privs []byte
		areas []byte
	)
	if err := row.Scan(
		&o.ID,
		&o.Name,
		&o.Plan,
		&o.TrialEndsAt,
		&o.AdminGrantedPlan,
		&o.AdminGrantedPlanExpiresAt,
		&o.BillingCustomerID,
		&privs,
		&areas,
		&o.City,
		&o.State,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, err
	}
	if len(privs) > 0 {
		if err := json.Unmarshal(privs, &o.AdminPrivileges); err != nil {
			return Organization{}, fmt.Errorf("orgs: decode admin_privileges: %w", err)
		}
	}
	if len(areas) > 0 {
		if err := json.Unmarshal(areas, &o.ServiceAreas); err != nil {
			return Organization{}, fmt.Errorf("orgs: decode service_areas: %w", err)
		}
	}
	return o, nil
}

// MemoryRepo is an in-memory repository useful for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Organization
}

func NewMemoryRepo(rows ...Organization) *MemoryRepo {
	m := &MemoryRepo{rows: map[string]Organization{}}
	for _, o := range rows {
		m.rows[o.ID] = o
	}
	return m
}

func (m *MemoryRepo) Get(_ context.Context, id string) (Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return o, nil
}

func (m *MemoryRepo) UpdateBilling(_ context.Context, id string, mutate func(*Organization) error) (Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	if err := mutate(&o); err != nil {
		return Organization{}, err
	}
	o.UpdatedAt = time.Now().UTC()
	m.rows[id] = o
	return o, nil
}

func (m *MemoryRepo) SetPlanByCustomer(_ context.Context, customerID string, plan *string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range m.rows {
		if customerID != "" && o.CustomerID() == customerID {
			o.Plan = plan
			m.rows[id] = o
			return id, nil
		}
	}
	return "", ErrNotFound
}
