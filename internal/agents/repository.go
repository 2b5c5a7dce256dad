package agents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("agents: agent config not found")

type Repository interface {
	GetByOrganization(ctx context.Context, organizationID string) (AgentConfig, error)
	// FindByAssistantID matches either the inbound or the outbound assistant.
	FindByAssistantID(ctx context.Context, assistantID string) (AgentConfig, error)
	FindByInboundNumber(ctx context.Context, number string) (AgentConfig, error)
}

const selectColumns = `
SELECT id, organization_id,
       COALESCE(inbound_agent_id, ''), COALESCE(outbound_agent_id, ''),
       inbound_enabled, outbound_enabled, COALESCE(inbound_phone_number, ''),
       COALESCE(business_name, ''), COALESCE(service_area, ''), COALESCE(custom_greeting, ''),
       custom_variables, created_at, updated_at
FROM agent_configs
`

type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{DB: db} }

func (r *PostgresRepo) GetByOrganization(ctx context.Context, organizationID string) (AgentConfig, error) {
	return r.one(ctx, selectColumns+`WHERE organization_id = $1 LIMIT 1`, organizationID)
}

func (r *PostgresRepo) FindByAssistantID(ctx context.Context, assistantID string) (AgentConfig, error) {
	if assistantID == "" {
		return AgentConfig{}, ErrNotFound
	}
	return r.one(ctx, selectColumns+`WHERE inbound_agent_id = $1 OR outbound_agent_id = $1 LIMIT 1`, assistantID)
}

func (r *PostgresRepo) FindByInboundNumber(ctx context.Context, number string) (AgentConfig, error) {
	if number == "" {
		return AgentConfig{}, ErrNotFound
	}
	return r.one(ctx, selectColumns+`WHERE inbound_phone_number = $1 LIMIT 1`, number)
}

func (r *PostgresRepo) one(ctx context.Context, q string, args ...any) (AgentConfig, error) {
	var (
		a    AgentConfig
		vars []byte
	)
	if err := r.DB.QueryRowContext(ctx, q, args...).Scan(
		&a.ID,
		&a.OrganizationID,
		&a.InboundAgentID,
		&a.OutboundAgentID,
		&a.InboundEnabled,
		&a.OutboundEnabled,
		&a.InboundPhoneNumber,
		&a.BusinessName,
		&a.ServiceArea,
		&a.CustomGreeting,
		&vars,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AgentConfig{}, ErrNotFound
		}
		return AgentConfig{}, err
	}
	if len(vars) > 0 {
		if err := json.Unmarshal(vars, &a.CustomVariables); err != nil {
			return AgentConfig{}, fmt.Errorf("agents: decode custom_variables: %w", err)
		}
	}
	return a, nil
}

// MemoryRepo is an in-memory repository useful for tests.
type MemoryRepo struct {
	rows []AgentConfig
}

func NewMemoryRepo(rows ...AgentConfig) *MemoryRepo {
	return &MemoryRepo{rows: append([]AgentConfig(nil), rows...)}
}

func (m *MemoryRepo) GetByOrganization(_ context.Context, organizationID string) (AgentConfig, error) {
	for _, a := range m.rows {
		if a.OrganizationID == organizationID {
			return a, nil
		}
	}
	return AgentConfig{}, ErrNotFound
}

func (m *MemoryRepo) FindByAssistantID(_ context.Context, assistantID string) (AgentConfig, error) {
	for _, a := range m.rows {
		if _, ok := a.MatchAssistant(assistantID); ok {
			return a, nil
		}
	}
	return AgentConfig{}, ErrNotFound
}

func (m *MemoryRepo) FindByInboundNumber(_ context.Context, number string) (AgentConfig, error) {
	for _, a := range m.rows {
		if number != "" && a.InboundPhoneNumber == number {
			return a, nil
		}
	}
	return AgentConfig{}, ErrNotFound
}
