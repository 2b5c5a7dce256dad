package agents

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepo_FindByAssistantID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	cols := []string{
		"id", "organization_id", "inbound_agent_id", "outbound_agent_id",
		"inbound_enabled", "outbound_enabled", "inbound_phone_number",
		"business_name", "service_area", "custom_greeting",
		"custom_variables", "created_at", "updated_at",
	}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE inbound_agent_id = $1 OR outbound_agent_id = $1")).
		WithArgs("asst_out").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"ac1", "org1", "asst_in", "asst_out",
			true, false, "",
			"Acme HVAC", "Austin", "Hi there",
			[]byte(`{"offer":"10% off"}`), now, now,
		))

	a, err := NewPostgresRepo(db).FindByAssistantID(context.Background(), "asst_out")
	require.NoError(t, err)
	assert.Equal(t, "org1", a.OrganizationID)
	assert.Equal(t, "10% off", a.CustomVariables["offer"])

	d, ok := a.MatchAssistant("asst_out")
	assert.True(t, ok)
	assert.Equal(t, DirectionOutbound, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_GetByOrganizationNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE organization_id = $1")).
		WithArgs("org9").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewPostgresRepo(db).GetByOrganization(context.Background(), "org9")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryRepo_Lookups(t *testing.T) {
	repo := NewMemoryRepo(AgentConfig{OrganizationID: "org1", InboundAgentID: "asst_in", InboundPhoneNumber: "+15550001111"})

	_, err := repo.FindByAssistantID(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)

	a, err := repo.FindByInboundNumber(context.Background(), "+15550001111")
	require.NoError(t, err)
	assert.Equal(t, "org1", a.OrganizationID)
}
