package orgs

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orgColumns = []string{
	"id", "name", "plan", "trial_ends_at", "admin_granted_plan", "admin_granted_plan_expires_at",
	"billing_customer_id", "admin_privileges", "service_areas", "city", "state",
	"created_at", "updated_at",
}

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	trial := now.Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("FROM organizations")).
		WithArgs("org1").
		WillReturnRows(sqlmock.NewRows(orgColumns).AddRow(
			"org1", "Acme", nil, trial, nil, nil,
			"cus_1", []byte(`{"bypass_limits":true}`), []byte(`["Austin","Round Rock"]`), "Austin", "TX",
			now, now,
		))

	o, err := NewPostgresRepo(db).Get(context.Background(), "org1")
	require.NoError(t, err)
	assert.Nil(t, o.Plan)
	require.NotNil(t, o.TrialEndsAt)
	assert.True(t, o.TrialEndsAt.Equal(trial))
	assert.Equal(t, "cus_1", o.CustomerID())
	assert.True(t, o.AdminPrivileges.BypassLimits)
	assert.Equal(t, []string{"Austin", "Round Rock"}, o.ServiceAreas)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdateBillingCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("org1").
		WillReturnRows(sqlmock.NewRows(orgColumns).AddRow(
			"org1", "Acme", nil, nil, nil, nil,
			nil, []byte(`{}`), []byte(`[]`), "", "",
			now, now,
		))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE organizations")).
		WithArgs("org1", sqlmock.AnyArg(), sqlmock.AnyArg(), []byte(`{"bypass_limits":true}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	o, err := NewPostgresRepo(db).UpdateBilling(context.Background(), "org1", func(o *Organization) error {
		o.AdminPrivileges.BypassLimits = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, o.AdminPrivileges.BypassLimits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_UpdateBillingRollsBackOnMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(orgColumns))
	mock.ExpectRollback()

	_, err = NewPostgresRepo(db).UpdateBilling(context.Background(), "nope", func(*Organization) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryRepo_SetPlanByCustomer(t *testing.T) {
	cus := "cus_1"
	repo := NewMemoryRepo(Organization{ID: "org1", BillingCustomerID: &cus})

	growth := "growth"
	id, err := repo.SetPlanByCustomer(context.Background(), "cus_1", &growth)
	require.NoError(t, err)
	assert.Equal(t, "org1", id)

	o, _ := repo.Get(context.Background(), "org1")
	assert.Equal(t, "growth", o.PlanName())

	_, err = repo.SetPlanByCustomer(context.Background(), "cus_x", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
