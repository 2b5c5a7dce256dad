package campaigns

import (
	"context"
	"errors"
	"testing"
	"time"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/numbers"
	"voiceagent-platform/internal/orgs"
	"voiceagent-platform/internal/telephony"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildVariables_Precedence(t *testing.T) {
	org := orgs.Organization{Name: "Acme Org", ServiceAreas: []string{"Austin", "Round Rock"}, City: "Austin", State: "TX"}

	t.Run("organization fills gaps", func(t *testing.T) {
		vars := BuildVariables(agents.AgentConfig{}, org)
		assert.Equal(t, map[string]any{"businessName": "Acme Org", "serviceArea": "Austin, Round Rock"}, vars)
	})

	t.Run("city and state as last fallback", func(t *testing.T) {
		vars := BuildVariables(agents.AgentConfig{}, orgs.Organization{City: "Austin", State: "TX"})
		assert.Equal(t, map[string]any{"serviceArea": "Austin, TX"}, vars)
	})

	t.Run("agent defaults win over organization", func(t *testing.T) {
		vars := BuildVariables(agents.AgentConfig{BusinessName: "Acme HVAC", ServiceArea: "Travis County"}, org)
		assert.Equal(t, "Acme HVAC", vars["businessName"])
		assert.Equal(t, "Travis County", vars["serviceArea"])
	})

	t.Run("greeting then custom variables", func(t *testing.T) {
		vars := BuildVariables(agents.AgentConfig{
			BusinessName:   "Acme HVAC",
			CustomGreeting: "Howdy!",
			CustomVariables: map[string]any{
				"businessName": "Override Co",
				"offer":        "10% off",
			},
		}, org)
		assert.Equal(t, "Override Co", vars["businessName"])
		assert.Equal(t, "Howdy!", vars["customGreeting"])
		assert.Equal(t, "10% off", vars["offer"])
	})
}

type failingCounter struct{}

func (failingCounter) UpdateCounter(context.Context, string, int, string) error {
	return errors.New("write failed")
}

func dialTarget() DialTarget {
	return DialTarget{
		Campaign:     Campaign{ID: "camp1", OrganizationID: "org1"},
		Organization: orgs.Organization{ID: "org1", Name: "Acme"},
		Phone:        numbers.PhoneNumber{ID: "pn1", OrganizationID: "org1", Number: "+15550001111", ProviderPhoneID: "vapi_pn1", CallsToday: 7, DailyLimit: 50, LastResetDate: "2024-03-04"},
		Agent:        agents.AgentConfig{OutboundAgentID: "asst_out", OutboundEnabled: true},
		Contact:      Contact{ID: "cc1", CampaignID: "camp1", Phone: "+15551234567", BusinessName: "Joe's Plumbing", CallCount: 1, Status: ContactStatusPending},
	}
}

func TestDialer_WritesCounterFromReadValue(t *testing.T) {
	camps := NewMemoryRepo()
	camps.PutContact(dialTarget().Contact)
	nums := numbers.NewMemoryRepo(dialTarget().Phone)
	callRepo := calls.NewMemoryRepo()
	p := &fakeProvider{}

	d := &Dialer{Provider: p, Calls: callRepo, Numbers: nums, Contacts: camps, Now: func() time.Time { return mondayAfternoon }}
	call, err := d.Dial(context.Background(), dialTarget())
	require.NoError(t, err)
	assert.NotEmpty(t, call.ID)
	assert.Equal(t, "Joe's Plumbing", p.reqs[0].Customer.Name)

	pn, err := nums.Get(context.Background(), "org1", "pn1")
	require.NoError(t, err)
	assert.Equal(t, 8, pn.CallsToday)
	assert.Equal(t, "2024-03-04", pn.LastResetDate)

	c, _ := camps.Contact("cc1")
	assert.Equal(t, 2, c.CallCount)
	assert.Equal(t, ContactStatusQueued, c.Status)
	require.NotNil(t, c.LastCallAt)
	assert.True(t, c.LastCallAt.Equal(mondayAfternoon))
}

func TestDialer_ProviderRejectionWritesNothing(t *testing.T) {
	camps := NewMemoryRepo()
	camps.PutContact(dialTarget().Contact)
	callRepo := calls.NewMemoryRepo()
	p := &fakeProvider{err: &telephony.ProviderError{Provider: "fake", Status: 402, Body: "payment required"}}

	d := &Dialer{Provider: p, Calls: callRepo, Numbers: failingCounter{}, Contacts: camps}
	_, err := d.Dial(context.Background(), dialTarget())
	assert.ErrorIs(t, err, ErrProviderRejected)
	assert.Empty(t, callRepo.All())

	c, _ := camps.Contact("cc1")
	assert.Equal(t, 1, c.CallCount)
}

func TestDialer_PartialWritesPersist(t *testing.T) {
	camps := NewMemoryRepo()
	camps.PutContact(dialTarget().Contact)
	callRepo := calls.NewMemoryRepo()

	d := &Dialer{Provider: &fakeProvider{}, Calls: callRepo, Numbers: failingCounter{}, Contacts: camps}
	call, err := d.Dial(context.Background(), dialTarget())
	assert.Error(t, err)
	assert.NotEmpty(t, call.ProviderCallID)
	assert.Len(t, callRepo.All(), 1)

	c, _ := camps.Contact("cc1")
	assert.Equal(t, ContactStatusPending, c.Status)
}
