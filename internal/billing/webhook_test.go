package billing

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voiceagent-platform/internal/orgs"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const testSecret = "whsec_test"

func postEvent(t *testing.T, h WebhookHandler, payload string, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/stripe", h.HandleStripe)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(payload))
	if sign {
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   []byte(payload),
			Secret:    testSecret,
			Timestamp: time.Now(),
		})
		req.Header.Set("Stripe-Signature", signed.Header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func subscriptionEvent(eventType, status, items string) string {
	return `{"id":"evt_1","object":"event","api_version":"2024-06-20","type":"` + eventType + `","data":{"object":{"id":"sub_1","object":"subscription","customer":"cus_1","status":"` + status + `","items":{"object":"list","data":[` + items + `]}}}}`
}

func orgWithCustomer(plan *string) *orgs.MemoryRepo {
	cus := "cus_1"
	return orgs.NewMemoryRepo(orgs.Organization{ID: "org1", Plan: plan, BillingCustomerID: &cus})
}

func planOf(t *testing.T, repo *orgs.MemoryRepo) *string {
	t.Helper()
	o, err := repo.Get(context.Background(), "org1")
	require.NoError(t, err)
	return o.Plan
}

func TestWebhook_ActiveSubscriptionSetsPlanFromLookupKey(t *testing.T) {
	repo := orgWithCustomer(nil)
	cache := newMapCache()
	h := WebhookHandler{Secret: testSecret, Plans: repo, Cache: cache}

	w := postEvent(t, h, subscriptionEvent("customer.subscription.created", "active",
		`{"id":"si_1","object":"subscription_item","price":{"id":"price_1","object":"price","lookup_key":"growth","product":"prod_1"}}`), true)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, planOf(t, repo))
	assert.Equal(t, "growth", *planOf(t, repo))
	assert.Equal(t, "1", cache.vals[cacheKey("cus_1")])
}

func TestWebhook_ProductMetadataPlan(t *testing.T) {
	repo := orgWithCustomer(nil)
	h := WebhookHandler{Secret: testSecret, Plans: repo}

	w := postEvent(t, h, subscriptionEvent("customer.subscription.updated", "trialing",
		`{"id":"si_1","object":"subscription_item","price":{"id":"price_1","object":"price","product":{"id":"prod_1","object":"product","metadata":{"plan":"starter"}}}}`), true)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, planOf(t, repo))
	assert.Equal(t, "starter", *planOf(t, repo))
}

func TestWebhook_DeletedClearsPlan(t *testing.T) {
	growth := "growth"
	repo := orgWithCustomer(&growth)
	h := WebhookHandler{Secret: testSecret, Plans: repo}

	w := postEvent(t, h, subscriptionEvent("customer.subscription.deleted", "canceled", ""), true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, planOf(t, repo))
}

func TestWebhook_DeletionKeepsPlanWhileAnotherSubscriptionIsActive(t *testing.T) {
	growth := "growth"
	repo := orgWithCustomer(&growth)
	cache := newMapCache()
	cache.vals[cacheKey("cus_1")] = "1"
	other := &countingChecker{active: true}
	h := WebhookHandler{Secret: testSecret, Plans: repo, Subscriptions: other, Cache: cache}

	w := postEvent(t, h, subscriptionEvent("customer.subscription.deleted", "canceled", ""), true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, other.calls)
	require.NotNil(t, planOf(t, repo))
	assert.Equal(t, "growth", *planOf(t, repo))
	assert.Equal(t, "1", cache.vals[cacheKey("cus_1")])
}

func TestWebhook_DeletionDropsCachedAnswer(t *testing.T) {
	growth := "growth"
	repo := orgWithCustomer(&growth)
	cache := newMapCache()
	cache.vals[cacheKey("cus_1")] = "1"
	h := WebhookHandler{Secret: testSecret, Plans: repo, Subscriptions: &countingChecker{}, Cache: cache}

	w := postEvent(t, h, subscriptionEvent("customer.subscription.deleted", "canceled", ""), true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, planOf(t, repo))
	_, cached := cache.vals[cacheKey("cus_1")]
	assert.False(t, cached)
}

func TestWebhook_DeletionRecheckFailureIsRetried(t *testing.T) {
	growth := "growth"
	repo := orgWithCustomer(&growth)
	h := WebhookHandler{Secret: testSecret, Plans: repo, Subscriptions: &countingChecker{err: errors.New("stripe down")}}

	w := postEvent(t, h, subscriptionEvent("customer.subscription.deleted", "canceled", ""), true)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "growth", *planOf(t, repo))
}

func TestWebhook_PastDueLeavesPlan(t *testing.T) {
	growth := "growth"
	repo := orgWithCustomer(&growth)
	h := WebhookHandler{Secret: testSecret, Plans: repo}

	w := postEvent(t, h, subscriptionEvent("customer.subscription.updated", "past_due",
		`{"id":"si_1","object":"subscription_item","price":{"id":"price_1","object":"price","lookup_key":"pro"}}`), true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "growth", *planOf(t, repo))
}

func TestWebhook_UnknownCustomerAcknowledged(t *testing.T) {
	h := WebhookHandler{Secret: testSecret, Plans: orgs.NewMemoryRepo()}

	w := postEvent(t, h, subscriptionEvent("customer.subscription.deleted", "canceled", ""), true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	repo := orgWithCustomer(nil)
	h := WebhookHandler{Secret: testSecret, Plans: repo}

	w := postEvent(t, h, subscriptionEvent("customer.subscription.created", "active",
		`{"id":"si_1","object":"subscription_item","price":{"id":"price_1","object":"price","lookup_key":"growth"}}`), false)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, planOf(t, repo))
}

func TestWebhook_MissingSecretIsConfigError(t *testing.T) {
	w := postEvent(t, WebhookHandler{Plans: orgs.NewMemoryRepo()}, `{}`, false)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPlanFromSubscription(t *testing.T) {
	assert.Empty(t, PlanFromSubscription(nil))
	assert.Empty(t, PlanFromSubscription(&stripe.Subscription{}))

	sub := &stripe.Subscription{Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{
		nil,
		{Price: &stripe.Price{Product: &stripe.Product{Metadata: map[string]string{}}}},
		{Price: &stripe.Price{LookupKey: "pro"}},
	}}}
	assert.Equal(t, "pro", PlanFromSubscription(sub))
}
