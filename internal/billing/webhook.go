package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"voiceagent-platform/internal/access"
	"voiceagent-platform/internal/orgs"
	"voiceagent-platform/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const maxWebhookBody = 65536

// PlanWriter is the organizations write the webhook needs.
type PlanWriter interface {
	SetPlanByCustomer(ctx context.Context, customerID string, plan *string) (string, error)
}

// WebhookHandler keeps organizations.plan in sync with Stripe subscriptions.
type WebhookHandler struct {
	Secret string
	Plans  PlanWriter

	// Subscriptions, when set, is asked before a plan is cleared: a customer
	// can end one subscription while another stays active.
	Subscriptions access.SubscriptionChecker

	// Cache, when set, is refreshed with the new subscription state so the
	// access gate sees it before the cached answer expires.
	Cache Cache
	TTL   time.Duration
}

func (h WebhookHandler) HandleStripe(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Secret == "" {
		log.Error("stripe webhook secret not configured")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(body, c.GetHeader("Stripe-Signature"), h.Secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		log.Warn("stripe webhook signature rejected", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}
	log = log.With("event_id", event.ID, "event_type", string(event.Type))

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
	default:
		log.Debug("stripe event ignored")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		log.Error("stripe subscription payload invalid", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid subscription payload"})
		return
	}
	if sub.Customer == nil || sub.Customer.ID == "" {
		log.Warn("stripe subscription without customer", "subscription_id", sub.ID)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	customerID := sub.Customer.ID
	log = log.With("customer_id", customerID, "subscription_id", sub.ID, "status", string(sub.Status))

	change, ok := planChange(event.Type, &sub)
	if !ok {
		log.Info("stripe subscription change ignored")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if change.plan == nil && h.Subscriptions != nil {
		active, err := h.Subscriptions.HasActiveSubscription(c.Request.Context(), customerID)
		if err != nil {
			log.Error("subscription recheck failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "subscription check failed"})
			return
		}
		if active {
			h.refreshCache(c.Request.Context(), customerID, true)
			log.Info("plan kept, customer has another active subscription")
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
	}

	orgID, err := h.Plans.SetPlanByCustomer(c.Request.Context(), customerID, change.plan)
	if errors.Is(err, orgs.ErrNotFound) {
		log.Warn("stripe customer has no organization")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if err != nil {
		log.Error("organization plan update failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "plan update failed"})
		return
	}

	h.refreshCache(c.Request.Context(), customerID, change.active)
	log.Info("organization plan updated", "organization_id", orgID, "plan", derefPlan(change.plan))
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h WebhookHandler) refreshCache(ctx context.Context, customerID string, active bool) {
	if h.Cache == nil {
		return
	}
	ttl := h.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	// Anything short of active drops the key so the next check asks Stripe.
	var err error
	if active {
		err = h.Cache.Set(ctx, cacheKey(customerID), "1", ttl)
	} else {
		err = h.Cache.Delete(ctx, cacheKey(customerID))
	}
	if err != nil {
		logger.From(ctx).Warn("subscription cache write failed", "customer_id", customerID, "err", err)
	}
}

type planUpdate struct {
	plan   *string
	active bool
}

// planChange maps a subscription event to the organizations.plan write.
// Transitional states (past_due, incomplete, paused) leave the plan alone.
func planChange(t stripe.EventType, sub *stripe.Subscription) (planUpdate, bool) {
	if t == stripe.EventTypeCustomerSubscriptionDeleted {
		return planUpdate{}, true
	}
	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		name := PlanFromSubscription(sub)
		if name == "" {
			return planUpdate{}, false
		}
		return planUpdate{plan: &name, active: sub.Status == stripe.SubscriptionStatusActive}, true
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncompleteExpired:
		return planUpdate{}, true
	default:
		return planUpdate{}, false
	}
}

// PlanFromSubscription returns the plan name of the first item that carries
// one: the price lookup key, else the product's "plan" metadata.
func PlanFromSubscription(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil {
		return ""
	}
	for _, item := range sub.Items.Data {
		if item == nil || item.Price == nil {
			continue
		}
		if item.Price.LookupKey != "" {
			return item.Price.LookupKey
		}
		if p := item.Price.Product; p != nil && p.Metadata["plan"] != "" {
			return p.Metadata["plan"]
		}
	}
	return ""
}

func derefPlan(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
