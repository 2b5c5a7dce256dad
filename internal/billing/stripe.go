package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

var ErrNotConfigured = errors.New("billing: stripe not configured")

// StripeSubscriptions answers subscription checks against the Stripe API.
type StripeSubscriptions struct {
	API *client.API
}

// NewStripeSubscriptions returns nil when no secret key is configured so the
// caller can leave the access gate without a checker.
func NewStripeSubscriptions(secretKey string, backends *stripe.Backends) *StripeSubscriptions {
	if secretKey == "" {
		return nil
	}
	return &StripeSubscriptions{API: client.New(secretKey, backends)}
}

func (s *StripeSubscriptions) HasActiveSubscription(ctx context.Context, customerID string) (bool, error) {
	if s == nil || s.API == nil {
		return false, ErrNotConfigured
	}
	if customerID == "" {
		return false, fmt.Errorf("billing: customer id is required")
	}

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := s.API.Subscriptions.List(params)
	found := false
	for iter.Next() {
		if iter.Subscription().Status == stripe.SubscriptionStatusActive {
			found = true
			break
		}
	}
	if err := iter.Err(); err != nil {
		return false, fmt.Errorf("billing: list subscriptions: %w", err)
	}
	return found, nil
}
