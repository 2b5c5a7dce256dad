package billing

import (
	"context"
	"time"

	"voiceagent-platform/internal/access"
	"voiceagent-platform/pkg/logger"
)

const DefaultCacheTTL = 5 * time.Minute

// Cache is the small key/value surface the subscription cache needs.
// utils.RedisCache satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedSubscriptions is a read-through cache in front of another checker.
// Only answers are cached; errors from the underlying checker never are.
type CachedSubscriptions struct {
	Next  access.SubscriptionChecker
	Cache Cache
	TTL   time.Duration
}

func cacheKey(customerID string) string {
	return "billing:subscription_active:" + customerID
}

func (c *CachedSubscriptions) HasActiveSubscription(ctx context.Context, customerID string) (bool, error) {
	if c.Cache == nil {
		return c.Next.HasActiveSubscription(ctx, customerID)
	}
	log := logger.From(ctx)
	key := cacheKey(customerID)

	v, ok, err := c.Cache.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn("subscription cache read failed", "customer_id", customerID, "err", err)
	case ok:
		return v == "1", nil
	}

	active, err := c.Next.HasActiveSubscription(ctx, customerID)
	if err != nil {
		return false, err
	}

	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	val := "0"
	if active {
		val = "1"
	}
	if err := c.Cache.Set(ctx, key, val, ttl); err != nil {
		log.Warn("subscription cache write failed", "customer_id", customerID, "err", err)
	}
	return active, nil
}
