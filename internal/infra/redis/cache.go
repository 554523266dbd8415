package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/acme/counsel-crm/internal/domain"
)

// DashboardCache keeps assembled dashboard payloads in Redis for the span
// of one client poll interval. A miss or a Redis error is always treated as
// "not cached": the dashboard recomputes rather than fails.
type DashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDashboardCache constructs a cache with the given TTL.
func NewDashboardCache(client *redis.Client, ttl time.Duration) *DashboardCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &DashboardCache{client: client, ttl: ttl}
}

// Get returns the cached payload for an owner, if present.
func (c *DashboardCache) Get(ctx context.Context, ownerID uuid.UUID) (*domain.DashboardPayload, bool) {
	raw, err := c.client.Get(ctx, c.key(ownerID)).Bytes()
	if err != nil {
		return nil, false
	}
	var payload domain.DashboardPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false
	}
	return &payload, true
}

// Set stores the payload under the owner key.
func (c *DashboardCache) Set(ctx context.Context, ownerID uuid.UUID, payload *domain.DashboardPayload) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(ownerID), raw, c.ttl)
}

// Invalidate drops the owner's cached payload after a mutation.
func (c *DashboardCache) Invalidate(ctx context.Context, ownerID uuid.UUID) {
	c.client.Del(ctx, c.key(ownerID))
}

func (c *DashboardCache) key(ownerID uuid.UUID) string {
	return fmt.Sprintf("counsel:dashboard:%s", ownerID.String())
}
