package credits

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// BalanceCache is a read-through cache for the display path only. The value
// may lag behind the store briefly; every mutation invalidates it. A nil
// receiver or nil client degrades to direct reads.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBalanceCache creates a balance cache. client may be nil.
func NewBalanceCache(client *redis.Client, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &BalanceCache{client: client, ttl: ttl}
}

func cacheKey(tenantID uuid.UUID) string {
	return "credits:account:" + tenantID.String()
}

// Get returns the cached account if present.
func (c *BalanceCache) Get(ctx context.Context, tenantID uuid.UUID) (*Account, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, cacheKey(tenantID)).Bytes()
	if err != nil {
		return nil, false
	}

	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, false
	}
	return &acct, true
}

// Set stores an account snapshot.
func (c *BalanceCache) Set(ctx context.Context, acct *Account) {
	if c == nil || c.client == nil || acct == nil {
		return
	}

	data, err := json.Marshal(acct)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, cacheKey(acct.TenantID), data, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Msg("balance cache set failed")
	}
}

// Invalidate drops the cached snapshot after a mutation.
func (c *BalanceCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}

	if err := c.client.Del(ctx, cacheKey(tenantID)).Err(); err != nil {
		log.Debug().Err(err).Msg("balance cache invalidate failed")
	}
}
