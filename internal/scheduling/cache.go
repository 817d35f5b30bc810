package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/careops/platform/pkg/logging"
)

// SlotCache memoizes resolved slot lists in Redis. Entries are keyed by a
// per-(workspace, date) version counter, so invalidation is a single INCR
// and stale generations age out via TTL.
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewSlotCache creates a cache. A nil client disables caching entirely.
func NewSlotCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *SlotCache {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SlotCache{client: client, ttl: ttl, logger: logger}
}

// Enabled reports whether a Redis client is attached.
func (c *SlotCache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *SlotCache) versionKey(workspaceID, date string) string {
	return fmt.Sprintf("careops:slotver:%s:%s", workspaceID, date)
}

func (c *SlotCache) slotKey(ctx context.Context, workspaceID, serviceID, date string) (string, error) {
	version, err := c.client.Get(ctx, c.versionKey(workspaceID, date)).Result()
	if err == redis.Nil {
		version = "0"
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("careops:slots:%s:%s:%s:v%s", workspaceID, date, serviceID, version), nil
}

// Get returns the cached slot list, or ok=false on miss or any Redis error.
func (c *SlotCache) Get(ctx context.Context, workspaceID, serviceID, date string) ([]string, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key, err := c.slotKey(ctx, workspaceID, serviceID, date)
	if err != nil {
		c.logger.Warn("slot cache unavailable", "error", err)
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("slot cache read failed", "error", err)
		}
		return nil, false
	}
	var slots []string
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false
	}
	return slots, true
}

// Set stores the slot list under the current version.
func (c *SlotCache) Set(ctx context.Context, workspaceID, serviceID, date string, slots []string) {
	if !c.Enabled() {
		return
	}
	key, err := c.slotKey(ctx, workspaceID, serviceID, date)
	if err != nil {
		return
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("slot cache write failed", "error", err)
	}
}

// Invalidate bumps the version for everything cached on (workspace, date).
// Called after any booking write that changes contention.
func (c *SlotCache) Invalidate(ctx context.Context, workspaceID, date string) {
	if !c.Enabled() {
		return
	}
	key := c.versionKey(workspaceID, date)
	if err := c.client.Incr(ctx, key).Err(); err != nil {
		c.logger.Warn("slot cache invalidation failed", "error", err)
		return
	}
	// Bound the counter's lifetime alongside the entries it guards.
	c.client.Expire(ctx, key, 24*time.Hour)
}
