package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	models "arbor/internal/domain/models/tree"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "arbor:tree"

// RedisCache implements SubtreeCache on Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a new Redis-backed cache
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Ping verifies the server is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func generationKey(tenantID string) string {
	return fmt.Sprintf("%s:gen:%s", keyPrefix, tenantID)
}

func subtreeKey(tenantID string, gen int64, nodeID string) string {
	return fmt.Sprintf("%s:%s:%d:%s", keyPrefix, tenantID, gen, nodeID)
}

func (c *RedisCache) generation(ctx context.Context, tenantID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(tenantID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GetSubtree reads the generation and the entry under it. The generation
// is returned as -1 when it could not be read, so SetSubtree skips the write.
func (c *RedisCache) GetSubtree(ctx context.Context, tenantID, nodeID string) ([]models.SubtreeNode, int64, bool) {
	gen, err := c.generation(ctx, tenantID)
	if err != nil {
		c.logger.Warn("subtree cache generation read failed", "tenant_id", tenantID, "error", err)
		return nil, -1, false
	}

	data, err := c.client.Get(ctx, subtreeKey(tenantID, gen, nodeID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("subtree cache read failed", "tenant_id", tenantID, "node_id", nodeID, "error", err)
		}
		return nil, gen, false
	}

	var rows []models.SubtreeNode
	if err := json.Unmarshal(data, &rows); err != nil {
		c.logger.Warn("subtree cache entry corrupt", "tenant_id", tenantID, "node_id", nodeID, "error", err)
		return nil, gen, false
	}

	return rows, gen, true
}

func (c *RedisCache) SetSubtree(ctx context.Context, tenantID, nodeID string, gen int64, rows []models.SubtreeNode) {
	if gen < 0 {
		return
	}

	data, err := json.Marshal(rows)
	if err != nil {
		c.logger.Warn("subtree cache encode failed", "tenant_id", tenantID, "node_id", nodeID, "error", err)
		return
	}

	if err := c.client.Set(ctx, subtreeKey(tenantID, gen, nodeID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("subtree cache write failed", "tenant_id", tenantID, "node_id", nodeID, "error", err)
	}
}

func (c *RedisCache) InvalidateTenant(ctx context.Context, tenantID string) {
	if err := c.client.Incr(ctx, generationKey(tenantID)).Err(); err != nil {
		c.logger.Error("subtree cache invalidation failed", "tenant_id", tenantID, "error", err)
	}
}
