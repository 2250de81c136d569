// Package storage provides the redis-backed snapshot cache: the last
// successful board fetch per project, used to warm-start the engine before
// the first fetch completes.
package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"board-sync/domain"
)

// Cache persists board snapshots in Redis with a bounded TTL. All methods are
// best-effort: cache errors degrade to a miss and evict the corrupt entry,
// they never fail the caller.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a snapshot cache using the provided Redis client and TTL.
// A zero TTL disables writes.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{redis: client, ttl: ttl}
}

// LoadTasks returns the cached snapshot for the project, reporting a miss
// when none exists or the payload does not decode.
func (c *Cache) LoadTasks(ctx context.Context, projectID string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, snapshotKey(projectID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, snapshotKey(projectID)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, snapshotKey(projectID)).Err()
		return nil, false
	}
	return tasks, true
}

// StoreTasks persists the snapshot for the project.
func (c *Cache) StoreTasks(ctx context.Context, projectID string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, snapshotKey(projectID), data, c.ttl).Err()
}

// Evict removes the project's snapshot so stale state cannot resurrect a
// board the server no longer agrees with.
func (c *Cache) Evict(ctx context.Context, projectID string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, snapshotKey(projectID)).Err()
}

func snapshotKey(projectID string) string {
	return "board:" + projectID
}
