package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskboard-api/domain"
)

type backend interface {
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListColumn(ctx context.Context, col domain.ColumnID) ([]domain.Task, error)
	InsertTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, t domain.Task) error
	DeleteTask(ctx context.Context, id string) error
	DeleteAllTasks(ctx context.Context) error
}

// Cache wraps a Storage instance with Redis-backed caching of column reads.
// Every task mutation evicts the board's column keys, so reconciliation
// reads always see the backing store after a write. Redis failures fall
// back to the backing store without failing the request.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
	board string
}

// NewCache creates a caching wrapper around base using the provided Redis
// client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration, board string) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	c := &Cache{base: base, redis: client, ttl: ttl, board: board}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) ListColumn(ctx context.Context, col domain.ColumnID) ([]domain.Task, error) {
	if tasks, ok := c.loadColumn(ctx, col); ok {
		return tasks, nil
	}
	tasks, err := c.base.ListColumn(ctx, col)
	if err != nil {
		return nil, err
	}
	c.storeColumn(ctx, col, tasks)
	return tasks, nil
}

func (c *Cache) InsertTask(ctx context.Context, t domain.Task) error {
	if err := c.base.InsertTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, t domain.Task) error {
	if err := c.base.UpdateTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, id string) error {
	if err := c.base.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) DeleteAllTasks(ctx context.Context) error {
	if err := c.base.DeleteAllTasks(ctx); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *Cache) loadColumn(ctx context.Context, col domain.ColumnID) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, c.columnKey(col)).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, c.columnKey(col)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, c.columnKey(col)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeColumn(ctx context.Context, col domain.ColumnID, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, c.columnKey(col), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	keys := make([]string, 0, 3)
	for _, col := range domain.Columns() {
		keys = append(keys, c.columnKey(col.ID))
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func (c *Cache) columnKey(col domain.ColumnID) string {
	return "board:" + c.board + ":column:" + string(col)
}
