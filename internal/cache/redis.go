package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/skyseat/config"
	"github.com/Domenick1991/skyseat/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps read copies of schedules. It is never consulted when
// reserving seats.
type RedisCache struct {
	client      *redis.Client
	scheduleTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, scheduleTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		scheduleTTL: scheduleTTL,
	}
}

// GetSchedule returns nil, nil on a miss.
func (c *RedisCache) GetSchedule(ctx context.Context, id int64) (*domain.Schedule, error) {
	data, err := c.client.Get(ctx, scheduleKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var schedule domain.Schedule
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (c *RedisCache) SetSchedule(ctx context.Context, schedule *domain.Schedule) error {
	payload, err := json.Marshal(schedule)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, scheduleKey(schedule.ID), payload, c.scheduleTTL).Err()
}

func (c *RedisCache) InvalidateSchedule(ctx context.Context, id int64) error {
	return c.client.Del(ctx, scheduleKey(id)).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func scheduleKey(id int64) string {
	return fmt.Sprintf("cache:schedule:%d", id)
}
