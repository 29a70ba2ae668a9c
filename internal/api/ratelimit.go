// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCounter is an httprate.LimitCounter keeping sliding window
// counts in redis so replicas share one rate budget.
type redisCounter struct {
	client *redis.Client
	window time.Duration
}

func newRedisCounter(client *redis.Client) *redisCounter {
	return &redisCounter{client: client}
}

func (c *redisCounter) Config(_ int, windowLength time.Duration) {
	c.window = windowLength
}

func (c *redisCounter) key(key string, window time.Time) string {
	return fmt.Sprintf("kvm48:ratelimit:%s:%d", key, window.Unix())
}

func (c *redisCounter) Increment(key string, currentWindow time.Time) error {
	return c.IncrementBy(key, currentWindow, 1)
}

func (c *redisCounter) IncrementBy(key string, currentWindow time.Time, amount int) error {
	ctx := context.Background()
	k := c.key(key, currentWindow)
	pipe := c.client.TxPipeline()
	pipe.IncrBy(ctx, k, int64(amount))
	// Keep the previous window readable for the sliding computation,
	// then let redis reap the key.
	pipe.Expire(ctx, k, c.window*3)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCounter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	ctx := context.Background()
	values, err := c.client.MGet(ctx,
		c.key(key, currentWindow), c.key(key, previousWindow)).Result()
	if err != nil {
		return 0, 0, err
	}
	return counterValue(values[0]), counterValue(values[1]), nil
}

func counterValue(v any) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
