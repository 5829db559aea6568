// Package cache keeps a short-lived copy of the dashboard so repeated page
// loads do not re-run the aggregate queries.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"repair-desk/internal/core"

	"github.com/redis/go-redis/v9"
)

const dashboardKey = "repairdesk:dashboard"

// DashboardCache stores the latest dashboard snapshot. Load reports false on a miss.
type DashboardCache interface {
	Load(ctx context.Context) (*core.Dashboard, bool, error)
	Store(ctx context.Context, d *core.Dashboard) error
	Invalidate(ctx context.Context) error
}

// Redis is a DashboardCache backed by a Redis key with a TTL.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis { return &Redis{rdb: rdb, ttl: ttl} }

// Connect parses url (redis://...), pings the server and returns the client.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rdb, nil
}

func (c *Redis) Load(ctx context.Context) (*core.Dashboard, bool, error) {
	b, err := c.rdb.Get(ctx, dashboardKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read dashboard cache: %w", err)
	}
	var d core.Dashboard
	if err := json.Unmarshal(b, &d); err != nil {
		// A snapshot from an older build; treat as a miss.
		return nil, false, nil
	}
	return &d, true, nil
}

func (c *Redis) Store(ctx context.Context, d *core.Dashboard) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard: %w", err)
	}
	return c.rdb.Set(ctx, dashboardKey, b, c.ttl).Err()
}

func (c *Redis) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, dashboardKey).Err()
}

// Nop never hits. It is used when REDIS_URL is unset or the TTL is zero.
type Nop struct{}

func (Nop) Load(context.Context) (*core.Dashboard, bool, error) { return nil, false, nil }
func (Nop) Store(context.Context, *core.Dashboard) error       { return nil }
func (Nop) Invalidate(context.Context) error                    { return nil }
