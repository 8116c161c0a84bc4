package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

const (
	timelineKeyFmt = "rental:%d:timeline:v%d"
	versionKeyFmt  = "rental:%d:timeline:version"
)

// Options configures the redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// TimelineCache keeps serialized rental timelines in redis. A nil client
// turns every call into a miss so the service keeps working without redis.
type TimelineCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect pings redis and falls back to a disabled cache when it is unreachable.
func Connect(ctx context.Context, opts Options) *TimelineCache {
	if opts.Addr == "" {
		return NewTimelineCache(nil, opts.TTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, timeline cache disabled", "addr", opts.Addr, "error", err)
		client.Close()
		return NewTimelineCache(nil, opts.TTL)
	}
	return NewTimelineCache(client, opts.TTL)
}

func NewTimelineCache(client *redis.Client, ttl time.Duration) *TimelineCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TimelineCache{client: client, ttl: ttl}
}

func (c *TimelineCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Load returns the rental's timeline from the cache, calling fetch on a miss.
// Entries are keyed by a per-rental version that Invalidate bumps, so a
// result fetched before a concurrent invalidation is written under the old
// version and never served again.
func (c *TimelineCache) Load(ctx context.Context, rentalID int32, fetch func(ctx context.Context) ([]domain.TimelineEvent, error)) ([]domain.TimelineEvent, bool, error) {
	if !c.Enabled() {
		events, err := fetch(ctx)
		return events, false, err
	}

	version, err := c.version(ctx, rentalID)
	if err != nil {
		logger.Warn("Timeline cache version read failed", "rentalID", rentalID, "error", err)
		events, err := fetch(ctx)
		return events, false, err
	}

	key := fmt.Sprintf(timelineKeyFmt, rentalID, version)
	if events, ok := c.get(ctx, key); ok {
		return events, true, nil
	}

	events, err := fetch(ctx)
	if err != nil {
		return nil, false, err
	}
	c.set(ctx, key, events)
	return events, false, nil
}

func (c *TimelineCache) version(ctx context.Context, rentalID int32) (int64, error) {
	v, err := c.client.Get(ctx, fmt.Sprintf(versionKeyFmt, rentalID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *TimelineCache) get(ctx context.Context, key string) ([]domain.TimelineEvent, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Timeline cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var events []domain.TimelineEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, false
	}
	return events, true
}

func (c *TimelineCache) set(ctx context.Context, key string, events []domain.TimelineEvent) {
	data, err := json.Marshal(events)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("Timeline cache write failed", "key", key, "error", err)
	}
}

// Invalidate bumps the version of the given rentals. Entries cached under an
// older version expire on their own.
func (c *TimelineCache) Invalidate(ctx context.Context, rentalIDs ...int32) {
	if !c.Enabled() || len(rentalIDs) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range rentalIDs {
			pipe.Incr(ctx, fmt.Sprintf(versionKeyFmt, id))
		}
		return nil
	})
	if err != nil {
		logger.Warn("Timeline cache invalidation failed", "rentals", rentalIDs, "error", err)
	}
}

func (c *TimelineCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
