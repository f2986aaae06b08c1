package cache

import (
	"context"
	"fmt"
	"time"

	"gym-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

const (
	// RecordStatsKey caches the member-record aggregate stats.
	RecordStatsKey = "member-records:stats"
	statsTTL       = 60 * time.Second
)

var client *redis.Client

// Init initializes the Redis connection. The cache is optional: on failure the
// client stays nil and every helper degrades to a miss.
func Init(cfg *config.Config) error {
	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetStats returns the cached stats JSON, if present.
func GetStats(ctx context.Context) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, RecordStatsKey).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetStats caches the stats JSON for one minute.
func SetStats(ctx context.Context, data []byte) {
	if client == nil {
		return
	}
	client.Set(ctx, RecordStatsKey, data, statsTTL)
}

// InvalidateStats drops the cached stats. Called on every ledger mutation.
func InvalidateStats(ctx context.Context) {
	if client == nil {
		return
	}
	client.Del(ctx, RecordStatsKey)
}
