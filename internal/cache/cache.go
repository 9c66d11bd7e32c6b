// Package cache provides a read-through Redis cache for farm settings.
// Device polling hits the settings row on every request for the key check;
// the cache keeps that off the primary database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kasetlab/farmhub/internal/config"
	"github.com/kasetlab/farmhub/internal/models"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

type SettingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSettingsCache(cfg config.RedisConfig) *SettingsCache {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &SettingsCache{
		client: client,
		ttl:    cfg.CacheTTL,
	}
}

func (c *SettingsCache) key(farmID string) string {
	return "farmhub:settings:" + farmID
}

// Get returns the cached settings for a farm, or nil on miss. Cache errors
// degrade to a miss; the caller falls back to the database.
func (c *SettingsCache) Get(ctx context.Context, farmID string) *models.FarmSetting {
	data, err := c.client.Get(ctx, c.key(farmID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			nuts.L.Warnf("[SettingsCache] Get failed for farm %s: %v", farmID, err)
		}
		return nil
	}

	setting := &models.FarmSetting{}
	if err := json.Unmarshal(data, setting); err != nil {
		nuts.L.Warnf("[SettingsCache] Corrupt cache entry for farm %s: %v", farmID, err)
		c.Invalidate(ctx, farmID)
		return nil
	}
	return setting
}

func (c *SettingsCache) Set(ctx context.Context, setting *models.FarmSetting) {
	data, err := json.Marshal(setting)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(setting.FarmID), data, c.ttl).Err(); err != nil {
		nuts.L.Warnf("[SettingsCache] Set failed for farm %s: %v", setting.FarmID, err)
	}
}

// Invalidate drops the cached entry after any settings mutation or key claim
func (c *SettingsCache) Invalidate(ctx context.Context, farmID string) {
	if err := c.client.Del(ctx, c.key(farmID)).Err(); err != nil {
		nuts.L.Warnf("[SettingsCache] Invalidate failed for farm %s: %v", farmID, err)
	}
}

func (c *SettingsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *SettingsCache) Close() error {
	return c.client.Close()
}
