// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"revline/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient is the generic cache client (caller context, conversations).
	CacheClient *redis.Client
	// UsageCacheClient is the dedicated client for billing usage counters.
	UsageCacheClient *redis.Client
)

// InitCache initializes the generic Redis cache client.
func InitCache() {
	CacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := CacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Cache): %v", err)
	}
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// InitUsageCache initializes the Redis client for billing usage counters.
func InitUsageCache() {
	UsageCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisUsageDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := UsageCacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Usage): %v", err)
	}
}

// GetUsageCacheClient returns the Redis client for billing usage counters.
func GetUsageCacheClient() *redis.Client {
	if UsageCacheClient == nil {
		InitUsageCache()
	}
	return UsageCacheClient
}

// InitRedis initializes all Redis clients up front.
func InitRedis() {
	InitCache()
	InitUsageCache()
}
