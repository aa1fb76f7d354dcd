package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourorg/quote-vault/internal/config"
	"github.com/yourorg/quote-vault/internal/metrics"
	"github.com/yourorg/quote-vault/internal/model"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyPrefix = "quote-vault:history:"

// HistoryCache keeps recently fetched histories so repeated requests do not spend quota
type HistoryCache interface {
	Get(ctx context.Context, key string) (*model.AssetHistory, bool, error)
	Set(ctx context.Context, key string, history *model.AssetHistory) error
}

// RedisClient is the subset of *redis.Client the cache uses
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Key derives a stable cache key from request parameters
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// RedisHistoryCache stores histories as JSON in Redis
type RedisHistoryCache struct {
	client RedisClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisHistoryCache creates a new Redis backed history cache
func NewRedisHistoryCache(client RedisClient, ttl time.Duration, logger *zap.Logger) *RedisHistoryCache {
	return &RedisHistoryCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached history for key, if any
func (c *RedisHistoryCache) Get(ctx context.Context, key string) (*model.AssetHistory, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheLookup(false)
			return nil, false, nil
		}
		c.logger.Error("Failed to read history cache", zap.String("cache_key", key), zap.Error(err))
		return nil, false, err
	}

	var history model.AssetHistory
	if err := json.Unmarshal(data, &history); err != nil {
		c.logger.Warn("Discarding undecodable cache entry", zap.String("cache_key", key), zap.Error(err))
		metrics.RecordCacheLookup(false)
		return nil, false, nil
	}

	metrics.RecordCacheLookup(true)
	c.logger.Debug("Cache hit", zap.String("cache_key", key))
	return &history, true, nil
}

// Set stores history under key for the configured TTL
func (c *RedisHistoryCache) Set(ctx context.Context, key string, history *model.AssetHistory) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("Failed to write history cache", zap.String("cache_key", key), zap.Error(err))
		return err
	}
	return nil
}

// NopHistoryCache never holds anything
type NopHistoryCache struct{}

func (NopHistoryCache) Get(ctx context.Context, key string) (*model.AssetHistory, bool, error) {
	return nil, false, nil
}

func (NopHistoryCache) Set(ctx context.Context, key string, history *model.AssetHistory) error {
	return nil
}

// Connect creates a Redis client and verifies it responds
func Connect(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", zap.Error(err))
		client.Close()
		return nil, err
	}

	logger.Info("Connected to Redis", zap.String("addr", cfg.Addr))
	return client, nil
}
