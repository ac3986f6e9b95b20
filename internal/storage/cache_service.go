package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wallet-finder/internal/models"
	"github.com/wallet-finder/internal/types"
)

// CacheService provides high-level caching for the wallet finder: the
// latest scan result per user (so the display survives reconnects) and the
// admin key listing, invalidated on key writes.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{redis: redis, ttl: ttl}
}

const keyListCacheKey = "keys:all"

func lastResultKey(userID int64) string {
	return fmt.Sprintf("scan:last:%d", userID)
}

// SetLastResult caches a user's most recent scanner hit
func (c *CacheService) SetLastResult(ctx context.Context, userID int64, result *types.WalletResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal scan result: %w", err)
	}
	return c.redis.Set(ctx, lastResultKey(userID), data, c.ttl)
}

// GetLastResult returns a user's cached scanner hit, or nil on a miss
func (c *CacheService) GetLastResult(ctx context.Context, userID int64) (*types.WalletResult, error) {
	data, err := c.redis.Get(ctx, lastResultKey(userID))
	if err != nil {
		if IsMiss(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached scan result: %w", err)
	}

	var result types.WalletResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached scan result: %w", err)
	}
	return &result, nil
}

// SetKeyList caches the joined key listing
func (c *CacheService) SetKeyList(ctx context.Context, list []*models.KeyWithUser) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal key list: %w", err)
	}
	return c.redis.Set(ctx, keyListCacheKey, data, c.ttl)
}

// GetKeyList returns the cached key listing, or nil on a miss
func (c *CacheService) GetKeyList(ctx context.Context) ([]*models.KeyWithUser, error) {
	data, err := c.redis.Get(ctx, keyListCacheKey)
	if err != nil {
		if IsMiss(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached key list: %w", err)
	}

	var list []*models.KeyWithUser
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached key list: %w", err)
	}
	return list, nil
}

// InvalidateKeyList drops the cached key listing after a key write
func (c *CacheService) InvalidateKeyList(ctx context.Context) error {
	return c.redis.Del(ctx, keyListCacheKey)
}
