package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-finder/internal/models"
	"github.com/wallet-finder/internal/types"
)

func newTestCacheService(t *testing.T) *CacheService {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() }) // nolint:errcheck // test cleanup

	return NewCacheService(NewRedisCacheFromClient(client), time.Minute)
}

func TestCacheLastResultRoundTrip(t *testing.T) {
	cache := newTestCacheService(t)
	ctx := context.Background()

	result := &types.WalletResult{
		Address:   "0x1111111111111111111111111111111111111111",
		Seed:      "abandon ability able about above absent absorb abstract absurd abuse access accident",
		Balance:   "0.5",
		Chain:     types.ChainETH,
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}

	require.NoError(t, cache.SetLastResult(ctx, 42, result))

	got, err := cache.GetLastResult(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, result.Address, got.Address)
	assert.Equal(t, result.Seed, got.Seed)
	assert.Equal(t, result.Chain, got.Chain)
}

func TestCacheLastResultMiss(t *testing.T) {
	cache := newTestCacheService(t)

	got, err := cache.GetLastResult(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheLastResultIsPerUser(t *testing.T) {
	cache := newTestCacheService(t)
	ctx := context.Background()

	require.NoError(t, cache.SetLastResult(ctx, 1, &types.WalletResult{Address: "0xaa", Chain: types.ChainETH}))
	require.NoError(t, cache.SetLastResult(ctx, 2, &types.WalletResult{Address: "0xbb", Chain: types.ChainBNB}))

	got1, err := cache.GetLastResult(ctx, 1)
	require.NoError(t, err)
	got2, err := cache.GetLastResult(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, "0xaa", got1.Address)
	assert.Equal(t, "0xbb", got2.Address)
}

func TestCacheKeyListInvalidation(t *testing.T) {
	cache := newTestCacheService(t)
	ctx := context.Background()

	userID := int64(7)
	list := []*models.KeyWithUser{
		{KeyID: 1, Token: "K1", ExpiresAt: time.Now().Add(time.Hour).UTC(), UserID: &userID},
	}
	require.NoError(t, cache.SetKeyList(ctx, list))

	got, err := cache.GetKeyList(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "K1", got[0].Token)
	require.NotNil(t, got[0].UserID)
	assert.Equal(t, userID, *got[0].UserID)

	require.NoError(t, cache.InvalidateKeyList(ctx))

	got, err = cache.GetKeyList(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
