package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-finder/internal/config"
	"github.com/wallet-finder/internal/types"
)

// setupTestDB connects to the Postgres instance named by the TEST_POSTGRES_*
// environment, skipping when unavailable. Schema must already be migrated.
func setupTestDB(t *testing.T) *PostgresDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("TEST_POSTGRES_HOST") == "" {
		t.Skip("TEST_POSTGRES_HOST not set, skipping integration test")
	}

	db, err := NewPostgresDB(&config.PostgresConfig{
		Host:           os.Getenv("TEST_POSTGRES_HOST"),
		Port:           envOr("TEST_POSTGRES_PORT", "5432"),
		Database:       envOr("TEST_POSTGRES_DB", "wallet_finder_test"),
		User:           envOr("TEST_POSTGRES_USER", "finder"),
		Password:       os.Getenv("TEST_POSTGRES_PASSWORD"),
		MaxConnections: 10,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newTestUser(t *testing.T, users *UserRepository) int64 {
	t.Helper()

	id := time.Now().UnixNano()
	_, err := users.Upsert(context.Background(), id, fmt.Sprintf("user_%d", id))
	require.NoError(t, err)
	return id
}

func TestUserRepositoryLifecycle(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	id := newTestUser(t, users)

	user, err := users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.PlanBasic, user.Plan)
	assert.False(t, user.Banned)
	assert.Zero(t, user.Coins)

	// Upsert again with a new username; plan and coins survive
	require.NoError(t, users.SetPlan(ctx, id, types.PlanPro))
	updated, err := users.Upsert(ctx, id, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Username)
	assert.Equal(t, types.PlanPro, updated.Plan)

	require.NoError(t, users.SetBanned(ctx, id, true))
	user, err = users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, user.Banned)
}

func TestUserRepositoryMissingUser(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	_, err := users.GetByID(ctx, -1)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, users.SetBanned(ctx, -1, true), ErrUserNotFound)
	assert.ErrorIs(t, users.SetPlan(ctx, -1, types.PlanPro), ErrUserNotFound)
}

func TestUserRepositoryPurchasePlan(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	redeemKeys := NewRedeemKeyRepository(db)
	ctx := context.Background()

	userID := newTestUser(t, users)

	// Fund the account through a redeem code, then buy the advanced plan
	token := uuid.NewString()
	_, err := redeemKeys.Create(ctx, token, 1500)
	require.NoError(t, err)
	_, err = redeemKeys.Redeem(ctx, token, userID)
	require.NoError(t, err)

	remaining, err := users.PurchasePlan(ctx, userID, types.PlanAdvanced, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(500), remaining)

	user, err := users.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, types.PlanAdvanced, user.Plan)
	assert.Equal(t, int64(500), user.Coins)

	// The balance no longer covers a second purchase at that price
	_, err = users.PurchasePlan(ctx, userID, types.PlanAdvanced, 1000)
	assert.ErrorIs(t, err, ErrInsufficientCoins)

	_, err = users.PurchasePlan(ctx, -1, types.PlanPro, 300)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestKeyRepositoryMarkUsed(t *testing.T) {
	db := setupTestDB(t)
	keys := NewKeyRepository(db)
	ctx := context.Background()

	token := uuid.NewString()
	_, err := keys.Create(ctx, token, types.PlanPro, time.Now().Add(time.Hour))
	require.NoError(t, err)

	key, err := keys.FindRedeemable(ctx, token)
	require.NoError(t, err)
	assert.False(t, key.Used)

	require.NoError(t, keys.MarkUsed(ctx, token))

	_, err = keys.FindRedeemable(ctx, token)
	assert.ErrorIs(t, err, ErrKeyNotRedeemable)
}

func TestKeyRepositoryCreateAndRedeem(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	keys := NewKeyRepository(db)
	ctx := context.Background()

	userID := newTestUser(t, users)
	token := uuid.NewString()

	key, err := keys.Create(ctx, token, types.PlanAdvanced, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, token, key.Token)
	assert.False(t, key.Used)

	_, err = keys.Create(ctx, token, types.PlanPro, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrKeyExists)

	plan, err := keys.Redeem(ctx, token, userID)
	require.NoError(t, err)
	assert.Equal(t, types.PlanAdvanced, plan)

	user, err := users.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, types.PlanAdvanced, user.Plan)

	_, err = keys.Redeem(ctx, token, userID)
	assert.ErrorIs(t, err, ErrKeyNotRedeemable)
}

func TestKeyRepositoryExpiredKeyNotRedeemable(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	keys := NewKeyRepository(db)
	ctx := context.Background()

	userID := newTestUser(t, users)
	token := uuid.NewString()

	_, err := keys.Create(ctx, token, types.PlanPro, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = keys.Redeem(ctx, token, userID)
	assert.ErrorIs(t, err, ErrKeyNotRedeemable)
}

func TestKeyRepositoryConcurrentRedeem(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	keys := NewKeyRepository(db)
	ctx := context.Background()

	userID := newTestUser(t, users)
	token := uuid.NewString()
	_, err := keys.Create(ctx, token, types.PlanPro, time.Now().Add(time.Hour))
	require.NoError(t, err)

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = keys.Redeem(ctx, token, userID)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.True(t, errors.Is(err, ErrKeyNotRedeemable))
		}
	}
	assert.Equal(t, 1, successes)
}

func TestCreateAndBanRollsBackOnMissingUser(t *testing.T) {
	db := setupTestDB(t)
	keys := NewKeyRepository(db)
	ctx := context.Background()

	token := uuid.NewString()
	_, err := keys.CreateAndBan(ctx, token, types.PlanPro, time.Now().Add(time.Hour), -1)
	assert.ErrorIs(t, err, ErrUserNotFound)

	// The key insert must have rolled back with the failed ban
	_, err = keys.FindRedeemable(ctx, token)
	assert.ErrorIs(t, err, ErrKeyNotRedeemable)
}

func TestRedeemKeyRepositoryCreditsCoins(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	redeemKeys := NewRedeemKeyRepository(db)
	ctx := context.Background()

	userID := newTestUser(t, users)
	token := uuid.NewString()

	_, err := redeemKeys.Create(ctx, token, 500)
	require.NoError(t, err)

	coins, err := redeemKeys.Redeem(ctx, token, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), coins)

	user, err := users.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), user.Coins)
	assert.Equal(t, types.PlanPro, user.Plan)

	_, err = redeemKeys.Redeem(ctx, token, userID)
	assert.ErrorIs(t, err, ErrKeyNotRedeemable)
}
