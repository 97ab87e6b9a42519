package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestTokenRepository(t *testing.T) {
	mr, rdb := setupMiniRedis(t)
	repo := NewTokenRepository(rdb)
	ctx := context.Background()

	_, err := repo.GetUserToken(ctx, 1)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, repo.AddUserToken(ctx, 1, "tok"))
	got, err := repo.GetUserToken(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	mr.FastForward(20 * time.Minute)
	require.NoError(t, repo.ExtendUserToken(ctx, 1))
	mr.FastForward(20 * time.Minute)
	_, err = repo.GetUserToken(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteUserToken(ctx, 1))
	_, err = repo.GetUserToken(ctx, 1)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestDistLock(t *testing.T) {
	mr, rdb := setupMiniRedis(t)
	lock := NewDistLock(rdb, time.Second)
	ctx := context.Background()

	ok, err := lock.Acquire(ctx, "vote:1:p1", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.Acquire(ctx, "vote:1:p1", "b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx, "vote:1:p1", "b"))
	assert.True(t, mr.Exists(LockKeyPrefix+"vote:1:p1"))

	require.NoError(t, lock.Release(ctx, "vote:1:p1", "a"))
	assert.False(t, mr.Exists(LockKeyPrefix+"vote:1:p1"))

	ok, err = lock.Acquire(ctx, "vote:1:p1", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)
	ok, err = lock.Acquire(ctx, "vote:1:p1", "c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVoteCacheRepository(t *testing.T) {
	_, rdb := setupMiniRedis(t)
	cache := NewVoteCacheRepository(rdb)
	ctx := context.Background()

	_, hit, err := cache.GetVoteStatus(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, hit)

	ok, err := cache.StoreVoteStatus(ctx, "p1", 6, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	// 旧快照晚到，不能覆盖较新的值
	ok, err = cache.StoreVoteStatus(ctx, "p1", 5, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = cache.StoreVoteStatus(ctx, "p1", 5, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	v, hit, err := cache.GetVoteStatus(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(6), v)

	ok, err = cache.StoreVoteStatus(ctx, "p1", 7, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	v, _, err = cache.GetVoteStatus(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	require.NoError(t, cache.DeleteVoteStatus(ctx, "p1"))
	_, hit, err = cache.GetVoteStatus(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestEmailCodeRepository(t *testing.T) {
	mr, rdb := setupMiniRedis(t)
	repo := NewEmailCodeRepository(rdb)
	ctx := context.Background()

	ok, err := repo.Consume(ctx, "verify", "a@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.SetPending(ctx, "verify", "a@example.com", "123456"))
	ok, err = repo.Consume(ctx, "verify", "a@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok, "pending code is not usable before the mail is sent")

	require.NoError(t, repo.Confirm(ctx, "verify", "a@example.com"))
	assert.False(t, mr.Exists("email:code:verify:pending:a@example.com"))

	ok, err = repo.Consume(ctx, "reset", "a@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Consume(ctx, "verify", "a@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Consume(ctx, "verify", "a@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok, "code is single use")
}

func TestEmailCodeRepository_AttemptLimit(t *testing.T) {
	mr, rdb := setupMiniRedis(t)
	repo := NewEmailCodeRepository(rdb)
	ctx := context.Background()

	require.NoError(t, repo.SetPending(ctx, "verify", "a@example.com", "123456"))
	require.NoError(t, repo.Confirm(ctx, "verify", "a@example.com"))

	for i := 0; i < MaxCodeAttempts; i++ {
		ok, err := repo.Consume(ctx, "verify", "a@example.com", "000000")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.False(t, mr.Exists("email:code:verify:confirmed:a@example.com"))

	ok, err := repo.Consume(ctx, "verify", "a@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Error(t, repo.Confirm(ctx, "verify", "a@example.com"))
}
