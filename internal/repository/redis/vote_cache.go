package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	VoteCntTTL       = 24 * time.Hour
	VoteCntKeyPrefix = "vote:cnt:post:" // 缓存某个帖子的 voteStatus
)

// 缓存存 {s: voteStatus, v: 帖子版本号}，只接受版本更新的写入
var storeScript = redis.NewScript(`
local cur = redis.call("hget", KEYS[1], "v")
if cur and tonumber(cur) >= tonumber(ARGV[2]) then
  return 0
end
redis.call("hset", KEYS[1], "s", ARGV[1], "v", ARGV[2])
redis.call("pexpire", KEYS[1], ARGV[3])
return 1`)

type VoteCacheRepository struct {
	RDB *redis.Client
	ttl time.Duration
}

func NewVoteCacheRepository(rdb *redis.Client) *VoteCacheRepository {
	return &VoteCacheRepository{RDB: rdb, ttl: VoteCntTTL}
}

func voteCntKey(postID string) string {
	return VoteCntKeyPrefix + postID
}

// GetVoteStatus 第二个返回值表示是否命中
func (r *VoteCacheRepository) GetVoteStatus(ctx context.Context, postID string) (int64, bool, error) {
	val, err := r.RDB.HGet(ctx, voteCntKey(postID), "s").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

// StoreVoteStatus 投票提交后和回源回填都走这里。
// 缓存中的版本号不低于 version 时放弃写入，返回 false
func (r *VoteCacheRepository) StoreVoteStatus(ctx context.Context, postID string, status, version int64) (bool, error) {
	n, err := storeScript.Run(ctx, r.RDB, []string{voteCntKey(postID)}, status, version, r.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteVoteStatus 删除计数缓存，delay>0 时再异步删一次，抵消并发回填窗口
func (r *VoteCacheRepository) DeleteVoteStatus(ctx context.Context, postID string, delay ...time.Duration) error {
	key := voteCntKey(postID)
	if err := r.RDB.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if len(delay) > 0 && delay[0] > 0 {
		d := delay[0]
		go func() {
			t := time.NewTimer(d)
			defer t.Stop()
			<-t.C
			_ = r.RDB.Del(context.Background(), key).Err()
		}()
	}
	return nil
}
