package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const LockKeyPrefix = "lock:inflight:"

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// DistLock 分布式锁，同一个 key 同时只允许一个请求持有
type DistLock struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewDistLock(rdb *redis.Client, ttl time.Duration) *DistLock {
	return &DistLock{RDB: rdb, TTL: ttl}
}

// Acquire 请求加锁，false 表示已被其他请求持有
func (l *DistLock) Acquire(ctx context.Context, key, token string) (bool, error) {
	return l.RDB.SetNX(ctx, LockKeyPrefix+key, token, l.TTL).Result()
}

// Release 用 lua 保证只删除自己持有的锁
func (l *DistLock) Release(ctx context.Context, key, token string) error {
	_, err := releaseScript.Run(ctx, l.RDB, []string{LockKeyPrefix + key}, token).Result()
	return err
}
