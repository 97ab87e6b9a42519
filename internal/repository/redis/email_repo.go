package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultEmailCodeTTL = 5 * time.Minute
	EmailCodePrefix     = "email:code"
	MaxCodeAttempts     = 5

	// 两阶段键
	PendingSuffix   = "pending"
	ConfirmedSuffix = "confirmed"
	attemptsSuffix  = "attempts"
)

var (
	ErrCodePendingFailed   = errors.New("code pending failed")
	ErrCodeConfirmedFailed = errors.New("code confirmed failed")
	ErrEmailCodeDelFailed  = errors.New("email code delete failed")
)

// 取值+写入目标+设置 TTL+删除源
var confirmScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then
  return 0
end
redis.call("SET", KEYS[2], val, "PX", ARGV[1])
redis.call("DEL", KEYS[1])
redis.call("DEL", KEYS[3])
return 1
`)

// 匹配则删除并返回 1；不匹配累加失败次数，超过上限删除验证码
var consumeScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then
  return -1
end
if val == ARGV[1] then
  redis.call("DEL", KEYS[1], KEYS[2])
  return 1
end
local n = redis.call("INCR", KEYS[2])
redis.call("PEXPIRE", KEYS[2], ARGV[2])
if n >= tonumber(ARGV[3]) then
  redis.call("DEL", KEYS[1], KEYS[2])
end
return 0
`)

// EmailCodeRepository 邮箱验证码，scope 区分用途（verify / reset）
type EmailCodeRepository struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewEmailCodeRepository(rdb *redis.Client) *EmailCodeRepository {
	return &EmailCodeRepository{RDB: rdb, TTL: DefaultEmailCodeTTL}
}

func codeKey(scope, stage, email string) string {
	return fmt.Sprintf("%s:%s:%s:%s", EmailCodePrefix, scope, stage, email)
}

func (r *EmailCodeRepository) SetPending(ctx context.Context, scope, email, code string) error {
	if err := r.RDB.Set(ctx, codeKey(scope, PendingSuffix, email), code, r.TTL).Err(); err != nil {
		return ErrCodePendingFailed
	}
	return nil
}

// Confirm 邮件发出后把 pending 转为 confirmed，同时清零失败次数
func (r *EmailCodeRepository) Confirm(ctx context.Context, scope, email string) error {
	keys := []string{
		codeKey(scope, PendingSuffix, email),
		codeKey(scope, ConfirmedSuffix, email),
		codeKey(scope, attemptsSuffix, email),
	}
	ok, err := confirmScript.Run(ctx, r.RDB, keys, r.TTL.Milliseconds()).Int()
	if err != nil || ok != 1 {
		return ErrCodeConfirmedFailed
	}
	return nil
}

// DeletePending 删除 pending 键（幂等）
func (r *EmailCodeRepository) DeletePending(ctx context.Context, scope, email string) error {
	if err := r.RDB.Del(ctx, codeKey(scope, PendingSuffix, email)).Err(); err != nil {
		return ErrEmailCodeDelFailed
	}
	return nil
}

// Consume 校验并一次性删除；验证码不存在或已过期返回 false
func (r *EmailCodeRepository) Consume(ctx context.Context, scope, email, code string) (bool, error) {
	keys := []string{
		codeKey(scope, ConfirmedSuffix, email),
		codeKey(scope, attemptsSuffix, email),
	}
	res, err := consumeScript.Run(ctx, r.RDB, keys, code, r.TTL.Milliseconds(), MaxCodeAttempts).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
