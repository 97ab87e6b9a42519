package service

import (
	"context"
	"fmt"

	"Med_Community/internal/model"

	"github.com/google/uuid"
)

func voteGuardKey(userID uint64, postID string) string {
	return fmt.Sprintf("vote:%d:%s", userID, postID)
}

func memberGuardKey(userID uint64, communityID string) string {
	return fmt.Sprintf("member:%d:%s", userID, communityID)
}

func createGuardKey(name string) string {
	return "create:" + name
}

// withGuard 拿不到锁直接返回 ErrInFlight，不进入账本；成功失败都释放
func withGuard(ctx context.Context, g Guard, key string, fn func() error) error {
	if g == nil {
		return fn()
	}
	token := uuid.NewString()
	ok, err := g.Acquire(ctx, key, token)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return model.ErrInFlight
	}
	defer func() {
		_ = g.Release(context.WithoutCancel(ctx), key, token)
	}()
	return fn()
}
