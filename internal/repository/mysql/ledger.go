package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Med_Community/internal/model"
	"Med_Community/internal/pkg"

	"gorm.io/gorm"
)

// ErrStaleWrite 乐观锁版本不匹配，整个事务需要重试
var ErrStaleWrite = errors.New("stale write")

const DefaultMaxAttempts = 5

// Ledger 乐观并发事务执行器：事务函数返回 ErrStaleWrite 时整体重跑
type Ledger struct {
	DB          *gorm.DB
	MaxAttempts int
}

func NewLedger(db *gorm.DB, maxAttempts int) *Ledger {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Ledger{DB: db, MaxAttempts: maxAttempts}
}

// Transact 重试次数用完返回 model.ErrConflict
func (l *Ledger) Transact(ctx context.Context, fn func(tx *gorm.DB) error) error {
	for attempt := 1; attempt <= l.MaxAttempts; attempt++ {
		err := l.DB.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrStaleWrite) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if attempt < l.MaxAttempts {
			pkg.LedgerRetries.Inc()
		}
	}
	pkg.LedgerConflicts.Inc()
	return fmt.Errorf("ledger: %d attempts: %w", l.MaxAttempts, model.ErrConflict)
}

// casUpdate 带版本号的条件更新，0 行受影响说明读到的是旧版本
func casUpdate(tx *gorm.DB, m any, id string, version int64, updates map[string]any) error {
	updates["version"] = gorm.Expr("version + 1")
	res := tx.Model(m).Where("id = ? AND version = ?", id, version).UpdateColumns(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

// staleOnDuplicate 并发插入同一主键时，把唯一键冲突当作读过期处理
func staleOnDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrStaleWrite
	}
	return err
}

// insertOutbox 写 outbox 事件表，与业务写入同一事务
func insertOutbox(tx *gorm.DB, event, aggregateID string, userID uint64, fields map[string]any) error {
	body := map[string]any{
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"event":      event,
		"id":         aggregateID,
		"user_id":    userID,
	}
	for k, v := range fields {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tx.Create(&model.LedgerOutbox{
		EventType:   event,
		AggregateID: aggregateID,
		UserID:      userID,
		Payload:     string(payload),
		Status:      model.OutboxPending,
	}).Error
}
