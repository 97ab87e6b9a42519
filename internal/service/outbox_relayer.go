package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"Med_Community/internal/model"
	"Med_Community/internal/pkg"
)

type OutboxStore interface {
	List(ctx context.Context, batchSize, maxRetry int) ([]model.LedgerOutbox, error)
	RetryUpdate(ctx context.Context, id uint64) error
	SuccessUpdate(ctx context.Context, id uint64) error
}

type Sender func(ctx context.Context, ob *model.LedgerOutbox) error

// OutboxRelayer 从 outbox 表读取已提交的账本事件，交给 sender 投递
type OutboxRelayer struct {
	repo      OutboxStore
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
	log       *slog.Logger
}

func NewOutboxRelayer(repo OutboxStore, sender Sender, interval time.Duration, log *slog.Logger) *OutboxRelayer {
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelayer{
		repo:      repo,
		batchSize: 200,
		maxRetry:  10,
		interval:  interval,
		sender:    sender,
		log:       log.With("component", "outbox"),
	}
}

// Run outbox 启动器，ctx 取消后返回
func (r *OutboxRelayer) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		r.log.ErrorContext(ctx, "outbox query failed", "err", err)
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err := r.sender(ctx, &ob); err != nil {
			r.log.WarnContext(ctx, "outbox send failed", "id", ob.ID, "event", ob.EventType, "retry", ob.Retry, "err", err)
			pkg.OutboxDeliveries.WithLabelValues("failed").Inc()
			if err := r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				r.log.ErrorContext(ctx, "outbox mark retry failed", "id", ob.ID, "err", err)
			}
			continue
		}
		pkg.OutboxDeliveries.WithLabelValues("sent").Inc()
		if err := r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			r.log.ErrorContext(ctx, "outbox mark sent failed", "id", ob.ID, "err", err)
			continue
		}
		sent++
	}
	return sent
}

type eventProducer interface {
	Send(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// KafkaSender 以聚合 id 作为 key，同一帖子/社区的事件进入同一分区
func KafkaSender(p eventProducer) Sender {
	return func(ctx context.Context, ob *model.LedgerOutbox) error {
		return p.Send(ctx, ob.AggregateID, []byte(ob.Payload), map[string]string{
			"event_type": ob.EventType,
			"user_id":    strconv.FormatUint(ob.UserID, 10),
			"outbox_id":  strconv.FormatUint(ob.ID, 10),
		})
	}
}

// LogSender 未配置 Kafka 时只打日志
func LogSender(log *slog.Logger) Sender {
	return func(ctx context.Context, ob *model.LedgerOutbox) error {
		log.InfoContext(ctx, "outbox event",
			"event", ob.EventType, "aggregate", ob.AggregateID, "user_id", ob.UserID, "payload", ob.Payload)
		return nil
	}
}
