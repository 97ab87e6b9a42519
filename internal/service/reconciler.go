package service

import (
	"context"
	"log/slog"
	"time"

	"Med_Community/internal/pkg"
	"Med_Community/internal/repository/mysql"
)

type CounterStore interface {
	CommunityBatch(ctx context.Context, batchSize int, lastID string) ([]mysql.MemberPair, string, error)
	RepairMembers(ctx context.Context, communityID string) (mysql.Repair, error)
	PostBatch(ctx context.Context, batchSize int, lastID string) ([]mysql.VotePair, string, error)
	RepairVoteStatus(ctx context.Context, postID string) (mysql.Repair, error)
}

// CounterReconciler 社区成员数和帖子票数对账
type CounterReconciler struct {
	repo      CounterStore
	counts    VoteCounter
	batchSize int
	interval  time.Duration
	log       *slog.Logger
}

// ReconcileResult 一轮对账修正的条数
type ReconcileResult struct {
	Communities int
	Posts       int
}

func NewCounterReconciler(repo CounterStore, counts VoteCounter, interval time.Duration, log *slog.Logger) *CounterReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CounterReconciler{
		repo:      repo,
		counts:    counts,
		batchSize: 500,
		interval:  interval,
		log:       log.With("component", "reconciler"),
	}
}

func (r *CounterReconciler) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			res, err := r.ReconcileOnce(ctx)
			if err != nil {
				r.log.ErrorContext(ctx, "reconcile failed", "err", err)
				continue
			}
			if res.Communities > 0 || res.Posts > 0 {
				r.log.InfoContext(ctx, "reconciled counters", "communities", res.Communities, "posts", res.Posts)
			}
		}
	}
}

// ReconcileOnce 全量扫一遍，单条出错跳过。批次里的计数只用来翻页，是否修正以事务内重新计数为准
func (r *CounterReconciler) ReconcileOnce(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	cursor := ""
	for {
		batch, next, err := r.repo.CommunityBatch(ctx, r.batchSize, cursor)
		if err != nil {
			return res, err
		}
		if len(batch) == 0 {
			break
		}
		for _, c := range batch {
			fix, err := r.repo.RepairMembers(ctx, c.ID)
			if err != nil {
				r.log.WarnContext(ctx, "fix members failed", "community", c.ID, "err", err)
				continue
			}
			if !fix.Fixed {
				continue
			}
			pkg.CounterRepairs.WithLabelValues("members").Inc()
			res.Communities++
		}
		cursor = next
	}

	cursor = ""
	for {
		batch, next, err := r.repo.PostBatch(ctx, r.batchSize, cursor)
		if err != nil {
			return res, err
		}
		if len(batch) == 0 {
			break
		}
		for _, p := range batch {
			fix, err := r.repo.RepairVoteStatus(ctx, p.ID)
			if err != nil {
				r.log.WarnContext(ctx, "fix vote status failed", "post", p.ID, "err", err)
				continue
			}
			if !fix.Fixed {
				continue
			}
			if r.counts != nil {
				if _, err := r.counts.StoreVoteStatus(ctx, p.ID, fix.Value, fix.Version); err != nil {
					r.log.WarnContext(ctx, "vote cache store failed", "post", p.ID, "err", err)
				}
			}
			pkg.CounterRepairs.WithLabelValues("votes").Inc()
			res.Posts++
		}
		cursor = next
	}
	return res, nil
}
