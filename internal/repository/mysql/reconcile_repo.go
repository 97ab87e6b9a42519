package mysql

import (
	"context"

	"Med_Community/internal/model"

	"gorm.io/gorm"
)

// CounterReconcilerRepo 对账：用 snippet / vote 明细修正社区成员数和帖子票数。
// 重新计数和修正在同一个账本事务里完成，修正走版本号 CAS
type CounterReconcilerRepo struct {
	Ledger *Ledger
}

func NewCounterReconcilerRepo(l *Ledger) *CounterReconcilerRepo {
	return &CounterReconcilerRepo{Ledger: l}
}

// MemberPair 社区当前记录的成员数
type MemberPair struct {
	ID              string
	NumberOfMembers int64
}

// VotePair 帖子当前记录的票数
type VotePair struct {
	ID         string
	VoteStatus int64
}

// Repair 一次修正的结果，Fixed=false 表示计数本来就对
type Repair struct {
	Fixed   bool
	Value   int64
	Version int64
}

// CommunityBatch 按 id 升序分批取社区，返回本批最后一个 id 作为下一批游标
func (r *CounterReconcilerRepo) CommunityBatch(ctx context.Context, batchSize int, lastID string) ([]MemberPair, string, error) {
	var list []MemberPair
	if err := r.Ledger.DB.WithContext(ctx).Model(&model.Community{}).
		Select("id", "number_of_members").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RepairMembers 计数期间有人加入或退出时 CAS 失败，整个事务重新计数
func (r *CounterReconcilerRepo) RepairMembers(ctx context.Context, communityID string) (Repair, error) {
	var out Repair
	err := r.Ledger.Transact(ctx, func(tx *gorm.DB) error {
		out = Repair{}
		var c model.Community
		if err := tx.Select("id", "number_of_members", "version").Where("id = ?", communityID).First(&c).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&model.CommunitySnippet{}).Where("community_id = ?", communityID).Count(&n).Error; err != nil {
			return err
		}
		out.Value, out.Version = n, c.Version
		if n == c.NumberOfMembers {
			return nil
		}
		if err := casUpdate(tx, &model.Community{}, communityID, c.Version, map[string]any{"number_of_members": n}); err != nil {
			return err
		}
		out.Fixed, out.Version = true, c.Version+1
		return nil
	})
	return out, err
}

func (r *CounterReconcilerRepo) PostBatch(ctx context.Context, batchSize int, lastID string) ([]VotePair, string, error) {
	var list []VotePair
	if err := r.Ledger.DB.WithContext(ctx).Model(&model.Post{}).
		Select("id", "vote_status").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RepairVoteStatus 返回修正后的票数和版本号，供缓存按版本写入
func (r *CounterReconcilerRepo) RepairVoteStatus(ctx context.Context, postID string) (Repair, error) {
	var out Repair
	err := r.Ledger.Transact(ctx, func(tx *gorm.DB) error {
		out = Repair{}
		var p model.Post
		if err := tx.Select("id", "vote_status", "version").Where("id = ?", postID).First(&p).Error; err != nil {
			return err
		}
		var sum int64
		if err := tx.Model(&model.PostVote{}).
			Select("COALESCE(SUM(vote_value), 0)").
			Where("post_id = ?", postID).
			Scan(&sum).Error; err != nil {
			return err
		}
		out.Value, out.Version = sum, p.Version
		if sum == p.VoteStatus {
			return nil
		}
		if err := casUpdate(tx, &model.Post{}, postID, p.Version, map[string]any{"vote_status": sum}); err != nil {
			return err
		}
		out.Fixed, out.Version = true, p.Version+1
		return nil
	})
	return out, err
}
