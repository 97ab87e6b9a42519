package mysql

import (
	"context"
	"errors"

	"Med_Community/internal/model"

	"gorm.io/gorm"
)

type VoteRepository struct {
	Ledger *Ledger
}

func NewVoteRepository(l *Ledger) *VoteRepository {
	return &VoteRepository{Ledger: l}
}

// CastVote 切换式投票：同值撤销，异值翻转，没有则新建；帖子计数通过版本号 CAS 更新
func (r *VoteRepository) CastVote(ctx context.Context, userID uint64, postID, communityID string, desired int8) (model.VoteOutcome, error) {
	var out model.VoteOutcome
	err := r.Ledger.Transact(ctx, func(tx *gorm.DB) error {
		var post model.Post
		if err := tx.Where("id = ?", postID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.NewNotFoundError("post", postID)
			}
			return err
		}
		// 投票归属的社区以帖子为准
		communityID = post.CommunityID

		var existing model.PostVote
		var current int8
		err := tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error
		switch {
		case err == nil:
			current = existing.VoteValue
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		action, delta, value := model.DecideVote(current, desired)
		switch action {
		case model.VoteCreated:
			vote := &model.PostVote{UserID: userID, PostID: postID, CommunityID: communityID, VoteValue: value}
			if err := tx.Create(vote).Error; err != nil {
				return staleOnDuplicate(err)
			}
		case model.VoteRemoved:
			res := tx.Where("user_id = ? AND post_id = ? AND vote_value = ?", userID, postID, current).Delete(&model.PostVote{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrStaleWrite
			}
		case model.VoteFlipped:
			res := tx.Model(&model.PostVote{}).
				Where("user_id = ? AND post_id = ? AND vote_value = ?", userID, postID, current).
				UpdateColumn("vote_value", value)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrStaleWrite
			}
		}

		if err := casUpdate(tx, &model.Post{}, postID, post.Version, map[string]any{
			"vote_status": gorm.Expr("vote_status + ?", delta),
		}); err != nil {
			return err
		}

		out = model.VoteOutcome{
			PostID:      postID,
			CommunityID: communityID,
			Action:      action,
			Delta:       delta,
			Value:       value,
			VoteStatus:  post.VoteStatus + delta,
			Version:     post.Version + 1,
		}
		return insertOutbox(tx, model.EventVoteCast, postID, userID, map[string]any{
			"action": action,
			"delta":  delta,
			"value":  value,
		})
	})
	if err != nil {
		return model.VoteOutcome{}, err
	}
	return out, nil
}

// ListVotes 用户在某个社区的所有投票，communityID 为空时返回全部
func (r *VoteRepository) ListVotes(ctx context.Context, userID uint64, communityID string) ([]model.PostVote, error) {
	q := r.Ledger.DB.WithContext(ctx).Where("user_id = ?", userID)
	if communityID != "" {
		q = q.Where("community_id = ?", communityID)
	}
	var votes []model.PostVote
	if err := q.Find(&votes).Error; err != nil {
		return nil, err
	}
	return votes, nil
}

// GetVote 没有投票时返回 0
func (r *VoteRepository) GetVote(ctx context.Context, userID uint64, postID string) (int8, error) {
	var v model.PostVote
	err := r.Ledger.DB.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v.VoteValue, nil
}
