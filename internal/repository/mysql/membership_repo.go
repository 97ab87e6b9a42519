package mysql

import (
	"context"
	"errors"

	"Med_Community/internal/model"

	"gorm.io/gorm"
)

type MembershipRepository struct {
	Ledger *Ledger
}

func NewMembershipRepository(l *Ledger) *MembershipRepository {
	return &MembershipRepository{Ledger: l}
}

// Join 加入社区（幂等）。已经是成员时原样返回 snippet，计数不变
func (r *MembershipRepository) Join(ctx context.Context, userID uint64, communityID string) (model.MembershipOutcome, error) {
	var out model.MembershipOutcome
	err := r.Ledger.Transact(ctx, func(tx *gorm.DB) error {
		community, err := findCommunity(tx, communityID)
		if err != nil {
			return err
		}

		var snippet model.CommunitySnippet
		err = tx.Where("user_id = ? AND community_id = ?", userID, communityID).First(&snippet).Error
		if err == nil {
			out = model.MembershipOutcome{Snippet: snippet, Joined: true}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		snippet = model.CommunitySnippet{
			UserID:      userID,
			CommunityID: communityID,
			IsModerator: community.CreatorID == userID,
			ImageURL:    community.ImageURL,
		}
		if err := tx.Create(&snippet).Error; err != nil {
			return staleOnDuplicate(err)
		}
		if err := casUpdate(tx, &model.Community{}, communityID, community.Version, map[string]any{
			"number_of_members": gorm.Expr("number_of_members + 1"),
		}); err != nil {
			return err
		}
		out = model.MembershipOutcome{Snippet: snippet, Joined: true, Changed: true, Delta: 1}
		return insertOutbox(tx, model.EventMemberJoined, communityID, userID, nil)
	})
	if err != nil {
		return model.MembershipOutcome{}, err
	}
	return out, nil
}

// Leave 退出社区。没有 snippet 时返回 ErrNotAMember，计数不动
func (r *MembershipRepository) Leave(ctx context.Context, userID uint64, communityID string) (model.MembershipOutcome, error) {
	var out model.MembershipOutcome
	err := r.Ledger.Transact(ctx, func(tx *gorm.DB) error {
		var snippet model.CommunitySnippet
		if err := tx.Where("user_id = ? AND community_id = ?", userID, communityID).First(&snippet).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrNotAMember
			}
			return err
		}
		community, err := findCommunity(tx, communityID)
		if err != nil {
			return err
		}

		res := tx.Where("user_id = ? AND community_id = ?", userID, communityID).Delete(&model.CommunitySnippet{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleWrite
		}
		if err := casUpdate(tx, &model.Community{}, communityID, community.Version, map[string]any{
			"number_of_members": gorm.Expr("CASE WHEN number_of_members > 0 THEN number_of_members - 1 ELSE 0 END"),
		}); err != nil {
			return err
		}
		out = model.MembershipOutcome{Snippet: snippet, Joined: false, Changed: true, Delta: -1}
		return insertOutbox(tx, model.EventMemberLeft, communityID, userID, nil)
	})
	if err != nil {
		return model.MembershipOutcome{}, err
	}
	return out, nil
}

// ListSnippets 用户加入的全部社区
func (r *MembershipRepository) ListSnippets(ctx context.Context, userID uint64) ([]model.CommunitySnippet, error) {
	var list []model.CommunitySnippet
	if err := r.Ledger.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *MembershipRepository) IsMember(ctx context.Context, userID uint64, communityID string) (bool, error) {
	var n int64
	if err := r.Ledger.DB.WithContext(ctx).
		Model(&model.CommunitySnippet{}).
		Where("user_id = ? AND community_id = ?", userID, communityID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func findCommunity(tx *gorm.DB, communityID string) (*model.Community, error) {
	var c model.Community
	if err := tx.Where("id = ?", communityID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NewNotFoundError("community", communityID)
		}
		return nil, err
	}
	return &c, nil
}
