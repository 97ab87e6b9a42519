package mysql

import (
	"context"
	"errors"
	"time"

	"Med_Community/internal/model"

	"gorm.io/gorm"
)

type PostRepository struct {
	Ledger *Ledger
}

func NewPostRepository(l *Ledger) *PostRepository {
	return &PostRepository{Ledger: l}
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.Ledger.DB.WithContext(ctx).Create(post).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	err := r.Ledger.DB.WithContext(ctx).Where("id = ?", id).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.NewNotFoundError("post", id)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListByCommunityCursor 时间游标分页：索引 (community_id, created_at DESC)
// lastCreatedAt 为零值表示第一页；否则用 (created_at, id) 作为严格游标
func (r *PostRepository) ListByCommunityCursor(ctx context.Context, communityID, lastID string, lastCreatedAt time.Time, limit int) ([]model.Post, error) {
	var list []model.Post
	q := r.Ledger.DB.WithContext(ctx).Where("community_id = ?", communityID)
	if !lastCreatedAt.IsZero() {
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", lastCreatedAt, lastCreatedAt, lastID)
	}
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&list).Error
	return list, err
}

// DeleteOwned 只有作者能删除；同时删掉帖子下的投票和评论
func (r *PostRepository) DeleteOwned(ctx context.Context, postID string, operatorID uint64) (*model.Post, error) {
	var post model.Post
	err := r.Ledger.Transact(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", postID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.NewNotFoundError("post", postID)
			}
			return err
		}
		if post.CreatorID != operatorID {
			return model.NewUnauthorizedError("only the creator can delete this post")
		}
		if err := tx.Where("post_id = ?", postID).Delete(&model.PostVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND version = ?", postID, post.Version).Delete(&model.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleWrite
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) UpdateImageURL(ctx context.Context, postID, url string) error {
	return r.Ledger.DB.WithContext(ctx).Model(&model.Post{}).Where("id = ?", postID).
		UpdateColumns(map[string]any{"image_url": url, "version": gorm.Expr("version + 1")}).Error
}

type CommentRepository struct {
	Ledger *Ledger
}

func NewCommentRepository(l *Ledger) *CommentRepository {
	return &CommentRepository{Ledger: l}
}

// Create 写评论并把帖子评论数 +1
func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	return r.Ledger.Transact(ctx, func(tx *gorm.DB) error {
		var post model.Post
		if err := tx.Where("id = ?", c.PostID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.NewNotFoundError("post", c.PostID)
			}
			return err
		}
		c.CommunityID = post.CommunityID
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return casUpdate(tx, &model.Post{}, post.ID, post.Version, map[string]any{
			"number_of_comments": gorm.Expr("number_of_comments + 1"),
		})
	})
}

// Delete 只有评论作者能删，帖子评论数 -1（不低于 0）
func (r *CommentRepository) Delete(ctx context.Context, commentID string, operatorID uint64) (*model.Comment, error) {
	var comment model.Comment
	err := r.Ledger.Transact(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", commentID).First(&comment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.NewNotFoundError("comment", commentID)
			}
			return err
		}
		if comment.CreatorID != operatorID {
			return model.NewUnauthorizedError("only the author can delete this comment")
		}
		var post model.Post
		if err := tx.Where("id = ?", comment.PostID).First(&post).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.NewNotFoundError("post", comment.PostID)
			}
			return err
		}
		res := tx.Where("id = ?", commentID).Delete(&model.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleWrite
		}
		return casUpdate(tx, &model.Post{}, post.ID, post.Version, map[string]any{
			"number_of_comments": gorm.Expr("CASE WHEN number_of_comments > 0 THEN number_of_comments - 1 ELSE 0 END"),
		})
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID string, limit int) ([]model.Comment, error) {
	var list []model.Comment
	err := r.Ledger.DB.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
