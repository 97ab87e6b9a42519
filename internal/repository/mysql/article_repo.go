package mysql

import (
	"context"

	"Med_Community/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ArticleRepository struct {
	DB *gorm.DB
}

func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{DB: db}
}

// Like 幂等，返回是否新增
func (r *ArticleRepository) Like(ctx context.Context, userID uint64, articleID string) (bool, error) {
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ArticleLike{ArticleID: articleID, UserID: userID})
	return res.RowsAffected > 0, res.Error
}

func (r *ArticleRepository) Unlike(ctx context.Context, userID uint64, articleID string) (bool, error) {
	res := r.DB.WithContext(ctx).Where("article_id = ? AND user_id = ?", articleID, userID).Delete(&model.ArticleLike{})
	return res.RowsAffected > 0, res.Error
}

func (r *ArticleRepository) LikeCount(ctx context.Context, articleID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.ArticleLike{}).Where("article_id = ?", articleID).Count(&n).Error
	return n, err
}

func (r *ArticleRepository) Save(ctx context.Context, s *model.SavedArticle) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "article_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "url", "source"}),
	}).Create(s).Error
}

func (r *ArticleRepository) Unsave(ctx context.Context, userID uint64, articleID string) error {
	return r.DB.WithContext(ctx).Where("user_id = ? AND article_id = ?", userID, articleID).Delete(&model.SavedArticle{}).Error
}

func (r *ArticleRepository) ListSaved(ctx context.Context, userID uint64) ([]model.SavedArticle, error) {
	var list []model.SavedArticle
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error
	return list, err
}
