package service

import (
	"context"
	"strings"

	"Med_Community/internal/model"
)

// ArticleService 医学文章的点赞、收藏和分享到社区
type ArticleService struct {
	articles ArticleStore
	posts    *PostService
}

func NewArticleService(articles ArticleStore, posts *PostService) *ArticleService {
	return &ArticleService{articles: articles, posts: posts}
}

// ToggleLike 返回点赞后的状态和总数
func (s *ArticleService) ToggleLike(ctx context.Context, id *model.Identity, articleID string) (bool, int64, error) {
	if id == nil {
		return false, 0, model.ErrUnauthenticated
	}
	if articleID == "" {
		return false, 0, model.NewValidationError("article id required")
	}
	liked, err := s.articles.Like(ctx, id.UserID, articleID)
	if err != nil {
		return false, 0, err
	}
	if !liked {
		if _, err := s.articles.Unlike(ctx, id.UserID, articleID); err != nil {
			return false, 0, err
		}
	}
	n, err := s.articles.LikeCount(ctx, articleID)
	return liked, n, err
}

func (s *ArticleService) Save(ctx context.Context, id *model.Identity, a model.Article) error {
	if id == nil {
		return model.ErrUnauthenticated
	}
	if a.ID == "" {
		return model.NewValidationError("article id required")
	}
	return s.articles.Save(ctx, &model.SavedArticle{
		UserID:    id.UserID,
		ArticleID: a.ID,
		Title:     a.Title,
		URL:       a.URL,
		Source:    a.Source,
	})
}

func (s *ArticleService) Unsave(ctx context.Context, id *model.Identity, articleID string) error {
	if id == nil {
		return model.ErrUnauthenticated
	}
	return s.articles.Unsave(ctx, id.UserID, articleID)
}

func (s *ArticleService) ListSaved(ctx context.Context, id *model.Identity) ([]model.SavedArticle, error) {
	if id == nil {
		return nil, model.ErrUnauthenticated
	}
	return s.articles.ListSaved(ctx, id.UserID)
}

// Share 以帖子的形式分享到社区
func (s *ArticleService) Share(ctx context.Context, id *model.Identity, communityID string, a model.Article, comment string) (*model.Post, error) {
	if id == nil {
		return nil, model.ErrUnauthenticated
	}
	if a.Title == "" || a.URL == "" {
		return nil, model.NewValidationError("article title and url required")
	}
	var body strings.Builder
	if comment = strings.TrimSpace(comment); comment != "" {
		body.WriteString(comment)
		body.WriteString("\n\n")
	}
	if a.Summary != "" {
		body.WriteString(a.Summary)
		body.WriteString("\n\n")
	}
	body.WriteString(a.URL)

	return s.posts.CreatePost(ctx, id, CreatePostInput{
		CommunityID:     communityID,
		Title:           a.Title,
		Body:            body.String(),
		IsSharedArticle: true,
	})
}
