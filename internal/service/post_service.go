package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"Med_Community/internal/model"
	"Med_Community/internal/projection"
	"Med_Community/internal/storage"

	"github.com/google/uuid"
)

// 删帖后延迟再删一次计数缓存，覆盖删帖前已读库的回填
const cacheDeleteDelay = 500 * time.Millisecond

type PostService struct {
	posts       PostStore
	communities CommunityStore
	votes       VoteStore
	counts      VoteCounter
	objects     ObjectStore
	lock        Guard
	sessions    *projection.Registry
	log         *slog.Logger
}

func NewPostService(posts PostStore, communities CommunityStore, votes VoteStore, counts VoteCounter, objects ObjectStore,
	lock Guard, sessions *projection.Registry, log *slog.Logger) *PostService {
	return &PostService{
		posts:       posts,
		communities: communities,
		votes:       votes,
		counts:      counts,
		objects:     objects,
		lock:        lock,
		sessions:    sessions,
		log:         log.With("component", "post"),
	}
}

type CreatePostInput struct {
	CommunityID     string
	Title           string
	Body            string
	Image           []byte
	ImageType       string
	IsSharedArticle bool
}

// DisplayName 邮箱 @ 之前的部分
func DisplayName(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

func (s *PostService) CreatePost(ctx context.Context, id *model.Identity, in CreatePostInput) (*model.Post, error) {
	if id == nil {
		return nil, model.ErrUnauthenticated
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, model.NewValidationError("title required")
	}
	community, err := s.communities.Get(ctx, in.CommunityID)
	if err != nil {
		return nil, err
	}

	displayName := id.DisplayName
	if displayName == "" {
		displayName = DisplayName(id.Email)
	}
	post := &model.Post{
		ID:                 uuid.NewString(),
		CommunityID:        community.ID,
		CreatorID:          id.UserID,
		CreatorDisplayName: displayName,
		Title:              title,
		Body:               in.Body,
		CommunityImageURL:  community.ImageURL,
		IsSharedArticle:    in.IsSharedArticle,
		CreatedAt:          time.Now(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	if len(in.Image) > 0 {
		url, err := s.objects.Upload(ctx, storage.PostImagePath(post.ID), in.ImageType, in.Image)
		if err != nil {
			s.log.WarnContext(ctx, "post image upload failed", "post_id", post.ID, "err", err)
		} else if err := s.posts.UpdateImageURL(ctx, post.ID, url); err != nil {
			s.log.WarnContext(ctx, "post image url update failed", "post_id", post.ID, "err", err)
		} else {
			post.ImageURL = url
		}
	}

	s.sessions.Get(id.UserID).ApplyPostCreated(*post)
	return post, nil
}

// GetPost 读取帖子，登录用户的会话记录为选中帖子
func (s *PostService) GetPost(ctx context.Context, id *model.Identity, postID string) (*model.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if id != nil {
		s.sessions.Get(id.UserID).SelectPost(*post)
	}
	return post, nil
}

type PostPage struct {
	Posts         []model.Post `json:"posts"`
	NextID        string       `json:"nextId,omitempty"`
	NextCreatedAt int64        `json:"nextCreatedAt,omitempty"`
}

// ListCommunityPosts 游标分页：第一页 lastCreatedAt 传 0；登录用户同时加载该社区的投票
func (s *PostService) ListCommunityPosts(ctx context.Context, id *model.Identity, communityID, lastID string, lastCreatedAt int64, size int) (*PostPage, error) {
	if size <= 0 || size > 50 {
		size = 20
	}
	var cursor time.Time
	if lastCreatedAt > 0 {
		cursor = time.UnixMicro(lastCreatedAt)
	}
	list, err := s.posts.ListByCommunityCursor(ctx, communityID, lastID, cursor, size)
	if err != nil {
		return nil, err
	}
	page := &PostPage{Posts: list}
	if len(list) == size {
		last := list[len(list)-1]
		page.NextID = last.ID
		page.NextCreatedAt = last.CreatedAt.UnixMicro()
	}

	if id != nil {
		p := s.sessions.Get(id.UserID)
		p.SetPosts(list)
		votes, err := s.votes.ListVotes(ctx, id.UserID, communityID)
		if err != nil {
			return nil, err
		}
		p.SetVotes(votes)
	}
	return page, nil
}

// DeletePost 只有作者能删；删除后清理图片和计数缓存
func (s *PostService) DeletePost(ctx context.Context, id *model.Identity, postID string) error {
	if id == nil {
		return model.ErrUnauthenticated
	}
	post, err := s.posts.DeleteOwned(ctx, postID, id.UserID)
	if err != nil {
		return err
	}
	if post.ImageURL != "" {
		if err := s.objects.Delete(ctx, storage.PostImagePath(post.ID)); err != nil {
			s.log.WarnContext(ctx, "post image delete failed", "post_id", post.ID, "err", err)
		}
	}
	if s.counts != nil {
		if err := s.counts.DeleteVoteStatus(ctx, post.ID, cacheDeleteDelay); err != nil {
			s.log.WarnContext(ctx, "vote cache delete failed", "post_id", post.ID, "err", err)
		}
	}
	s.sessions.Get(id.UserID).ApplyPostDeleted(post.ID)
	return nil
}

// VoteStatus 读计数：先读缓存，未命中时加锁回源，二次检查后回填
func (s *PostService) VoteStatus(ctx context.Context, postID string) (int64, error) {
	if s.counts == nil {
		post, err := s.posts.FindByID(ctx, postID)
		if err != nil {
			return 0, err
		}
		return post.VoteStatus, nil
	}
	if v, ok, err := s.counts.GetVoteStatus(ctx, postID); err == nil && ok {
		return v, nil
	}

	key := "count:" + postID
	token := uuid.NewString()
	got := true
	if s.lock != nil {
		got, _ = s.lock.Acquire(ctx, key, token)
	}
	if got {
		if s.lock != nil {
			defer func() {
				if err := s.lock.Release(context.WithoutCancel(ctx), key, token); err != nil {
					s.log.WarnContext(ctx, "count lock release failed", "post_id", postID, "err", err)
				}
			}()
		}
		if v, ok, err := s.counts.GetVoteStatus(ctx, postID); err == nil && ok {
			return v, nil
		}
		post, err := s.posts.FindByID(ctx, postID)
		if err != nil {
			return 0, err
		}
		if _, err := s.counts.StoreVoteStatus(ctx, postID, post.VoteStatus, post.Version); err != nil {
			s.log.WarnContext(ctx, "vote cache backfill failed", "post_id", postID, "err", err)
		}
		return post.VoteStatus, nil
	}

	// 没拿到锁，短暂退避后再读一次缓存
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}
	if v, ok, err := s.counts.GetVoteStatus(ctx, postID); err == nil && ok {
		return v, nil
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return 0, err
	}
	return post.VoteStatus, nil
}

type CommentService struct {
	comments CommentStore
	sessions *projection.Registry
	log      *slog.Logger
}

func NewCommentService(comments CommentStore, sessions *projection.Registry, log *slog.Logger) *CommentService {
	return &CommentService{comments: comments, sessions: sessions, log: log.With("component", "comment")}
}

func (s *CommentService) CreateComment(ctx context.Context, id *model.Identity, postID, text string) (*model.Comment, error) {
	if id == nil {
		return nil, model.ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, model.NewValidationError("comment text required")
	}
	displayName := id.DisplayName
	if displayName == "" {
		displayName = DisplayName(id.Email)
	}
	c := &model.Comment{
		ID:                 uuid.NewString(),
		PostID:             postID,
		CreatorID:          id.UserID,
		CreatorDisplayName: displayName,
		Text:               text,
		CreatedAt:          time.Now(),
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	s.sessions.Get(id.UserID).ApplyCommentDelta(postID, 1)
	return c, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, id *model.Identity, commentID string) error {
	if id == nil {
		return model.ErrUnauthenticated
	}
	c, err := s.comments.Delete(ctx, commentID, id.UserID)
	if err != nil {
		return err
	}
	s.sessions.Get(id.UserID).ApplyCommentDelta(c.PostID, -1)
	return nil
}

func (s *CommentService) ListComments(ctx context.Context, postID string, limit int) ([]model.Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.comments.ListByPost(ctx, postID, limit)
}
