package service

import (
	"context"
	"time"

	"Med_Community/internal/model"
)

// 服务层依赖的存储接口，由 repository/mysql、repository/redis、storage 实现

type VoteStore interface {
	CastVote(ctx context.Context, userID uint64, postID, communityID string, desired int8) (model.VoteOutcome, error)
	ListVotes(ctx context.Context, userID uint64, communityID string) ([]model.PostVote, error)
}

type VoteCounter interface {
	GetVoteStatus(ctx context.Context, postID string) (int64, bool, error)
	// StoreVoteStatus 只接受比缓存更新的版本
	StoreVoteStatus(ctx context.Context, postID string, status, version int64) (bool, error)
	DeleteVoteStatus(ctx context.Context, postID string, delay ...time.Duration) error
}

// Guard 同一 (用户, 目标) 同时只允许一个写请求
type Guard interface {
	Acquire(ctx context.Context, key, token string) (bool, error)
	Release(ctx context.Context, key, token string) error
}

type MembershipStore interface {
	Join(ctx context.Context, userID uint64, communityID string) (model.MembershipOutcome, error)
	Leave(ctx context.Context, userID uint64, communityID string) (model.MembershipOutcome, error)
	ListSnippets(ctx context.Context, userID uint64) ([]model.CommunitySnippet, error)
}

type CommunityStore interface {
	Create(ctx context.Context, c *model.Community) (*model.CommunitySnippet, error)
	Get(ctx context.Context, id string) (*model.Community, error)
	List(ctx context.Context, offset, limit int) ([]model.Community, error)
	UpdateImageURL(ctx context.Context, id, url string) error
}

type RequestStore interface {
	Create(ctx context.Context, req *model.CommunityRequest) error
	List(ctx context.Context, status model.RequestStatus) ([]model.CommunityRequest, error)
	Approve(ctx context.Context, requestID string, reviewerID uint64) (*model.Community, *model.CommunityRequest, error)
	Reject(ctx context.Context, requestID string, reviewerID uint64) (*model.CommunityRequest, error)
}

type PostStore interface {
	Create(ctx context.Context, post *model.Post) error
	FindByID(ctx context.Context, id string) (*model.Post, error)
	ListByCommunityCursor(ctx context.Context, communityID, lastID string, lastCreatedAt time.Time, limit int) ([]model.Post, error)
	DeleteOwned(ctx context.Context, postID string, operatorID uint64) (*model.Post, error)
	UpdateImageURL(ctx context.Context, postID, url string) error
}

type CommentStore interface {
	Create(ctx context.Context, c *model.Comment) error
	Delete(ctx context.Context, commentID string, operatorID uint64) (*model.Comment, error)
	ListByPost(ctx context.Context, postID string, limit int) ([]model.Comment, error)
}

type ObjectStore interface {
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, path string) error
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	MarkEmailVerified(ctx context.Context, userID uint64) error
	UpdatePassword(ctx context.Context, user *model.User, newPassword string) error
	UpdateRole(ctx context.Context, userID uint64, role int) error
}

type TokenStore interface {
	AddUserToken(ctx context.Context, userID uint64, token string) error
	GetUserToken(ctx context.Context, userID uint64) (string, error)
	ExtendUserToken(ctx context.Context, userID uint64) error
	DeleteUserToken(ctx context.Context, userID uint64) error
}

type ArticleStore interface {
	Like(ctx context.Context, userID uint64, articleID string) (bool, error)
	Unlike(ctx context.Context, userID uint64, articleID string) (bool, error)
	LikeCount(ctx context.Context, articleID string) (int64, error)
	Save(ctx context.Context, s *model.SavedArticle) error
	Unsave(ctx context.Context, userID uint64, articleID string) error
	ListSaved(ctx context.Context, userID uint64) ([]model.SavedArticle, error)
}
