package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"Med_Community/internal/model"
	"Med_Community/internal/pkg"
	"Med_Community/internal/projection"
	"Med_Community/internal/storage"
)

const (
	minNameLen = 3
	maxNameLen = 21

	// 不允许出现在社区名里的字符（含空格）
	disallowedNameChars = " `!@#$%^&*()+-=[]{};':\"\\|,.<>/?~"

	InvalidNameMessage = "Community names must be between 3-21 characters, and can only contain letters, numbers, or underscores"
)

// ValidateCommunityName 纯校验，不访问存储
func ValidateCommunityName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < minNameLen || n > maxNameLen {
		return model.NewInvalidNameError(InvalidNameMessage)
	}
	if strings.ContainsAny(name, disallowedNameChars) {
		return model.NewInvalidNameError(InvalidNameMessage)
	}
	return nil
}

// Notifier 申请审批结果通知
type Notifier interface {
	RequestReviewed(ctx context.Context, req model.CommunityRequest, approved bool) error
}

// CommunityService 建社区准入：管理员直接创建，普通用户走申请队列
type CommunityService struct {
	communities CommunityStore
	requests    RequestStore
	objects     ObjectStore
	notifier    Notifier
	guard       Guard
	sessions    *projection.Registry
	log         *slog.Logger
}

func NewCommunityService(communities CommunityStore, requests RequestStore, objects ObjectStore, notifier Notifier,
	guard Guard, sessions *projection.Registry, log *slog.Logger) *CommunityService {
	return &CommunityService{
		communities: communities,
		requests:    requests,
		objects:     objects,
		notifier:    notifier,
		guard:       guard,
		sessions:    sessions,
		log:         log.With("component", "admission"),
	}
}

// CreateCommunity 仅管理员可直接创建
func (s *CommunityService) CreateCommunity(ctx context.Context, id *model.Identity, name string, privacy model.PrivacyType) (*model.Community, error) {
	if id == nil {
		return nil, model.ErrUnauthenticated
	}
	if err := ValidateCommunityName(name); err != nil {
		return nil, err
	}
	if privacy == "" {
		privacy = model.PrivacyPublic
	}
	if !privacy.Valid() {
		return nil, model.NewValidationError("unknown community type")
	}
	if !id.IsAdmin {
		return nil, model.NewUnauthorizedError("only administrators can create communities directly; submit a request instead")
	}

	c := &model.Community{ID: name, CreatorID: id.UserID, PrivacyType: privacy}
	var snippet *model.CommunitySnippet
	err := withGuard(ctx, s.guard, createGuardKey(name), func() error {
		var err error
		snippet, err = s.communities.Create(ctx, c)
		return err
	})
	if err != nil {
		s.log.WarnContext(ctx, "create community failed", "name", name, "err", err)
		return nil, err
	}
	s.applyCreated(id.UserID, *snippet, "direct")
	return c, nil
}

// applyCreated 创建者会话里加入版主 snippet
func (s *CommunityService) applyCreated(creatorID uint64, snippet model.CommunitySnippet, path string) {
	if p, ok := s.sessions.Lookup(creatorID); ok {
		p.ApplyMembership(model.MembershipOutcome{Snippet: snippet, Joined: true})
	}
	pkg.CommunitiesCreated.WithLabelValues(path).Inc()
}

// RequestCommunity 普通用户提交申请，用同样的规则校验名称
func (s *CommunityService) RequestCommunity(ctx context.Context, id *model.Identity, name, description string, privacy model.PrivacyType) (*model.CommunityRequest, error) {
	if id == nil {
		return nil, model.ErrUnauthenticated
	}
	if err := ValidateCommunityName(name); err != nil {
		return nil, err
	}
	if privacy == "" {
		privacy = model.PrivacyPublic
	}
	if !privacy.Valid() {
		return nil, model.NewValidationError("unknown community type")
	}
	if _, err := s.communities.Get(ctx, name); err == nil {
		return nil, model.NewNameTakenError(name)
	}

	req := &model.CommunityRequest{
		Name:           name,
		Description:    description,
		PrivacyType:    privacy,
		RequesterID:    id.UserID,
		RequesterEmail: id.Email,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "community requested", "name", name, "request_id", req.ID)
	return req, nil
}

func (s *CommunityService) ListRequests(ctx context.Context, id *model.Identity, status model.RequestStatus) ([]model.CommunityRequest, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return s.requests.List(ctx, status)
}

// ApproveRequest 与直接创建走同一个事务
func (s *CommunityService) ApproveRequest(ctx context.Context, id *model.Identity, requestID string) (*model.Community, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	c, req, err := s.requests.Approve(ctx, requestID, id.UserID)
	if err != nil {
		s.log.WarnContext(ctx, "approve request failed", "request_id", requestID, "err", err)
		return nil, err
	}
	s.applyCreated(c.CreatorID, model.CommunitySnippet{UserID: c.CreatorID, CommunityID: c.ID, IsModerator: true}, "request")
	s.notify(ctx, *req, true)
	return c, nil
}

func (s *CommunityService) RejectRequest(ctx context.Context, id *model.Identity, requestID string) (*model.CommunityRequest, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	req, err := s.requests.Reject(ctx, requestID, id.UserID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, *req, false)
	return req, nil
}

func (s *CommunityService) notify(ctx context.Context, req model.CommunityRequest, approved bool) {
	if s.notifier == nil || req.RequesterEmail == "" {
		return
	}
	if err := s.notifier.RequestReviewed(ctx, req, approved); err != nil {
		s.log.WarnContext(ctx, "request notification failed", "request_id", req.ID, "err", err)
	}
}

// GetCommunity 进入社区页面，登录用户的会话记录当前社区
func (s *CommunityService) GetCommunity(ctx context.Context, id *model.Identity, communityID string) (*model.Community, error) {
	c, err := s.communities.Get(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if id != nil {
		s.sessions.Get(id.UserID).SetCurrentCommunity(*c)
	}
	return c, nil
}

// LeaveCommunityView 离开社区页面
func (s *CommunityService) LeaveCommunityView(id *model.Identity) error {
	if id == nil {
		return model.ErrUnauthenticated
	}
	s.sessions.Get(id.UserID).ResetCurrentCommunity()
	return nil
}

func (s *CommunityService) ListCommunities(ctx context.Context, page, size int) ([]model.Community, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	return s.communities.List(ctx, (page-1)*size, size)
}

// UpdateImage 仅创建者可修改社区头像
func (s *CommunityService) UpdateImage(ctx context.Context, id *model.Identity, communityID, contentType string, data []byte) (string, error) {
	if id == nil {
		return "", model.ErrUnauthenticated
	}
	if len(data) == 0 {
		return "", model.NewValidationError("image required")
	}
	c, err := s.communities.Get(ctx, communityID)
	if err != nil {
		return "", err
	}
	if c.CreatorID != id.UserID {
		return "", model.NewUnauthorizedError("only the creator can change the community image")
	}
	url, err := s.objects.Upload(ctx, storage.CommunityImagePath(communityID), contentType, data)
	if err != nil {
		return "", err
	}
	if err := s.communities.UpdateImageURL(ctx, communityID, url); err != nil {
		return "", err
	}
	s.sessions.Get(id.UserID).ApplyCommunityImage(communityID, url)
	return url, nil
}

func requireAdmin(id *model.Identity) error {
	if id == nil {
		return model.ErrUnauthenticated
	}
	if !id.IsAdmin {
		return model.NewUnauthorizedError("administrator access required")
	}
	return nil
}
