package service

import (
	"context"
	"log/slog"

	"Med_Community/internal/model"
	"Med_Community/internal/pkg"
	"Med_Community/internal/projection"
)

// MembershipService 加入/退出社区
type MembershipService struct {
	store    MembershipStore
	guard    Guard
	sessions *projection.Registry
	log      *slog.Logger
}

func NewMembershipService(store MembershipStore, guard Guard, sessions *projection.Registry, log *slog.Logger) *MembershipService {
	return &MembershipService{store: store, guard: guard, sessions: sessions, log: log.With("component", "membership")}
}

// OnJoinOrLeaveCommunity 根据当前是否已加入分发到 leave 或 join
func (s *MembershipService) OnJoinOrLeaveCommunity(ctx context.Context, id *model.Identity, communityID string, isJoined bool) (model.MembershipOutcome, error) {
	if id == nil {
		return model.MembershipOutcome{}, model.ErrUnauthenticated
	}
	if isJoined {
		return s.LeaveCommunity(ctx, id, communityID)
	}
	return s.JoinCommunity(ctx, id, communityID)
}

// ToggleMembership 用会话里的 snippet 判断是否已加入
func (s *MembershipService) ToggleMembership(ctx context.Context, id *model.Identity, communityID string) (model.MembershipOutcome, error) {
	if id == nil {
		return model.MembershipOutcome{}, model.ErrUnauthenticated
	}
	p := s.sessions.Get(id.UserID)
	if err := s.ensureSnippets(ctx, p); err != nil {
		return model.MembershipOutcome{}, err
	}
	return s.OnJoinOrLeaveCommunity(ctx, id, communityID, p.IsMember(communityID))
}

func (s *MembershipService) JoinCommunity(ctx context.Context, id *model.Identity, communityID string) (model.MembershipOutcome, error) {
	return s.mutate(ctx, id, communityID, s.store.Join)
}

func (s *MembershipService) LeaveCommunity(ctx context.Context, id *model.Identity, communityID string) (model.MembershipOutcome, error) {
	return s.mutate(ctx, id, communityID, s.store.Leave)
}

func (s *MembershipService) mutate(ctx context.Context, id *model.Identity, communityID string,
	op func(context.Context, uint64, string) (model.MembershipOutcome, error)) (model.MembershipOutcome, error) {
	if id == nil {
		return model.MembershipOutcome{}, model.ErrUnauthenticated
	}
	if communityID == "" {
		return model.MembershipOutcome{}, model.NewValidationError("community id required")
	}

	var out model.MembershipOutcome
	err := withGuard(ctx, s.guard, memberGuardKey(id.UserID, communityID), func() error {
		var err error
		out, err = op(ctx, id.UserID, communityID)
		return err
	})
	if err != nil {
		s.log.WarnContext(ctx, "membership change failed", "community_id", communityID, "err", err)
		return model.MembershipOutcome{}, err
	}
	s.applyMembership(id.UserID, out)
	return out, nil
}

// applyMembership 事务成功后同步会话视图
func (s *MembershipService) applyMembership(userID uint64, out model.MembershipOutcome) {
	s.sessions.Get(userID).ApplyMembership(out)
	if !out.Changed {
		return
	}
	action := "leave"
	if out.Joined {
		action = "join"
	}
	pkg.MembershipChanges.WithLabelValues(action).Inc()
}

// LoadSnippets 登录后或首次访问时拉取用户加入的社区
func (s *MembershipService) LoadSnippets(ctx context.Context, id *model.Identity) ([]model.CommunitySnippet, error) {
	if id == nil {
		return nil, model.ErrUnauthenticated
	}
	list, err := s.store.ListSnippets(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	s.sessions.Get(id.UserID).SetSnippets(list)
	return list, nil
}

func (s *MembershipService) ensureSnippets(ctx context.Context, p *projection.Projection) error {
	if p.SnippetsFetched() {
		return nil
	}
	list, err := s.store.ListSnippets(ctx, p.UserID())
	if err != nil {
		return err
	}
	p.SetSnippets(list)
	return nil
}
