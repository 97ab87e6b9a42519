package service

import (
	"context"
	"log/slog"

	"Med_Community/internal/model"
	"Med_Community/internal/pkg"
	"Med_Community/internal/projection"
)

// VoteService 投票引擎
type VoteService struct {
	store    VoteStore
	counts   VoteCounter
	guard    Guard
	sessions *projection.Registry
	log      *slog.Logger
}

func NewVoteService(store VoteStore, counts VoteCounter, guard Guard, sessions *projection.Registry, log *slog.Logger) *VoteService {
	return &VoteService{store: store, counts: counts, guard: guard, sessions: sessions, log: log.With("component", "vote")}
}

// CastVote 对帖子投 +1/-1。重复同值撤销，异值翻转
func (s *VoteService) CastVote(ctx context.Context, id *model.Identity, postID, communityID string, desired int8) (model.VoteOutcome, error) {
	if id == nil {
		return model.VoteOutcome{}, model.ErrUnauthenticated
	}
	if desired != 1 && desired != -1 {
		return model.VoteOutcome{}, model.NewValidationError("vote must be 1 or -1")
	}
	if postID == "" {
		return model.VoteOutcome{}, model.NewValidationError("post id required")
	}

	var out model.VoteOutcome
	err := withGuard(ctx, s.guard, voteGuardKey(id.UserID, postID), func() error {
		var err error
		out, err = s.store.CastVote(ctx, id.UserID, postID, communityID, desired)
		return err
	})
	if err != nil {
		s.log.WarnContext(ctx, "vote failed", "post_id", postID, "err", err)
		return model.VoteOutcome{}, err
	}
	s.applyVote(ctx, id.UserID, out)
	return out, nil
}

// applyVote 事务成功后唯一的同步入口：会话视图 + 计数缓存
func (s *VoteService) applyVote(ctx context.Context, userID uint64, out model.VoteOutcome) {
	s.sessions.Get(userID).ApplyVote(userID, out)
	if s.counts != nil {
		if _, err := s.counts.StoreVoteStatus(ctx, out.PostID, out.VoteStatus, out.Version); err != nil {
			s.log.WarnContext(ctx, "vote cache store failed", "post_id", out.PostID, "err", err)
		}
	}
	pkg.VotesCast.WithLabelValues(string(out.Action)).Inc()
}

// LoadCommunityVotes 进入社区时加载用户在该社区的投票
func (s *VoteService) LoadCommunityVotes(ctx context.Context, id *model.Identity, communityID string) ([]model.PostVote, error) {
	if id == nil {
		return nil, model.ErrUnauthenticated
	}
	votes, err := s.store.ListVotes(ctx, id.UserID, communityID)
	if err != nil {
		return nil, err
	}
	s.sessions.Get(id.UserID).SetVotes(votes)
	return votes, nil
}
