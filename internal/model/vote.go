package model

import "time"

// PostVote 用户对帖子的投票，主键 (user_id, post_id)，没有记录即为 0
type PostVote struct {
	UserID      uint64    `gorm:"primaryKey;autoIncrement:false" json:"-"`
	PostID      string    `gorm:"primaryKey;size:36" json:"postId"`
	CommunityID string    `gorm:"size:21;not null;index" json:"communityId"`
	VoteValue   int8      `gorm:"not null" json:"voteValue"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

type VoteAction string

const (
	VoteCreated VoteAction = "created"
	VoteRemoved VoteAction = "removed"
	VoteFlipped VoteAction = "flipped"
)

// VoteOutcome 一次投票事务提交后的结果，Value=0 表示投票被撤销
type VoteOutcome struct {
	PostID      string     `json:"postId"`
	CommunityID string     `json:"communityId"`
	Action      VoteAction `json:"action"`
	Delta       int64      `json:"delta"`
	Value       int8       `json:"voteValue"`
	VoteStatus  int64      `json:"voteStatus"`
	// Version 写入后帖子的版本号
	Version int64 `json:"-"`
}

// DecideVote 根据已有投票和期望投票计算动作、计数增量和新值
// existing=0 表示没有投票
func DecideVote(existing, desired int8) (VoteAction, int64, int8) {
	switch {
	case existing == 0:
		return VoteCreated, int64(desired), desired
	case existing == desired:
		return VoteRemoved, -int64(existing), 0
	default:
		return VoteFlipped, 2 * int64(desired), desired
	}
}
