package model

import "time"

type PrivacyType string

const (
	PrivacyPublic     PrivacyType = "public"
	PrivacyRestricted PrivacyType = "restricted"
	PrivacyPrivate    PrivacyType = "private"
)

// Valid 只接受三种社区类型
func (p PrivacyType) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyRestricted, PrivacyPrivate:
		return true
	}
	return false
}

// Community 社区，名称即主键，创建后不可修改
type Community struct {
	ID              string      `gorm:"primaryKey;size:21" json:"id"`
	CreatorID       uint64      `gorm:"not null;index" json:"creatorId"`
	NumberOfMembers int64       `gorm:"not null;default:0" json:"numberOfMembers"`
	PrivacyType     PrivacyType `gorm:"size:16;not null;default:'public'" json:"privacyType"`
	ImageURL        string      `gorm:"size:512" json:"imageURL,omitempty"`
	Version         int64       `gorm:"not null;default:0" json:"-"` // 乐观锁版本号
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"-"`
}

// CommunitySnippet 用户加入社区的记录，(user_id, community_id) 唯一
type CommunitySnippet struct {
	UserID      uint64    `gorm:"primaryKey;autoIncrement:false" json:"-"`
	CommunityID string    `gorm:"primaryKey;size:21;index" json:"communityId"`
	IsModerator bool      `gorm:"not null;default:false" json:"isModerator"`
	ImageURL    string    `gorm:"size:512" json:"imageURL,omitempty"`
	CreatedAt   time.Time `json:"-"`
}

// MembershipOutcome 加入/退出事务的结果，Changed=false 表示幂等未变化
type MembershipOutcome struct {
	Snippet CommunitySnippet `json:"snippet"`
	Joined  bool             `json:"joined"`
	Changed bool             `json:"changed"`
	Delta   int64            `json:"delta"`
}
