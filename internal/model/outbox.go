package model

import "time"

const (
	EventVoteCast         = "vote_cast"
	EventMemberJoined     = "member_joined"
	EventMemberLeft       = "member_left"
	EventCommunityCreated = "community_created"
	EventRequestApproved  = "request_approved"
)

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// LedgerOutbox 与业务写入同一事务的事件表，由 relayer 异步投递
type LedgerOutbox struct {
	ID          uint64 `gorm:"primaryKey"`
	EventType   string `gorm:"size:32;not null"`
	AggregateID string `gorm:"size:36;not null"`
	UserID      uint64 `gorm:"not null"`
	Payload     string `gorm:"type:text;not null"`
	Status      int8   `gorm:"not null;default:0;index"`
	Retry       int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (LedgerOutbox) TableName() string { return "ledger_outbox" }
