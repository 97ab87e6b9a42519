package model

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// CommunityRequest 普通用户提交的建社区申请，由管理员审批
type CommunityRequest struct {
	ID             string        `gorm:"primaryKey;size:36" json:"id"`
	Name           string        `gorm:"size:21;not null;index" json:"name"`
	Description    string        `gorm:"type:text" json:"description"`
	PrivacyType    PrivacyType   `gorm:"size:16;not null" json:"type"`
	RequesterID    uint64        `gorm:"not null;index" json:"userId"`
	RequesterEmail string        `gorm:"size:64" json:"userEmail"`
	Status         RequestStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`
	ReviewerID     *uint64       `json:"reviewerId,omitempty"`
	ReviewedAt     *time.Time    `json:"reviewedAt,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"-"`
}
