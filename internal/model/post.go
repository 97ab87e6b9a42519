package model

import "time"

type Post struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	CommunityID        string    `gorm:"size:21;not null;index:idx_post_comm_time,priority:1" json:"communityId"`
	CreatorID          uint64    `gorm:"not null;index" json:"creatorId"`
	CreatorDisplayName string    `gorm:"size:64" json:"creatorDisplayName"`
	Title              string    `gorm:"size:300;not null" json:"title"`
	Body               string    `gorm:"type:text" json:"body"`
	NumberOfComments   int64     `gorm:"not null;default:0" json:"numberOfComments"`
	VoteStatus         int64     `gorm:"not null;default:0" json:"voteStatus"`
	ImageURL           string    `gorm:"size:512" json:"imageURL,omitempty"`
	CommunityImageURL  string    `gorm:"size:512" json:"communityImageURL,omitempty"`
	IsSharedArticle    bool      `gorm:"not null;default:false" json:"isSharedArticle"`
	Version            int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt          time.Time `gorm:"index:idx_post_comm_time,priority:2,sort:desc" json:"createdAt"`
	UpdatedAt          time.Time `json:"-"`
}

// Comment 评论，增删时同步帖子的 number_of_comments
type Comment struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	PostID             string    `gorm:"size:36;not null;index:idx_comment_post_time,priority:1" json:"postId"`
	CommunityID        string    `gorm:"size:21;not null" json:"communityId"`
	CreatorID          uint64    `gorm:"not null" json:"creatorId"`
	CreatorDisplayName string    `gorm:"size:64" json:"creatorDisplayName"`
	Text               string    `gorm:"type:text;not null" json:"text"`
	CreatedAt          time.Time `gorm:"index:idx_comment_post_time,priority:2,sort:desc" json:"createdAt"`
}
