package model

import "time"

// ArticleLike 用户对医学文章的点赞
type ArticleLike struct {
	ArticleID string    `gorm:"primaryKey;size:64" json:"articleId"`
	UserID    uint64    `gorm:"primaryKey;autoIncrement:false" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// SavedArticle 用户收藏的文章
type SavedArticle struct {
	UserID    uint64    `gorm:"primaryKey;autoIncrement:false" json:"-"`
	ArticleID string    `gorm:"primaryKey;size:64" json:"articleId"`
	Title     string    `gorm:"size:300" json:"title"`
	URL       string    `gorm:"size:512" json:"url"`
	Source    string    `gorm:"size:64" json:"source"`
	CreatedAt time.Time `json:"savedAt"`
}

// Article 外部文章，分享到社区时使用
type Article struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
	Source  string `json:"source"`
}
