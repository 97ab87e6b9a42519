package model

import "time"

const (
	RoleMember = 0
	RoleAdmin  = 1
)

type User struct {
	ID       uint64 `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex;size:32;not null"`
	Password string `gorm:"size:255;not null"`
	Role     int    `gorm:"default:0"`
	Email    string `gorm:"uniqueIndex;size:64;not null"`
	// 管理员身份依赖邮箱归属，未验证前 Role 恒为 RoleMember
	EmailVerified bool `gorm:"default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identity 当前登录用户，nil 表示未登录
type Identity struct {
	UserID      uint64
	Email       string
	DisplayName string
	IsAdmin     bool
}
