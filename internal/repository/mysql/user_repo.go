package mysql

import (
	"context"
	"errors"
	"strings"

	"Med_Community/internal/model"

	"gorm.io/gorm"
)

var ErrUserExists = errors.New("username or email already registered")

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// Create 邮箱小写后再写入，唯一索引对大小写变体同样生效
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	err := r.DB.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	return err
}

// FindByUsername 用户名或邮箱都可以登录
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ? OR email = ?", username, strings.ToLower(username)).First(&user).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	return &user, err
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, userID uint64) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("email_verified", true).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, user *model.User, newPassword string) error {
	return r.DB.WithContext(ctx).Model(user).Update("password", newPassword).Error
}

func (r *UserRepository) UpdateRole(ctx context.Context, userID uint64, role int) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("role", role).Error
}
