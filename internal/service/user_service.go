package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"Med_Community/internal/model"
	"Med_Community/internal/pkg"
	"Med_Community/internal/projection"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
)

type UserService struct {
	users    UserStore
	tokens   TokenStore
	snippets MembershipStore
	emails   *EmailService
	jwt      *pkg.TokenManager
	admins   map[string]struct{}
	sessions *projection.Registry
	log      *slog.Logger
}

func NewUserService(users UserStore, tokens TokenStore, snippets MembershipStore, emails *EmailService,
	jwt *pkg.TokenManager, adminEmails []string, sessions *projection.Registry, log *slog.Logger) *UserService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		admins[normalizeEmail(e)] = struct{}{}
	}
	return &UserService{
		users:    users,
		tokens:   tokens,
		snippets: snippets,
		emails:   emails,
		jwt:      jwt,
		admins:   admins,
		sessions: sessions,
		log:      log.With("component", "user"),
	}
}

// roleFor 只有验证过邮箱且在 ADMIN_EMAILS 中的用户才是管理员
func (s *UserService) roleFor(user *model.User) int {
	if !user.EmailVerified {
		return model.RoleMember
	}
	if _, ok := s.admins[normalizeEmail(user.Email)]; ok {
		return model.RoleAdmin
	}
	return model.RoleMember
}

func (s *UserService) syncRole(ctx context.Context, user *model.User) error {
	role := s.roleFor(user)
	if role == user.Role {
		return nil
	}
	if err := s.users.UpdateRole(ctx, user.ID, role); err != nil {
		return err
	}
	user.Role = role
	return nil
}

// Register 邮箱统一小写存储，新用户一律是普通成员
func (s *UserService) Register(ctx context.Context, username, password, email string) error {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || len(password) < 6 {
		return model.NewValidationError("username, email and a password of at least 6 characters are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.Create(ctx, &model.User{
		Username: username,
		Password: string(hash),
		Email:    email,
		Role:     model.RoleMember,
	})
}

// Login 登录成功后写 token 并开启新的会话视图
func (s *UserService) Login(ctx context.Context, username, password string) (*pkg.Pair, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, ErrInvalidPassword
	}

	// ADMIN_EMAILS 变化后在登录时同步角色
	if err := s.syncRole(ctx, user); err != nil {
		return nil, err
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	p := s.sessions.Open(user.ID)
	if list, err := s.snippets.ListSnippets(ctx, user.ID); err != nil {
		s.log.WarnContext(ctx, "load snippets failed", "user_id", user.ID, "err", err)
	} else {
		p.SetSnippets(list)
	}
	return pair, nil
}

func (s *UserService) issue(ctx context.Context, user *model.User) (*pkg.Pair, error) {
	pair, err := s.jwt.GeneratePair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.AddUserToken(ctx, user.ID, pair.AccessToken); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout 删除 token，清空会话里的 snippet 和投票
func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	if err := s.tokens.DeleteUserToken(ctx, userID); err != nil {
		return err
	}
	s.sessions.Close(userID)
	return nil
}

func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := s.jwt.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return s.issue(ctx, user)
}

// SendVerification 给当前用户的注册邮箱发验证码
func (s *UserService) SendVerification(ctx context.Context, userID uint64) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if user.EmailVerified {
		return model.NewValidationError("email already verified")
	}
	return s.emails.SendCode(ctx, ScopeVerify, user.Email)
}

// VerifyEmail 验证通过后同步角色并换发 token，新 token 带上最新角色
func (s *UserService) VerifyEmail(ctx context.Context, userID uint64, code string) (*pkg.Pair, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.EmailVerified {
		ok, err := s.emails.VerifyCode(ctx, ScopeVerify, user.Email, code)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, model.NewValidationError("invalid or expired code")
		}
		if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
			return nil, err
		}
		user.EmailVerified = true
	}
	if err := s.syncRole(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// SendResetCode 邮箱未注册时静默返回
func (s *UserService) SendResetCode(ctx context.Context, email string) error {
	if _, err := s.users.FindByEmail(ctx, normalizeEmail(email)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.emails.SendCode(ctx, ScopeReset, email)
}

// ResetPassword 凭邮箱验证码重置密码，并踢掉已有登录
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < 6 {
		return model.NewValidationError("password must be at least 6 characters")
	}
	ok, err := s.emails.VerifyCode(ctx, ScopeReset, email, code)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewValidationError("invalid or expired code")
	}
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return ErrUserNotFound
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user, string(hash)); err != nil {
		return err
	}
	// 重置密码相当于证明了邮箱归属
	if !user.EmailVerified {
		if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
			return err
		}
	}
	return s.Logout(ctx, user.ID)
}

// ChangePassword 修改密码后强制重新登录
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return model.NewValidationError("old password is incorrect")
	}
	if len(newPassword) < 6 {
		return model.NewValidationError("password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user, string(hash)); err != nil {
		return err
	}
	return s.Logout(ctx, userID)
}

// Authenticate 校验 access token 与 Redis 中的最新 token 一致，并续期
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.Identity, error) {
	claims, err := s.jwt.ParseAccess(token)
	if err != nil {
		return nil, err
	}
	current, err := s.tokens.GetUserToken(ctx, claims.UserID)
	if err != nil || current != token {
		return nil, model.ErrUnauthenticated
	}
	if err := s.tokens.ExtendUserToken(ctx, claims.UserID); err != nil {
		return nil, err
	}
	return &model.Identity{
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: DisplayName(claims.Email),
		IsAdmin:     claims.Role == model.RoleAdmin,
	}, nil
}
