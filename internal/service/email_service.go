package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"Med_Community/internal/model"
	"Med_Community/internal/pkg"
)

const (
	ScopeVerify = "verify"
	ScopeReset  = "reset"
)

var ErrMailDisabled = errors.New("mail delivery is not configured")

type CodeStore interface {
	SetPending(ctx context.Context, scope, email, code string) error
	Confirm(ctx context.Context, scope, email string) error
	DeletePending(ctx context.Context, scope, email string) error
	Consume(ctx context.Context, scope, email, code string) (bool, error)
}

// MailSender 发一封 HTML 邮件
type MailSender func(ctx context.Context, to, subject, html string) error

func SMTPSender(cfg pkg.SMTPConfig) MailSender {
	return func(_ context.Context, to, subject, html string) error {
		return pkg.SendEmail(cfg, to, subject, html)
	}
}

type EmailService struct {
	codes CodeStore
	send  MailSender
	ttl   time.Duration
	log   *slog.Logger
}

// NewEmailService send 为 nil 时不发信，SendCode 返回 ErrMailDisabled
func NewEmailService(codes CodeStore, send MailSender, ttl time.Duration, log *slog.Logger) *EmailService {
	return &EmailService{codes: codes, send: send, ttl: ttl, log: log.With("component", "email")}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SendCode 先写 pending，发信成功后转 confirmed
func (s *EmailService) SendCode(ctx context.Context, scope, email string) error {
	if scope != ScopeVerify && scope != ScopeReset {
		return model.NewValidationError("invalid scope")
	}
	if s.send == nil {
		return ErrMailDisabled
	}
	email = normalizeEmail(email)
	code, err := pkg.RandDigits(6)
	if err != nil {
		return err
	}
	if err := s.codes.SetPending(ctx, scope, email, code); err != nil {
		return err
	}

	subject, purpose := "Verify your email", "email verification"
	if scope == ScopeReset {
		subject, purpose = "Reset your password", "password reset"
	}
	if err := s.send(ctx, email, subject, pkg.EmailCodeHTML(purpose, code, s.ttl)); err != nil {
		_ = s.codes.DeletePending(ctx, scope, email)
		s.log.WarnContext(ctx, "send code failed", "scope", scope, "err", err)
		return err
	}

	if err := s.codes.Confirm(ctx, scope, email); err != nil {
		_ = s.codes.DeletePending(ctx, scope, email)
		return err
	}
	return nil
}

// VerifyCode 校验验证码并一次性删除
func (s *EmailService) VerifyCode(ctx context.Context, scope, email, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	return s.codes.Consume(ctx, scope, normalizeEmail(email), code)
}
