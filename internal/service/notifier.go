package service

import (
	"context"

	"Med_Community/internal/model"
	"Med_Community/internal/pkg"
)

// MailNotifier 用 SMTP 通知申请人审批结果
type MailNotifier struct {
	cfg  pkg.SMTPConfig
	send func(cfg pkg.SMTPConfig, to, subject, html string) error
}

func NewMailNotifier(cfg pkg.SMTPConfig) *MailNotifier {
	return &MailNotifier{cfg: cfg, send: pkg.SendEmail}
}

func (n *MailNotifier) RequestReviewed(ctx context.Context, req model.CommunityRequest, approved bool) error {
	if !n.cfg.Enabled() {
		return nil
	}
	subject := "Your community request was not approved"
	if approved {
		subject = "Your community request was approved"
	}
	return n.send(n.cfg, req.RequesterEmail, subject, pkg.RequestReviewHTML(req.Name, approved))
}
