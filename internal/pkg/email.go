package pkg

import (
	"crypto/tls"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

func NewEmailMessage(cfg SMTPConfig, to, subject, htmlBody string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)
	return m
}

func SendEmail(cfg SMTPConfig, to, subject, htmlBody string) error {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return d.DialAndSend(NewEmailMessage(cfg, to, subject, htmlBody))
}

// RequestReviewHTML 建社区申请审批结果通知
func RequestReviewHTML(name string, approved bool) string {
	name = html.EscapeString(name)
	if approved {
		return fmt.Sprintf(`<p>Hello,</p><p>Your request to create <b>h/%s</b> has been approved. You are its first moderator.</p>`, name)
	}
	return fmt.Sprintf(`<p>Hello,</p><p>Your request to create <b>h/%s</b> was not approved this time.</p>`, name)
}
