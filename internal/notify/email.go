package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"

	"github.com/orderdesk-ai/server/internal/agent/model"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// EmailNotifier mails handoff records to the support inbox over SMTP with
// STARTTLS.
type EmailNotifier struct {
	to   string
	host string
	port int
	user string
	pass string
}

// NewEmailNotifier returns nil unless the full SMTP configuration is set.
func NewEmailNotifier(cfg model.NotifyConfig) *EmailNotifier {
	if cfg.SupportEmail == "" || cfg.SMTPHost == "" || cfg.SMTPUser == "" || cfg.SMTPPass == "" {
		return nil
	}
	return &EmailNotifier{
		to:   cfg.SupportEmail,
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
	}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Notify(ctx context.Context, payload map[string]any) bool {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		logx.Error().Err(err).Msg("failed to marshal email handoff payload")
		return false
	}

	msg := fmt.Sprintf("Subject: New Support Handoff\r\nFrom: %s\r\nTo: %s\r\n\r\n%s\r\n",
		e.user, e.to, body)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.user, e.pass, e.host)
	if err := smtp.SendMail(addr, auth, e.user, []string{e.to}, []byte(msg)); err != nil {
		logx.Warn().Err(err).Str("to", e.to).Msg("email handoff notification failed")
		return false
	}
	return true
}
