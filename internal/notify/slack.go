package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/orderdesk-ai/server/internal/agent/model"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// SlackNotifier posts handoff records to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier returns nil when no webhook URL is configured.
func NewSlackNotifier(cfg model.NotifyConfig) *SlackNotifier {
	if cfg.SlackWebhookURL == "" {
		return nil
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackNotifier{
		webhookURL: cfg.SlackWebhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *SlackNotifier) Name() string { return "Slack" }

func (s *SlackNotifier) Notify(ctx context.Context, payload map[string]any) bool {
	pretty, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		logx.Error().Err(err).Msg("failed to marshal slack handoff payload")
		return false
	}

	body, err := json.Marshal(map[string]string{
		"text": "*New Support Handoff*\n```" + string(pretty) + "```",
	})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logx.Warn().Err(err).Msg("slack handoff notification failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logx.Warn().Int("status", resp.StatusCode).Msg("slack webhook rejected handoff")
		return false
	}
	return true
}
