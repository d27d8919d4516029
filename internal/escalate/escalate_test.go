package escalate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk-ai/server/internal/agent/model"
	"github.com/orderdesk-ai/server/internal/auditlog"
	"github.com/orderdesk-ai/server/internal/notify"
)

type stubNotifier struct {
	name string
	ok   bool
	got  map[string]any
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Notify(_ context.Context, payload map[string]any) bool {
	s.got = payload
	return s.ok
}

func TestToHumanRecordsChannelOutcomes(t *testing.T) {
	slack := &stubNotifier{name: "Slack", ok: true}
	email := &stubNotifier{name: "email", ok: false}
	path := filepath.Join(t.TempDir(), "handoffs.jsonl")

	svc := NewService([]notify.Notifier{slack, email}, auditlog.NewSink(path))
	action := svc.ToHuman(context.Background(), "abc123", "cancel after delivery not supported", map[string]any{"status": "delivered"})

	assert.Equal(t, model.ActionHandoff, action.Type)
	assert.True(t, action.Handoff)
	assert.Equal(t, "awaiting_human", action.Status)
	assert.True(t, action.NotifiedSlack)
	assert.False(t, action.NotifiedEmail)
	assert.Equal(t, "delivered", action.Extra["status"])
	require.NotNil(t, slack.got)
	assert.Equal(t, "abc123", slack.got["order_id"])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &rec))
	assert.Equal(t, "cancel after delivery not supported", rec["issue"])
	assert.Equal(t, true, rec["notified_slack"])
	assert.Equal(t, false, rec["notified_email"])
	assert.NotEmpty(t, rec["handoff_id"])
}

func TestToHumanWithoutChannelsStillActs(t *testing.T) {
	svc := NewService(nil, nil)
	action := svc.ToHuman(context.Background(), "", "user requested human support", nil)

	assert.True(t, action.Handoff)
	assert.False(t, action.NotifiedSlack)
	assert.False(t, action.NotifiedEmail)
	assert.NotNil(t, action.Extra)
}
