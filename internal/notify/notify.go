// Package notify delivers handoff payloads to the configured human
// channels. Every channel is optional and fail-soft: a notifier reports
// success or failure, it never returns an error that could fail a turn.
package notify

import (
	"context"

	"github.com/orderdesk-ai/server/internal/agent/model"
)

// Notifier is one delivery channel for handoff records.
type Notifier interface {
	// Name identifies the channel in composed replies ("Slack", "email").
	Name() string

	// Notify delivers the payload and reports whether it succeeded.
	Notify(ctx context.Context, payload map[string]any) bool
}

// FromConfig builds the notifiers that are actually configured. An empty
// slice is valid: escalations then fall back to the audit log only.
func FromConfig(cfg model.NotifyConfig) []Notifier {
	var out []Notifier
	if slack := NewSlackNotifier(cfg); slack != nil {
		out = append(out, slack)
	}
	if mail := NewEmailNotifier(cfg); mail != nil {
		out = append(out, mail)
	}
	return out
}
