// Package escalate hands a conversation to a human: it writes the durable
// handoff record and fans out to the configured notification channels.
package escalate

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderdesk-ai/server/internal/agent/model"
	"github.com/orderdesk-ai/server/internal/auditlog"
	"github.com/orderdesk-ai/server/internal/notify"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// Service performs human handoffs. All failure modes are soft: a handoff
// that reaches no channel still produces an action and an audit attempt.
type Service struct {
	notifiers []notify.Notifier
	handoffs  *auditlog.Sink
}

func NewService(notifiers []notify.Notifier, handoffs *auditlog.Sink) *Service {
	return &Service{notifiers: notifiers, handoffs: handoffs}
}

// ToHuman logs a handoff and notifies the configured channels. The
// returned action carries which channels succeeded so the composer can
// report them.
func (s *Service) ToHuman(ctx context.Context, orderID, issue string, extra map[string]any) model.Action {
	if extra == nil {
		extra = map[string]any{}
	}

	action := model.Action{
		Type:    model.ActionHandoff,
		Handoff: true,
		Status:  "awaiting_human",
		OrderID: orderID,
		Issue:   issue,
		Extra:   extra,
	}

	payload := map[string]any{
		"handoff":    true,
		"handoff_id": uuid.NewString(),
		"status":     action.Status,
		"order_id":   orderID,
		"issue":      issue,
		"extra":      extra,
	}

	for _, n := range s.notifiers {
		ok := n.Notify(ctx, payload)
		switch n.Name() {
		case "Slack":
			action.NotifiedSlack = ok
		case "email":
			action.NotifiedEmail = ok
		}
		if !ok {
			logx.Warn().Str("channel", n.Name()).Str("issue", issue).Msg("handoff notification failed")
		}
	}

	payload["notified_slack"] = action.NotifiedSlack
	payload["notified_email"] = action.NotifiedEmail
	if s.handoffs != nil {
		s.handoffs.Append(payload)
	}

	logx.Info().
		Str("order_id", orderID).
		Str("issue", issue).
		Bool("notified_slack", action.NotifiedSlack).
		Bool("notified_email", action.NotifiedEmail).
		Msg("conversation handed off to human")

	return action
}
