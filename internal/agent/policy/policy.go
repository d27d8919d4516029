// Package policy applies the business rules of the support desk to a
// resolved turn: complaint tickets, cancellations, and the return/refund
// window, escalating to a human whenever a rule says no.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/orderdesk-ai/server/internal/agent/model"
	"github.com/orderdesk-ai/server/internal/escalate"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// Engine decides which actions a turn warrants. It only reads order facts
// and appends actions; it never mutates facts or memory.
type Engine struct {
	clock    Clock
	escalate *escalate.Service
	cfg      model.PolicyConfig
}

func NewEngine(clock Clock, esc *escalate.Service, cfg model.PolicyConfig) *Engine {
	if clock == nil {
		clock = realClock{}
	}
	return &Engine{clock: clock, escalate: esc, cfg: cfg}
}

// Decide runs every applicable rule against the turn. Complaint tickets
// fire regardless of intent; the intent-specific rules follow.
func (e *Engine) Decide(ctx context.Context, st *model.TurnState) {
	facts := st.Facts
	if facts == nil {
		return
	}

	if facts.LowReview {
		st.AddAction(e.newTicket(facts.OrderID, "low review complaint"))
	}
	if facts.IsDelayed {
		st.AddAction(e.newTicket(facts.OrderID, "late delivery"))
	}

	switch st.Intent {
	case model.IntentCancel:
		e.decideCancel(ctx, st, facts)
	case model.IntentRefund, model.IntentReturn:
		e.decideReturn(ctx, st, facts)
	}
}

func (e *Engine) decideCancel(ctx context.Context, st *model.TurnState, facts *model.OrderFacts) {
	if !model.PreDeliveryStatus(facts.OrderStatus) {
		st.AddAction(e.escalate.ToHuman(ctx, facts.OrderID, "cancel after delivery not supported", map[string]any{
			"status": facts.OrderStatus,
		}))
		return
	}
	st.AddAction(model.Action{
		Type:     model.ActionCancel,
		OrderID:  facts.OrderID,
		CancelID: "CXL-" + shortID(8),
		Status:   "requested",
		Reason:   "user requested cancel",
	})
	logx.Info().Str("order_id", facts.OrderID).Msg("cancellation requested")
}

func (e *Engine) decideReturn(ctx context.Context, st *model.TurnState, facts *model.OrderFacts) {
	elig := CheckEligibility(facts, e.clock.Today(ctx), e.cfg.ReturnWindowDays)
	if !elig.Eligible {
		st.AddAction(e.escalate.ToHuman(ctx, facts.OrderID, fmt.Sprintf("%s not eligible", st.Intent), map[string]any{
			"eligibility": elig,
		}))
		return
	}

	action := model.Action{
		OrderID: facts.OrderID,
		RMAID:   "RMA-" + shortID(8),
		Status:  "initiated",
		Reason:  fmt.Sprintf("user requested %s", st.Intent),
	}
	if st.Intent == model.IntentRefund {
		action.Type = model.ActionRefund
		action.RefundID = "RF-" + shortID(6)
	} else {
		action.Type = model.ActionReturn
	}
	st.AddAction(action)
	logx.Info().Str("order_id", facts.OrderID).Str("rma_id", action.RMAID).Msg("return initiated")
}

func (e *Engine) newTicket(orderID, issue string) model.Action {
	return model.Action{
		Type:     model.ActionTicket,
		OrderID:  orderID,
		TicketID: "TKT-" + shortID(6),
		Status:   "open",
		Issue:    issue,
	}
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
