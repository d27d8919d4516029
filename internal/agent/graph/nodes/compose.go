package nodes

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/orderdesk-ai/server/internal/agent/graph/prompts"
	"github.com/orderdesk-ai/server/internal/agent/llm"
	"github.com/orderdesk-ai/server/internal/agent/model"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

const clarificationText = "I could not find your order. Please share your order id or the email used for purchase."

const maxListedOrders = 5

// NewComposeNode renders the final reply. The branches are ordered and the
// first match wins: handoff notice, multi-order listing, knowledge answer,
// clarification, order-grounded answer.
func NewComposeNode(gen llm.Generator) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.TurnState) (*model.TurnResult, error) {
		switch {
		case st.Memory.AutoHandoff:
			st.Output = handoffNotice(st)
		case len(st.Orders) > 0:
			st.Output = orderListing(st.Orders)
		case st.Facts == nil && len(st.KBHits) > 0:
			st.Output = withActions(generate(ctx, gen, st, func() (string, error) {
				return prompts.RenderKB(ctx, st.Input, st.KBHits)
			}), st.Actions)
		case st.Facts == nil:
			st.Output = clarificationText
		default:
			st.Output = withActions(generate(ctx, gen, st, func() (string, error) {
				return prompts.RenderAnswer(ctx, st.Input, st.Facts, st.Hits)
			}), st.Actions)
		}

		logx.Debug().
			Str("conversation_id", st.ConversationID).
			Str("intent", string(st.Intent)).
			Int("actions", len(st.Actions)).
			Msg("turn composed")
		return st.Result(), nil
	})
}

// generate renders the prompt, calls the model, and books the latency. The
// generator contract means a failed call still yields displayable text.
func generate(ctx context.Context, gen llm.Generator, st *model.TurnState, render func() (string, error)) string {
	prompt, err := render()
	if err != nil {
		logx.Warn().Err(err).Msg("prompt render failed")
		return "Sorry, something went wrong while preparing your answer. Please try again."
	}

	answer, genMS := gen.Generate(ctx, prompt)
	st.Timings[model.TimingGenerationMS] = genMS
	if retrieveMS, ok := st.Timings[model.TimingRetrieveMS]; ok {
		st.Timings[model.TimingTotalMS] = retrieveMS + genMS
	}
	return answer
}

func handoffNotice(st *model.TurnState) string {
	lines := []string{"I've escalated this conversation to a human support agent."}
	if st.Memory.CurrentOrderID != "" {
		lines = append(lines, fmt.Sprintf("Reference order: %s.", st.Memory.CurrentOrderID))
	}
	lines = append(lines, fmt.Sprintf("A notification was sent via %s.", handoffChannels(st.Actions)))
	return strings.Join(lines, "\n")
}

// handoffChannels names which notification channels succeeded for the most
// recent handoff this turn, or "log" when none did.
func handoffChannels(actions []model.Action) string {
	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		if !a.Handoff {
			continue
		}
		switch {
		case a.NotifiedSlack && a.NotifiedEmail:
			return "Slack and email"
		case a.NotifiedSlack:
			return "Slack"
		case a.NotifiedEmail:
			return "email"
		}
		break
	}
	return "log"
}

func orderListing(orders []model.OrderFacts) string {
	first := orders[0]
	lines := []string{
		fmt.Sprintf("Found %d orders for %s %s <%s>", len(orders), first.FirstName, first.LastName, first.CustomerEmail),
		"",
		"Most recent orders:",
	}
	for i, o := range orders {
		if i >= maxListedOrders {
			break
		}
		lines = append(lines, orderLine(o))
	}
	return strings.Join(lines, "\n")
}

func orderLine(o model.OrderFacts) string {
	date := ""
	if !o.PurchaseDate.IsZero() {
		date = o.PurchaseDate.Format("2006-01-02")
	}
	review := ""
	if o.ReviewScore != nil {
		review = strconv.Itoa(*o.ReviewScore)
	}
	return fmt.Sprintf("- %s | %s | %s | %s via %s | items=%d | review=%s",
		o.OrderID, o.OrderStatus, date,
		strconv.FormatFloat(o.TotalPayment, 'f', -1, 64), o.PaymentType,
		o.NumItems, review)
}

func withActions(answer string, actions []model.Action) string {
	if len(actions) == 0 {
		return answer
	}
	lines := []string{answer, "", "Actions taken:"}
	for _, a := range actions {
		lines = append(lines, a.Render())
	}
	return strings.Join(lines, "\n")
}
