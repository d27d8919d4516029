package nodes

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk-ai/server/internal/agent/model"
)

func reviewPtr(n int) *int { return &n }

func manyOrders(n int) []model.OrderFacts {
	orders := make([]model.OrderFacts, 0, n)
	for i := 0; i < n; i++ {
		orders = append(orders, model.OrderFacts{
			OrderID:       fmt.Sprintf("order%02d", i),
			CustomerEmail: "jane@example.com",
			FirstName:     "Jane",
			LastName:      "Doe",
			OrderStatus:   model.StatusDelivered,
			PurchaseDate:  time.Date(2018, 3, n-i, 0, 0, 0, 0, time.UTC),
			TotalPayment:  72.19,
			PaymentType:   "credit_card",
			NumItems:      2,
			ReviewScore:   reviewPtr(4),
		})
	}
	return orders
}

func TestOrderListingCapsAtFiveAndCountsAll(t *testing.T) {
	out := orderListing(manyOrders(7))

	assert.True(t, strings.HasPrefix(out, "Found 7 orders for Jane Doe <jane@example.com>"), out)
	assert.Contains(t, out, "Most recent orders:")

	listed := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "- ") {
			listed++
		}
	}
	assert.Equal(t, 5, listed)
	assert.Contains(t, out, "- order00 | delivered | 2018-03-07 | 72.19 via credit_card | items=2 | review=4")
}

func TestHandoffNoticeNamesChannels(t *testing.T) {
	st := model.NewTurnState(model.TurnInput{ConversationID: "c1", Query: "yes"})
	st.Memory.AutoHandoff = true
	st.Memory.CurrentOrderID = "abc123"
	st.AddAction(model.Action{Type: model.ActionHandoff, Handoff: true, NotifiedSlack: true})

	out := handoffNotice(st)
	assert.Contains(t, out, "escalated this conversation to a human support agent")
	assert.Contains(t, out, "Reference order: abc123.")
	assert.Contains(t, out, "via Slack.")
}

func TestHandoffChannelLabels(t *testing.T) {
	mk := func(slack, email bool) []model.Action {
		return []model.Action{{Handoff: true, NotifiedSlack: slack, NotifiedEmail: email}}
	}
	assert.Equal(t, "Slack and email", handoffChannels(mk(true, true)))
	assert.Equal(t, "Slack", handoffChannels(mk(true, false)))
	assert.Equal(t, "email", handoffChannels(mk(false, true)))
	assert.Equal(t, "log", handoffChannels(mk(false, false)))
	assert.Equal(t, "log", handoffChannels(nil))
}

func TestWithActionsAppendsRenderedSection(t *testing.T) {
	actions := []model.Action{
		{Type: model.ActionTicket, TicketID: "TKT-abc123", Issue: "late delivery"},
		{Type: model.ActionCancel, CancelID: "CXL-deadbeef", Status: "requested"},
	}
	out := withActions("Here is your order status.", actions)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Here is your order status.", lines[0])
	assert.Equal(t, "Actions taken:", lines[2])
	assert.Contains(t, lines[3], "TKT-abc123")
	assert.Contains(t, lines[4], "CXL-deadbeef")
}

func TestWithActionsPlainWhenNone(t *testing.T) {
	assert.Equal(t, "answer", withActions("answer", nil))
}
