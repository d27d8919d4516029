package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk-ai/server/internal/agent/model"
	"github.com/orderdesk-ai/server/internal/auditlog"
)

func sampleFacts() *model.OrderFacts {
	return &model.OrderFacts{
		OrderID:       "e481f51cbdc54678",
		CustomerEmail: "jane@example.com",
		OrderStatus:   "delivered",
		TotalPayment:  72.19,
		PaymentType:   "credit_card",
	}
}

func TestGroundingScoreAllFactsPresent(t *testing.T) {
	answer := "Your order E481F51CBDC54678 was delivered. You paid 72.19 by credit_card; receipt sent to jane@example.com."
	res := GroundingScore(answer, sampleFacts())

	assert.Equal(t, 1.0, res.Score)
	for check, ok := range res.Checks {
		assert.True(t, ok, check)
	}
}

func TestGroundingScorePartial(t *testing.T) {
	res := GroundingScore("Your order e481f51cbdc54678 was delivered.", sampleFacts())

	assert.Equal(t, 0.4, res.Score)
	assert.True(t, res.Checks["order_id"])
	assert.True(t, res.Checks["order_status"])
	assert.False(t, res.Checks["total_payment"])
	assert.False(t, res.Checks["customer_email"])
}

func TestGroundingScoreWithoutFacts(t *testing.T) {
	res := GroundingScore("General answer with no order context.", nil)
	assert.Zero(t, res.Score)
	assert.Empty(t, res.Checks)
}

func TestRecordTurnWritesMetricsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")
	sink := auditlog.NewSink(path)

	st := model.NewTurnState(model.TurnInput{ConversationID: "c1", Query: "q"})
	st.Intent = model.IntentTrack
	st.Facts = sampleFacts()
	st.Output = "order e481f51cbdc54678 delivered"
	st.Timings[model.TimingTotalMS] = 42

	res := RecordTurn(sink, "c1", st.Result())
	assert.Equal(t, 0.4, res.Score)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &rec))
	assert.Equal(t, "c1", rec["conversation_id"])
	assert.Equal(t, 0.4, rec["grounding_score"])
	assert.Equal(t, float64(42), rec["total_ms"])
}
