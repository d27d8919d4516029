package graph

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk-ai/server/internal/agent/model"
	"github.com/orderdesk-ai/server/internal/agent/policy"
	"github.com/orderdesk-ai/server/internal/agent/resolver"
	"github.com/orderdesk-ai/server/internal/agent/supervisor"
	"github.com/orderdesk-ai/server/internal/escalate"
)

type stubClassifier struct {
	response string
	err      error
}

func (s *stubClassifier) Classify(context.Context, string) (string, error) {
	return s.response, s.err
}

type stubGenerator struct {
	prompts []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, int64) {
	s.prompts = append(s.prompts, prompt)
	return "stub answer", 7
}

type stubSearcher struct {
	records []model.Record
}

func (s *stubSearcher) Search(context.Context, string, int) ([]model.Record, error) {
	return s.records, nil
}

type memStore struct {
	orders  map[string]model.OrderFacts
	byEmail map[string][]model.OrderFacts
}

func (m *memStore) Get(_ context.Context, id string) (*model.OrderFacts, error) {
	if o, ok := m.orders[id]; ok {
		return &o, nil
	}
	return nil, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string, limit int) ([]model.OrderFacts, error) {
	orders := m.byEmail[email]
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (m *memStore) Keys(context.Context) ([]string, error) {
	var keys []string
	for id, o := range m.orders {
		keys = append(keys, id+" - "+o.CustomerEmail)
	}
	return keys, nil
}

func (m *memStore) MaxPurchaseDate(context.Context) (time.Time, error) {
	return time.Time{}, nil
}

type runnerFixture struct {
	runner     Runner
	generator  *stubGenerator
	classifier *stubClassifier
	store      *memStore
	kb         *stubSearcher
}

func newFixture(t *testing.T, classifierResponse string) *runnerFixture {
	t.Helper()

	store := &memStore{
		orders:  map[string]model.OrderFacts{},
		byEmail: map[string][]model.OrderFacts{},
	}
	cls := &stubClassifier{response: classifierResponse}
	gen := &stubGenerator{}
	kb := &stubSearcher{}
	esc := escalate.NewService(nil, nil)

	runnable, err := BuildGraph(context.Background(), &GraphConfig{
		Classifier: cls,
		Generator:  gen,
		Resolver:   resolver.New(store, nil, model.ResolverConfig{FuzzyAcceptScore: 85, EmailOrderLimit: 10}),
		Policy:     policy.NewEngine(policy.FixedClock(time.Date(2018, 1, 20, 0, 0, 0, 0, time.UTC)), esc, model.PolicyConfig{ReturnWindowDays: 30}),
		Supervisor: supervisor.New(model.SupervisorConfig{AutoEscalate: true, RepeatThreshold: 2, NoFactsThreshold: 2}),
		Escalate:   esc,
		OrderIndex: &stubSearcher{},
		KBIndex:    kb,
		TopK:       6,
	})
	require.NoError(t, err)

	return &runnerFixture{
		runner:     &graphRunner{runnable: runnable},
		generator:  gen,
		classifier: cls,
		store:      store,
		kb:         kb,
	}
}

func intPtr(n int) *int { return &n }

func TestTurnWithOrderSlotSkipsRetrievalAndAnswers(t *testing.T) {
	f := newFixture(t, `{"intent":"track","slots":{"order_id":"abc123"}}`)
	f.store.orders["abc123"] = model.OrderFacts{
		OrderID:       "abc123",
		CustomerEmail: "jane@example.com",
		OrderStatus:   model.StatusShipped,
		PurchaseDate:  time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	res, err := f.runner.Invoke(context.Background(), model.TurnInput{
		ConversationID: "c1",
		Query:          "where is my order abc123",
	})
	require.NoError(t, err)

	assert.Equal(t, "stub answer", res.Output)
	assert.Equal(t, model.IntentTrack, res.Intent)
	require.NotNil(t, res.Facts)
	assert.Equal(t, "abc123", res.Facts.OrderID)
	assert.Equal(t, "abc123", res.Memory.CurrentOrderID)
	// direct resolve path never touched the indexes
	_, retrieved := res.Timings[model.TimingRetrieveMS]
	assert.False(t, retrieved)
	assert.Equal(t, int64(7), res.Timings[model.TimingGenerationMS])
}

func TestPendingHandoffYesOverridesIntent(t *testing.T) {
	f := newFixture(t, `{"intent":"general","yes_no":"yes"}`)
	mem := model.NewConversationMemory()
	mem.PendingHandoff = true
	mem.CurrentOrderID = "abc123"

	res, err := f.runner.Invoke(context.Background(), model.TurnInput{
		ConversationID: "c1",
		Query:          "yes please",
		Memory:         mem,
	})
	require.NoError(t, err)

	assert.Equal(t, model.IntentHandoffYes, res.Intent)
	assert.Contains(t, res.Output, "escalated this conversation to a human support agent")
	assert.Contains(t, res.Output, "Reference order: abc123.")
	require.Len(t, res.Actions, 1)
	assert.True(t, res.Actions[0].Handoff)
	assert.False(t, res.Memory.PendingHandoff)
	// the handoff path records the turn's intent like every other path
	assert.Equal(t, string(model.IntentHandoffYes), res.Memory.LastIntent)
	assert.Empty(t, f.generator.prompts)
}

func TestPendingHandoffNoClearsFlagAndContinues(t *testing.T) {
	f := newFixture(t, `{"intent":"general","yes_no":"no"}`)
	mem := model.NewConversationMemory()
	mem.PendingHandoff = true

	res, err := f.runner.Invoke(context.Background(), model.TurnInput{
		ConversationID: "c1",
		Query:          "no thanks",
		Memory:         mem,
	})
	require.NoError(t, err)

	assert.Equal(t, model.IntentHandoffNo, res.Intent)
	assert.False(t, res.Memory.PendingHandoff)
	assert.Empty(t, res.Actions)
	assert.NotEmpty(t, res.Output)
}

func TestSupervisorEscalatesAfterRepeatedFailedLookups(t *testing.T) {
	f := newFixture(t, `{"intent":"track","slots":{}}`)

	res, err := f.runner.Invoke(context.Background(), model.TurnInput{ConversationID: "c1", Query: "where is my order"})
	require.NoError(t, err)
	assert.Equal(t, clarificationOutput(), res.Output)
	assert.Equal(t, 1, res.Memory.Stuck.NoFacts)

	res2, err := f.runner.Invoke(context.Background(), model.TurnInput{
		ConversationID: "c1",
		Query:          "where is my order",
		Memory:         res.Memory,
	})
	require.NoError(t, err)
	assert.Contains(t, res2.Output, "escalated this conversation to a human support agent")
	require.Len(t, res2.Actions, 1)
	assert.Equal(t, "stuck conversation", res2.Actions[0].Issue)
	assert.Equal(t, 2, res2.Actions[0].Extra["no_facts"])
	assert.Zero(t, res2.Memory.Stuck.NoFacts)
}

func TestKnowledgeAnswerWhenNoOrderResolved(t *testing.T) {
	f := newFixture(t, `{"intent":"kb","slots":{}}`)
	f.kb.records = []model.Record{
		{"text": "Returns are accepted within 30 days.", "source": "policy.md", "page": float64(2)},
	}

	res, err := f.runner.Invoke(context.Background(), model.TurnInput{
		ConversationID: "c1",
		Query:          "what is the return policy?",
	})
	require.NoError(t, err)

	assert.Equal(t, "stub answer", res.Output)
	require.Len(t, f.generator.prompts, 1)
	assert.Contains(t, f.generator.prompts[0], "[policy.md p.2]")
	assert.Contains(t, res.Timings, model.TimingRetrieveMS)
	assert.Equal(t, res.Timings[model.TimingRetrieveMS]+res.Timings[model.TimingGenerationMS], res.Timings[model.TimingTotalMS])
	assert.Equal(t, 1, res.KBHits)
}

func TestEmailLookupListsOrdersWithoutGenerating(t *testing.T) {
	f := newFixture(t, `{"intent":"track","slots":{}}`)
	var orders []model.OrderFacts
	for i := 0; i < 7; i++ {
		orders = append(orders, model.OrderFacts{
			OrderID:       fmt.Sprintf("order%02d", i),
			CustomerEmail: "jane@example.com",
			FirstName:     "Jane",
			LastName:      "Doe",
			OrderStatus:   model.StatusDelivered,
			PurchaseDate:  time.Date(2018, 3, 20-i, 0, 0, 0, 0, time.UTC),
			ReviewScore:   intPtr(5),
		})
	}
	f.store.byEmail["jane@example.com"] = orders

	res, err := f.runner.Invoke(context.Background(), model.TurnInput{
		ConversationID: "c1",
		Query:          "orders for jane@example.com",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Output, "Found 7 orders for Jane Doe <jane@example.com>"), res.Output)
	assert.Empty(t, f.generator.prompts)
	assert.Equal(t, "jane@example.com", res.Memory.CurrentEmail)
	assert.Equal(t, "order00", res.Memory.CurrentOrderID)
}

func TestClassifierFailureFallsBackToKeywords(t *testing.T) {
	f := newFixture(t, "")
	f.classifier.err = fmt.Errorf("model unavailable")

	res, err := f.runner.Invoke(context.Background(), model.TurnInput{
		ConversationID: "c1",
		Query:          "I want a refund for this",
	})
	require.NoError(t, err)
	assert.Equal(t, model.IntentRefund, res.Intent)
	assert.NotEmpty(t, res.Output)
}

func clarificationOutput() string {
	return "I could not find your order. Please share your order id or the email used for purchase."
}
