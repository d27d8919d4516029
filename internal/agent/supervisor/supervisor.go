// Package supervisor watches a conversation for lack of progress and
// decides when to stop letting the user go in circles.
package supervisor

import (
	"github.com/orderdesk-ai/server/internal/agent/model"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// Supervisor maintains the two stuck counters inside conversation memory:
// the same intent repeating without producing any action, and order-bound
// intents that keep failing to resolve an order.
type Supervisor struct {
	cfg model.SupervisorConfig
}

func New(cfg model.SupervisorConfig) *Supervisor {
	return &Supervisor{cfg: cfg}
}

// Observe updates the counters for a turn that has finished the policy
// stage and reports whether the conversation should be handed to a human.
// When it fires it marks the memory for auto-handoff, cancels any pending
// handoff question, and resets both counters.
func (s *Supervisor) Observe(st *model.TurnState) bool {
	mem := st.Memory
	intent := string(st.Intent)

	if intent != "" && intent == mem.LastIntent && len(st.Actions) == 0 {
		mem.Stuck.RepeatIntent++
	} else {
		mem.Stuck.RepeatIntent = 0
	}

	if st.Intent.RequiresOrder() && st.Facts == nil {
		mem.Stuck.NoFacts++
	} else {
		mem.Stuck.NoFacts = 0
	}

	mem.LastIntent = intent

	stuck := mem.Stuck.RepeatIntent >= s.cfg.RepeatThreshold ||
		mem.Stuck.NoFacts >= s.cfg.NoFactsThreshold
	if !stuck || !s.cfg.AutoEscalate {
		return false
	}

	logx.Info().
		Str("conversation_id", st.ConversationID).
		Int("repeat_intent", mem.Stuck.RepeatIntent).
		Int("no_facts", mem.Stuck.NoFacts).
		Msg("conversation stuck, auto-escalating")

	// snapshot before the reset so the handoff record shows why it fired
	st.HandoffContext = map[string]any{
		"intent":           intent,
		"repeat_intent":    mem.Stuck.RepeatIntent,
		"no_facts":         mem.Stuck.NoFacts,
		"current_order_id": mem.CurrentOrderID,
		"current_email":    mem.CurrentEmail,
	}

	mem.AutoHandoff = true
	mem.PendingHandoff = false
	mem.Stuck = model.StuckCounts{}
	return true
}
