package nodes

import (
	"context"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/orderdesk-ai/server/internal/agent/graph/parsers"
	"github.com/orderdesk-ai/server/internal/agent/graph/prompts"
	"github.com/orderdesk-ai/server/internal/agent/llm"
	"github.com/orderdesk-ai/server/internal/agent/model"
	"github.com/orderdesk-ai/server/internal/agent/policy"
	"github.com/orderdesk-ai/server/internal/agent/resolver"
	"github.com/orderdesk-ai/server/internal/agent/supervisor"
	"github.com/orderdesk-ai/server/internal/escalate"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// NewInitNode seeds the turn state from the public input: memory is cloned
// so the caller's snapshot stays untouched, and transient flags are cleared.
func NewInitNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (*model.TurnState, error) {
		return model.NewTurnState(in), nil
	})
}

// NewClassifyNode runs the intent classifier and merges its slots into
// memory. Any failure along the call/parse path degrades to the keyword
// fallback; this node never fails the turn.
func NewClassifyNode(classifier llm.Classifier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.TurnState) (*model.TurnState, error) {
		res := classifyOrFallback(ctx, classifier, st)

		intent := res.Intent
		if st.Memory.PendingHandoff {
			switch res.YesNo {
			case "yes":
				intent = model.IntentHandoffYes
			case "no":
				intent = model.IntentHandoffNo
				st.Memory.PendingHandoff = false
			}
		}

		st.Memory.ApplySlots(res.Slots)
		st.Intent = intent
		st.YesNo = res.YesNo

		logx.Debug().
			Str("conversation_id", st.ConversationID).
			Str("intent", string(st.Intent)).
			Msg("turn classified")
		return st, nil
	})
}

func classifyOrFallback(ctx context.Context, classifier llm.Classifier, st *model.TurnState) model.NLUResult {
	prompt, err := prompts.RenderNLU(ctx, st.Input, st.Memory)
	if err != nil {
		logx.Warn().Err(err).Msg("nlu prompt render failed, using keyword fallback")
		return parsers.KeywordFallback(st.Input)
	}

	raw, err := classifier.Classify(ctx, prompt)
	if err != nil {
		logx.Warn().Err(err).Msg("nlu call failed, using keyword fallback")
		return parsers.KeywordFallback(st.Input)
	}

	res, err := parsers.ParseNLUResponse(raw)
	if err != nil || res == nil {
		logx.Warn().Err(err).Msg("nlu output unparsable, using keyword fallback")
		return parsers.KeywordFallback(st.Input)
	}
	return *res
}

// NewRetrieveNode searches both indexes and records the retrieval latency.
// Search failures degrade to empty hit lists.
func NewRetrieveNode(orderIndex, kbIndex model.Searcher, topK int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.TurnState) (*model.TurnState, error) {
		t0 := time.Now()

		hits, err := orderIndex.Search(ctx, st.Input, topK)
		if err != nil {
			logx.Warn().Err(err).Msg("order index search failed")
			hits = nil
		}
		kbHits, err := kbIndex.Search(ctx, st.Input, topK)
		if err != nil {
			logx.Warn().Err(err).Msg("kb index search failed")
			kbHits = nil
		}

		st.Hits = hits
		st.KBHits = kbHits
		st.Timings[model.TimingRetrieveMS] = time.Since(t0).Milliseconds()
		return st, nil
	})
}

// NewResolveFactsNode resolves at most one order for the turn. A lookup
// failure is logged and treated as "no facts"; the clarification branch
// handles it downstream.
func NewResolveFactsNode(r *resolver.Resolver) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.TurnState) (*model.TurnState, error) {
		facts, orders, err := r.Resolve(ctx, st.Input, st.Memory, st.Hits)
		if err != nil {
			logx.Warn().Err(err).Str("conversation_id", st.ConversationID).Msg("fact resolution failed")
			return st, nil
		}
		st.Facts = facts
		st.Orders = orders
		return st, nil
	})
}

// NewPolicyNode applies the business rules to the resolved turn.
func NewPolicyNode(engine *policy.Engine) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.TurnState) (*model.TurnState, error) {
		engine.Decide(ctx, st)
		return st, nil
	})
}

// NewSuperviseNode updates the stuck counters after policy has run.
func NewSuperviseNode(sup *supervisor.Supervisor) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.TurnState) (*model.TurnState, error) {
		sup.Observe(st)
		return st, nil
	})
}

// NewEscalateNode performs the human handoff, for both an explicit yes to
// the handoff question and a supervisor-detected stuck conversation.
func NewEscalateNode(esc *escalate.Service) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.TurnState) (*model.TurnState, error) {
		mem := st.Memory

		issue := "stuck conversation"
		extra := st.HandoffContext
		if st.Intent == model.IntentHandoffYes {
			issue = "user requested human support"
			extra = map[string]any{"last_intent": mem.LastIntent}
			if mem.LastReason != "" {
				extra["last_reason"] = mem.LastReason
			}
			mem.PendingHandoff = false
			mem.AutoHandoff = true
			// this path bypasses the supervisor, which otherwise records the
			// turn's intent at the end of every turn
			mem.LastIntent = string(st.Intent)
		}

		st.AddAction(esc.ToHuman(ctx, mem.CurrentOrderID, issue, extra))
		return st, nil
	})
}

// NewClassifyCondition routes a classified turn: an explicit yes goes to
// the handoff, a turn that already knows its order skips retrieval, and
// everything else retrieves first.
func NewClassifyCondition() func(context.Context, *model.TurnState) (string, error) {
	return func(ctx context.Context, st *model.TurnState) (string, error) {
		switch {
		case st.Intent == model.IntentHandoffYes:
			return NodeEscalate, nil
		case st.Intent.RequiresOrder() && st.Memory.CurrentOrderID != "":
			return NodeResolveFacts, nil
		default:
			return NodeRetrieve, nil
		}
	}
}

// NewSuperviseCondition routes to the handoff when the supervisor fired,
// otherwise straight to composition.
func NewSuperviseCondition() func(context.Context, *model.TurnState) (string, error) {
	return func(ctx context.Context, st *model.TurnState) (string, error) {
		if st.Memory.AutoHandoff {
			return NodeEscalate, nil
		}
		return NodeCompose, nil
	}
}
