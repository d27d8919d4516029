// Package resolver turns free text, conversation memory and retrieval hits
// into concrete order facts. It never guesses: when no signal clears the
// bar, it reports no facts and lets the caller ask for clarification.
package resolver

import (
	"context"
	"regexp"
	"strings"

	"github.com/orderdesk-ai/server/internal/agent/model"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

var emailPattern = regexp.MustCompile(`[\w\.-]+@[\w\.-]+`)

// Resolver locates the order a turn is about. Signals are tried in a fixed
// precedence: explicit email, fuzzy order-id match, remembered order id,
// then the top retrieval hit.
type Resolver struct {
	store   model.OrderStore
	matcher Matcher
	cfg     model.ResolverConfig
}

func New(store model.OrderStore, matcher Matcher, cfg model.ResolverConfig) *Resolver {
	if matcher == nil {
		matcher = TokenSetMatcher{}
	}
	return &Resolver{store: store, matcher: matcher, cfg: cfg}
}

// Resolve finds the facts for the current turn and writes the winning
// identifiers back into memory so follow-up turns inherit them. A nil
// facts result with a nil error means no order could be identified.
func (r *Resolver) Resolve(ctx context.Context, query string, mem *model.ConversationMemory, hits []model.Record) (*model.OrderFacts, []model.OrderFacts, error) {
	if email := emailPattern.FindString(query); email != "" {
		// the email is remembered even when it matches nothing, so follow-up
		// turns and handoff diagnostics keep what the user told us
		mem.CurrentEmail = email
		orders, err := r.store.GetByEmail(ctx, email, r.cfg.EmailOrderLimit)
		if err != nil {
			return nil, nil, err
		}
		if len(orders) > 0 {
			mem.CurrentOrderID = orders[0].OrderID
			logx.Debug().Str("email", email).Int("orders", len(orders)).Msg("resolved facts by email")
			return &orders[0], orders, nil
		}
	}

	if id := r.fuzzyOrderID(ctx, query); id != "" {
		facts, err := r.store.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if facts != nil {
			r.remember(mem, facts)
			logx.Debug().Str("order_id", id).Msg("resolved facts by fuzzy match")
			return facts, nil, nil
		}
	}

	if mem.CurrentOrderID != "" {
		facts, err := r.store.Get(ctx, mem.CurrentOrderID)
		if err != nil {
			return nil, nil, err
		}
		if facts != nil {
			r.remember(mem, facts)
			return facts, nil, nil
		}
	}

	if id := topHitOrderID(hits); id != "" {
		facts, err := r.store.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if facts != nil {
			r.remember(mem, facts)
			logx.Debug().Str("order_id", id).Msg("resolved facts from retrieval hit")
			return facts, nil, nil
		}
	}

	return nil, nil, nil
}

func (r *Resolver) remember(mem *model.ConversationMemory, facts *model.OrderFacts) {
	mem.CurrentOrderID = facts.OrderID
	if facts.CustomerEmail != "" {
		mem.CurrentEmail = facts.CustomerEmail
	}
}

// fuzzyOrderID matches the query against "order_id - customer_email" keys
// and returns the order id only when the score clears the accept bar.
func (r *Resolver) fuzzyOrderID(ctx context.Context, query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	keys, err := r.store.Keys(ctx)
	if err != nil || len(keys) == 0 {
		return ""
	}
	best, score := r.matcher.BestMatch(query, keys)
	if score <= r.cfg.FuzzyAcceptScore {
		return ""
	}
	id, _, _ := strings.Cut(best, " - ")
	return strings.TrimSpace(id)
}

func topHitOrderID(hits []model.Record) string {
	if len(hits) == 0 {
		return ""
	}
	return hits[0].Str("order_id")
}
