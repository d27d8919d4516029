package model

import (
	"context"
	"time"
)

// OrderStore is the order lookup collaborator. A missing order is reported
// as (nil, nil): absence is an expected outcome, not an error.
type OrderStore interface {
	// Get returns the facts for one order id, with derived flags computed.
	Get(ctx context.Context, orderID string) (*OrderFacts, error)

	// GetByEmail returns up to limit orders for an email, most recent
	// purchase first.
	GetByEmail(ctx context.Context, email string, limit int) ([]OrderFacts, error)

	// Keys returns "order_id - customer_email" choice strings for fuzzy
	// matching against free text.
	Keys(ctx context.Context) ([]string, error)

	// MaxPurchaseDate returns the newest purchase date in the dataset, used
	// as an optional "today" anchor for eligibility checks.
	MaxPurchaseDate(ctx context.Context) (time.Time, error)
}

// Searcher is the similarity search collaborator. Implementations must
// degrade to an empty result set when the backing index is unavailable.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Record, error)
}

// MemoryRepository persists ConversationMemory between turns on behalf of
// the caller. The conversation core itself never touches it.
type MemoryRepository interface {
	Load(ctx context.Context, conversationID string) (*ConversationMemory, error)
	Save(ctx context.Context, conversationID string, mem *ConversationMemory) error
	Clear(ctx context.Context, conversationID string) error
}
