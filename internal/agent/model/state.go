package model

// Timing keys recorded in TurnState.Timings (milliseconds).
const (
	TimingRetrieveMS   = "retrieve_ms"
	TimingGenerationMS = "generation_ms"
	TimingTotalMS      = "total_ms"
)

// TurnInput is the public input for one conversation turn.
type TurnInput struct {
	ConversationID string              `json:"conversation_id"`
	Query          string              `json:"query"`
	Memory         *ConversationMemory `json:"memory,omitempty"`
}

// TurnState is the value threaded through the graph for one turn. Fields
// other than Output are monotonically added to, never deleted, within a
// turn; Output is set exactly once, by the compose step.
type TurnState struct {
	ConversationID string
	Input          string
	Intent         Intent
	YesNo          string

	Hits   []Record     // order/review hits, most similar first
	KBHits []Record     // knowledge base hits
	Orders []OrderFacts // email lookup results, most recent first
	Facts  *OrderFacts  // at most one resolved order

	Actions []Action // insertion order = execution order
	Memory  *ConversationMemory
	Output  string
	Timings map[string]int64

	// HandoffContext is the diagnostic snapshot captured when the stuck
	// supervisor fires, taken before its counters reset.
	HandoffContext map[string]any
}

// NewTurnState initialises the state for one turn from the public input.
func NewTurnState(in TurnInput) *TurnState {
	mem := in.Memory.Clone()
	mem.BeginTurn()
	return &TurnState{
		ConversationID: in.ConversationID,
		Input:          in.Query,
		Memory:         mem,
		Timings:        map[string]int64{},
	}
}

// AddAction appends an action to the turn's ordered action list.
func (s *TurnState) AddAction(a Action) {
	s.Actions = append(s.Actions, a)
}

// Result projects the caller-facing view of a finished turn.
func (s *TurnState) Result() *TurnResult {
	return &TurnResult{
		Output:  s.Output,
		Intent:  s.Intent,
		Facts:   s.Facts,
		Actions: s.Actions,
		Memory:  s.Memory,
		Timings: s.Timings,
		KBHits:  len(s.KBHits),
	}
}

// TurnResult is what a turn hands back to the caller. Memory ownership
// returns to the caller, who persists it between turns.
type TurnResult struct {
	Output  string              `json:"output"`
	Intent  Intent              `json:"intent"`
	Facts   *OrderFacts         `json:"order_facts,omitempty"`
	Actions []Action            `json:"actions,omitempty"`
	Memory  *ConversationMemory `json:"memory"`
	Timings map[string]int64    `json:"timings,omitempty"`
	KBHits  int                 `json:"kb_hits,omitempty"`
}
