package model

// StuckCounts tracks the supervisor's two progress counters. Both are
// non-negative; each resets to zero whenever its triggering condition is
// not met on a turn.
type StuckCounts struct {
	RepeatIntent int `json:"repeat_intent"`
	NoFacts      int `json:"no_facts"`
}

// ConversationMemory is the per-conversation fact mapping that survives
// across turns. The core never stores it; the caller loads it before a turn
// and persists the returned copy afterwards.
type ConversationMemory struct {
	CurrentOrderID string `json:"current_order_id,omitempty"`
	CurrentEmail   string `json:"current_email,omitempty"`
	LastReason     string `json:"last_reason,omitempty"`
	LastIntent     string `json:"last_intent,omitempty"`

	// PendingHandoff marks that the previous turn asked the user whether a
	// human should take over.
	PendingHandoff bool `json:"pending_handoff,omitempty"`

	// AutoHandoff is a transient flag for the current turn only; it is
	// cleared when the next turn starts.
	AutoHandoff bool `json:"auto_handoff,omitempty"`

	Stuck StuckCounts `json:"stuck_counts"`
}

// NewConversationMemory returns an empty memory for a fresh conversation.
func NewConversationMemory() *ConversationMemory {
	return &ConversationMemory{}
}

// Clone returns a copy so a turn can rewrite memory without aliasing the
// caller's snapshot.
func (m *ConversationMemory) Clone() *ConversationMemory {
	if m == nil {
		return NewConversationMemory()
	}
	cp := *m
	return &cp
}

// BeginTurn normalises memory at the start of a turn: the transient
// auto-handoff flag is dropped and counters are clamped to zero.
func (m *ConversationMemory) BeginTurn() {
	m.AutoHandoff = false
	if m.Stuck.RepeatIntent < 0 {
		m.Stuck.RepeatIntent = 0
	}
	if m.Stuck.NoFacts < 0 {
		m.Stuck.NoFacts = 0
	}
}

// ApplySlots merges extracted slots into memory. Non-empty slots overwrite
// the corresponding keys; absent slots leave memory untouched.
func (m *ConversationMemory) ApplySlots(s Slots) {
	if s.OrderID != "" {
		m.CurrentOrderID = s.OrderID
	}
	if s.Email != "" {
		m.CurrentEmail = s.Email
	}
	if s.Reason != "" {
		m.LastReason = s.Reason
	}
}
