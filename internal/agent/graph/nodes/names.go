package nodes

// Node names used in the turn graph. The transition table in the graph
// builder is written against these.
const (
	NodeInit         = "Init"
	NodeClassify     = "Classify"
	NodeRetrieve     = "Retrieve"
	NodeResolveFacts = "ResolveFacts"
	// ResolveFacts2 is the post-retrieval registration of the same resolve
	// step, reached when the turn had no order context before retrieval.
	NodeResolveFacts2 = "ResolveFacts2"
	NodePolicy        = "Policy"
	NodeSupervise     = "Supervise"
	NodeEscalate      = "Escalate"
	NodeCompose       = "Compose"
)
