package model

// ================ Config ================
type ConversationConfig struct {
	TTL string `envconfig:"CONVERSATION_TTL" default:"15m"`
}

type NLUModelConfig struct {
	Model       string  `envconfig:"NLU_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"NLU_MAX_TOKENS" default:"512"`
	Temperature float32 `envconfig:"NLU_TEMPERATURE" default:"0.0"`
	TimeoutSec  int     `envconfig:"NLU_TIMEOUT_SEC" default:"30"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.2"`
	TimeoutSec  int     `envconfig:"RESPONSE_TIMEOUT_SEC" default:"60"`
}

type RetrievalConfig struct {
	OrdersIndexPath string `envconfig:"ORDERS_INDEX_PATH" default:"index/orders_index.json"`
	KBIndexPath     string `envconfig:"KB_INDEX_PATH" default:"kb_index/kb_index.json"`
	EmbedBaseURL    string `envconfig:"EMBED_BASE_URL" default:"http://localhost:11434"`
	EmbedModel      string `envconfig:"EMBED_MODEL" default:"nomic-embed-text"`
	TopK            int    `envconfig:"RETRIEVAL_TOP_K" default:"6"`
}

type ResolverConfig struct {
	// FuzzyAcceptScore is the token-set ratio (0-100 scale) a fuzzy
	// order-id match must exceed to be accepted.
	FuzzyAcceptScore int `envconfig:"FUZZY_ACCEPT_SCORE" default:"85"`
	EmailOrderLimit  int `envconfig:"EMAIL_ORDER_LIMIT" default:"10"`
}

type PolicyConfig struct {
	ReturnWindowDays int `envconfig:"RETURN_WINDOW_DAYS" default:"30"`

	// SimulatedToday overrides the eligibility clock with a fixed date such
	// as "2018-10-17" or "2018-10-17 17:30:18". Empty means no override.
	SimulatedToday string `envconfig:"SIMULATED_TODAY"`

	// UseDatasetMaxAsToday anchors "today" to the newest purchase date in
	// the order dataset.
	UseDatasetMaxAsToday bool `envconfig:"USE_DATASET_MAX_AS_TODAY" default:"false"`
}

type SupervisorConfig struct {
	AutoEscalate     bool `envconfig:"AUTO_ESCALATE" default:"true"`
	RepeatThreshold  int  `envconfig:"STUCK_REPEAT_THRESHOLD" default:"2"`
	NoFactsThreshold int  `envconfig:"STUCK_NO_FACTS_THRESHOLD" default:"2"`
}

type NotifyConfig struct {
	SlackWebhookURL string `envconfig:"SLACK_WEBHOOK_URL"`
	SupportEmail    string `envconfig:"SUPPORT_EMAIL"`
	SMTPHost        string `envconfig:"SMTP_HOST"`
	SMTPPort        int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser        string `envconfig:"SMTP_USER"`
	SMTPPass        string `envconfig:"SMTP_PASS"`
	TimeoutSec      int    `envconfig:"NOTIFY_TIMEOUT_SEC" default:"10"`
}

type AuditConfig struct {
	ActionsPath  string `envconfig:"ACTIONS_LOG_PATH" default:"logs/actions.jsonl"`
	HandoffsPath string `envconfig:"HANDOFFS_LOG_PATH" default:"logs/handoffs.jsonl"`
	MetricsPath  string `envconfig:"METRICS_LOG_PATH" default:"logs/metrics.jsonl"`
}

type OrdersConfig struct {
	DBPath  string `envconfig:"ORDERS_DB_PATH" default:"data/orders.db"`
	CSVPath string `envconfig:"ORDERS_CSV_PATH" default:"data/olist_cleaned.csv"`
}
