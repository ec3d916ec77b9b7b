package domain

import "time"

// Outcome classifies how a handled question ended.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeBlocked  Outcome = "blocked"
	OutcomeFallback Outcome = "fallback"
	OutcomeError    Outcome = "error"
)

// Delivery paths recorded per interaction.
const (
	PathDirect     = "direct"
	PathModeration = "moderation_queued"
	PathFallback   = "fallback"
)

// InteractionRecord is the durable trace of one handled question.
// Exactly one record is written per question that enters the pipeline;
// the question text is always the redacted form.
type InteractionRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	ChatID    string    `json:"chat_id"`
	Sender    string    `json:"sender"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer,omitempty"`
	Error     string    `json:"error,omitempty"`
	Model     string    `json:"model,omitempty"`
	Outcome   Outcome   `json:"outcome"`
	Path      string    `json:"path"`
	LatencyMs int64     `json:"latency_ms"`
	Category  string    `json:"category,omitempty"`
}

// CategoryCount is one entry of the per-category breakdown in Stats.
type CategoryCount struct {
	Category string
	Count    int
}

// Stats is the aggregate view over the interaction log.
type Stats struct {
	Total         int
	Success       int
	Blocked       int
	Fallbacks     int
	Errors        int
	AvgLatencyMs  float64
	TopCategories []CategoryCount
}
