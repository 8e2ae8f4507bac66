package model

import "time"

// InteractionLogEntry records one generation call. Append-only: never
// updated or deleted after creation.
type InteractionLogEntry struct {
	ID               string    `json:"id"`
	RequestType      string    `json:"request_type"`
	Provider         string    `json:"provider,omitempty"`
	Model            string    `json:"model,omitempty"`
	UserID           string    `json:"user_id,omitempty"`
	PersonaID        string    `json:"persona_id,omitempty"`
	ConversationID   string    `json:"conversation_id,omitempty"`
	Prompt           string    `json:"prompt"`
	ResponseRaw      string    `json:"response_raw,omitempty"`
	ResponseJSON     string    `json:"response_json,omitempty"`
	ClipsGenerated   *int      `json:"clips_generated,omitempty"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	LatencyMS        int64     `json:"latency_ms"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// LogFilter selects interaction log entries for observability queries.
// Zero-valued fields are ignored.
type LogFilter struct {
	Model       string
	UserID      string
	RequestType string
	Success     *bool
	Since       *time.Time
	Until       *time.Time
	Limit       int
	Offset      int
}
