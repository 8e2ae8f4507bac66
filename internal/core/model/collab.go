package model

import "time"

type ConversationStatus string

const (
	ConversationCreated  ConversationStatus = "created"
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
)

// Conversation is a collaboration thread over generated content. It owns
// its messages, comments and participants (cascade delete).
type Conversation struct {
	ID            string             `json:"id"`
	OwnerID       string             `json:"owner_id"`
	Collaborative bool               `json:"collaborative"`
	Status        ConversationStatus `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
}

type Participant struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Role           string    `json:"role"`
	AddedAt        time.Time `json:"added_at"`
}

type MentionKind string

const (
	MentionUser    MentionKind = "user"
	MentionPersona MentionKind = "persona"
)

// Mention is a resolved reference to a user or persona. Unresolved raw
// tokens are dropped before storage.
type Mention struct {
	Kind MentionKind `json:"kind"`
	ID   string      `json:"id"`
	Name string      `json:"name"`
}

type AuthorKind string

const (
	AuthorUser AuthorKind = "user"
	AuthorAI   AuthorKind = "ai"
)

type ChatMessage struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	AuthorID       string     `json:"author_id"`
	AuthorKind     AuthorKind `json:"author_kind"`
	Text           string     `json:"text"`
	Mentions       []Mention  `json:"mentions"`
	CreatedAt      time.Time  `json:"created_at"`
}

type ClipComment struct {
	ID                  string    `json:"id"`
	ConversationID      string    `json:"conversation_id"`
	MessageID           string    `json:"message_id"`
	ClipIndex           int       `json:"clip_index"`
	Text                string    `json:"text"`
	Mentions            []Mention `json:"mentions"`
	IsRegenerateRequest bool      `json:"is_regenerate_request"`
	CreatedAt           time.Time `json:"created_at"`
}
