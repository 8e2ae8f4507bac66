package model

import "time"

// Persona is a named voice/identity profile content and generation are
// scoped to. Referenced weakly by content items and log entries.
type Persona struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Tone          string    `json:"tone,omitempty"`
	Style         string    `json:"style,omitempty"`
	StyleSummary  string    `json:"style_summary,omitempty"`
	SpeakerLabels []string  `json:"speaker_labels,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PersonaProfile carries the mutable voice configuration for an upsert.
type PersonaProfile struct {
	Tone         string `json:"tone"`
	Style        string `json:"style"`
	StyleSummary string `json:"style_summary"`
}

type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
