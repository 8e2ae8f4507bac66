package model

import "time"

type SourceKind string

const (
	KindSegment  SourceKind = "segment"
	KindDocument SourceKind = "document"
)

// SearchScope restricts a query to a persona, a content type, or a date
// range. Zero-valued fields are ignored.
type SearchScope struct {
	PersonaID  string     `json:"persona_id,omitempty"`
	SourceType SourceType `json:"source_type,omitempty"`
	Since      *time.Time `json:"since,omitempty"`
	Until      *time.Time `json:"until,omitempty"`
}

type SearchHit struct {
	SourceID  string     `json:"source_id"`
	Kind      SourceKind `json:"kind"`
	ContentID string     `json:"content_id"`
	Snippet   string     `json:"snippet"`
	StartTime *float64   `json:"start_time,omitempty"`
	EndTime   *float64   `json:"end_time,omitempty"`
	Score     float64    `json:"score"`
}

// SearchResult is one page of ranked hits. Reindexing is set when sources
// in scope were excluded pending a forced reindex; results are consistent
// but incomplete until the flag clears.
type SearchResult struct {
	Hits       []SearchHit `json:"hits"`
	Reindexing bool        `json:"reindexing"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
}
