package model

import "time"

type SourceType string

const (
	SourceAudio    SourceType = "audio"
	SourceVideo    SourceType = "video"
	SourceDocument SourceType = "document"
	SourceSocial   SourceType = "social"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourceAudio, SourceVideo, SourceDocument, SourceSocial:
		return true
	}
	return false
}

// IsRecording reports whether items of this type carry timestamped segments
// rather than a single body of text.
func (s SourceType) IsRecording() bool {
	return s == SourceAudio || s == SourceVideo
}

type ContentStatus string

const (
	StatusUploaded    ContentStatus = "uploaded"
	StatusTranscribed ContentStatus = "transcribed"
	StatusParsed      ContentStatus = "parsed"
	StatusProcessed   ContentStatus = "processed"
	StatusFailed      ContentStatus = "failed"
)

// rank orders the status machine. Transitions must be monotonic; failed is
// reachable from any non-terminal state.
func (s ContentStatus) rank() int {
	switch s {
	case StatusUploaded:
		return 0
	case StatusTranscribed, StatusParsed:
		return 1
	case StatusProcessed:
		return 2
	case StatusFailed:
		return 3
	}
	return -1
}

func (s ContentStatus) CanTransitionTo(next ContentStatus) bool {
	switch s {
	case StatusProcessed, StatusFailed:
		return false
	}
	if next == StatusFailed {
		return true
	}
	return next.rank() > s.rank()
}

// ContentItem is any ingested unit: a recording, a document, or a social
// post. Immutable once processed except metadata.
type ContentItem struct {
	ID               string            `json:"id"`
	SourceType       SourceType        `json:"source_type"`
	Title            string            `json:"title"`
	Status           ContentStatus     `json:"status"`
	StatusReason     string            `json:"status_reason,omitempty"`
	PersonaID        string            `json:"persona_id,omitempty"`
	BlobKey          string            `json:"blob_key,omitempty"`
	OriginalFilename string            `json:"original_filename,omitempty"`
	DurationSeconds  float64           `json:"duration_seconds,omitempty"`
	WordCount        int               `json:"word_count,omitempty"`
	RecordedAt       *time.Time        `json:"recorded_at,omitempty"`
	Speakers         []string          `json:"speakers,omitempty"`
	Keywords         []string          `json:"keywords,omitempty"`
	Provider         string            `json:"provider,omitempty"`
	ProviderModel    string            `json:"provider_model,omitempty"`
	Extra            map[string]string `json:"extra,omitempty"`
	Body             string            `json:"body,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Segment is a timestamped, speaker-attributed slice of a recording's
// transcript. Exclusively owned by its parent content item.
type Segment struct {
	ID        string    `json:"id"`
	ContentID string    `json:"content_id"`
	Index     int       `json:"segment_index"`
	StartTime float64   `json:"start_time"`
	EndTime   float64   `json:"end_time"`
	Speaker   string    `json:"speaker,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSegment is a candidate segment submitted for append; IDs and
// timestamps are assigned by the store.
type NewSegment struct {
	Index     int     `json:"segment_index"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
}
