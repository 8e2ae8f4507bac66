package model

import "fmt"

// ValidationError rejects a write before any state is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func Validationf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a reference to a missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// UpstreamFailure wraps an error from an external provider (transcription,
// model inference). Retry is the caller's responsibility.
type UpstreamFailure struct {
	Provider string
	Err      error
}

func (e *UpstreamFailure) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Provider, e.Err)
}

func (e *UpstreamFailure) Unwrap() error { return e.Err }

// IndexInconsistencyError means a source's text and derived index versions
// diverged. Must never occur in normal operation; the source is excluded
// from search until force-reindexed.
type IndexInconsistencyError struct {
	SourceID string
}

func (e *IndexInconsistencyError) Error() string {
	return fmt.Sprintf("search index inconsistent for source %s", e.SourceID)
}
