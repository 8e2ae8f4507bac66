package ailog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joesh-del/video-management/internal/core/model"
	"github.com/joesh-del/video-management/internal/store"
)

// Log is the append-only record of every generation call. Rows are never
// updated or deleted; the only post-hoc mutation anywhere is a persona
// delete nulling its weak reference.
type Log struct {
	db *store.DB
}

func NewLog(db *store.DB) *Log {
	return &Log{db: db}
}

// Record appends one entry atomically. A failed call must carry an error
// message. User and conversation references are best-effort: if the
// referent has since vanished the reference is nulled and the entry is
// still recorded.
func (l *Log) Record(ctx context.Context, entry model.InteractionLogEntry) (string, error) {
	if strings.TrimSpace(entry.RequestType) == "" {
		return "", model.Validationf("request_type", "request type is required")
	}
	if !entry.Success && strings.TrimSpace(entry.ErrorMessage) == "" {
		return "", model.Validationf("error_message", "failed entries must carry an error message")
	}

	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now().UTC()

	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		if entry.ConversationID != "" {
			var exists bool
			if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM conversations WHERE id = ?)`, entry.ConversationID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				entry.ConversationID = ""
			}
		}
		if entry.UserID != "" {
			var exists bool
			if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, entry.UserID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				entry.UserID = ""
			}
		}

		_, err := tx.Exec(`
			INSERT INTO ai_interaction_logs
				(id, request_type, provider, model, user_id, persona_id, conversation_id,
				 prompt, response_raw, response_json, clips_generated,
				 prompt_tokens, completion_tokens, latency_ms, success, error_message, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.RequestType, entry.Provider, entry.Model,
			nullString(entry.UserID), nullString(entry.PersonaID), nullString(entry.ConversationID),
			entry.Prompt, entry.ResponseRaw, nullString(entry.ResponseJSON), entry.ClipsGenerated,
			entry.PromptTokens, entry.CompletionTokens, entry.LatencyMS,
			entry.Success, entry.ErrorMessage, entry.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("appending interaction log: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// Query returns entries matching the filter, most recent first.
func (l *Log) Query(ctx context.Context, filter model.LogFilter) ([]model.InteractionLogEntry, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, request_type, provider, model, user_id, persona_id, conversation_id,
		       prompt, response_raw, response_json, clips_generated,
		       prompt_tokens, completion_tokens, latency_ms, success, error_message, created_at
		FROM ai_interaction_logs WHERE 1=1`)
	var args []interface{}
	if filter.Model != "" {
		sb.WriteString(" AND model = ?")
		args = append(args, filter.Model)
	}
	if filter.UserID != "" {
		sb.WriteString(" AND user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.RequestType != "" {
		sb.WriteString(" AND request_type = ?")
		args = append(args, filter.RequestType)
	}
	if filter.Success != nil {
		sb.WriteString(" AND success = ?")
		args = append(args, *filter.Success)
	}
	if filter.Since != nil {
		sb.WriteString(" AND created_at >= ?")
		args = append(args, filter.Since.Unix())
	}
	if filter.Until != nil {
		sb.WriteString(" AND created_at <= ?")
		args = append(args, filter.Until.Unix())
	}
	sb.WriteString(" ORDER BY seq DESC")
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	sb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, filter.Offset)

	rows, err := l.db.Conn().QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.InteractionLogEntry
	for rows.Next() {
		var e model.InteractionLogEntry
		var userID, personaID, convID, responseJSON sql.NullString
		var clips sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.RequestType, &e.Provider, &e.Model,
			&userID, &personaID, &convID, &e.Prompt, &e.ResponseRaw, &responseJSON,
			&clips, &e.PromptTokens, &e.CompletionTokens, &e.LatencyMS,
			&e.Success, &e.ErrorMessage, &createdAt); err != nil {
			return nil, err
		}
		e.UserID = userID.String
		e.PersonaID = personaID.String
		e.ConversationID = convID.String
		e.ResponseJSON = responseJSON.String
		if clips.Valid {
			n := int(clips.Int64)
			e.ClipsGenerated = &n
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
