package collab

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joesh-del/video-management/internal/core/model"
	"github.com/joesh-del/video-management/internal/core/persona"
	"github.com/joesh-del/video-management/internal/store"
)

// Layer hosts threaded discussion over generated content: conversations,
// participants, messages and per-clip comments, with mentions resolved
// against users and personas at write time.
type Layer struct {
	db       *store.DB
	personas *persona.Registry
}

func NewLayer(db *store.DB, personas *persona.Registry) *Layer {
	return &Layer{db: db, personas: personas}
}

// CreateUser adds a user to the directory mentions resolve against.
func (l *Layer) CreateUser(ctx context.Context, name, displayName string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Validationf("name", "user name is required")
	}
	u := &model.User{
		ID:          uuid.New().String(),
		Name:        name,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := l.db.Conn().ExecContext(ctx,
		`INSERT INTO users (id, name, display_name, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Name, u.DisplayName, u.CreatedAt.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, model.Validationf("name", "user %q already exists", name)
		}
		return nil, err
	}
	return u, nil
}

func (l *Layer) userByName(ctx context.Context, name string) (*model.User, error) {
	var u model.User
	var createdAt int64
	err := l.db.Conn().QueryRowContext(ctx,
		`SELECT id, name, display_name, created_at FROM users WHERE name = ?`, name,
	).Scan(&u.ID, &u.Name, &u.DisplayName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

// CreateConversation opens a thread owned by ownerID. The owner joins as
// the first participant.
func (l *Layer) CreateConversation(ctx context.Context, ownerID string, collaborative bool) (*model.Conversation, error) {
	conv := &model.Conversation{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Collaborative: collaborative,
		Status:        model.ConversationCreated,
		CreatedAt:     time.Now().UTC(),
	}
	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, ownerID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return model.NotFound("user", ownerID)
		}
		if _, err := tx.Exec(
			`INSERT INTO conversations (id, owner_id, collaborative, status, created_at) VALUES (?, ?, ?, ?, ?)`,
			conv.ID, conv.OwnerID, conv.Collaborative, string(conv.Status), conv.CreatedAt.Unix()); err != nil {
			return err
		}
		_, err := tx.Exec(
			`INSERT INTO conversation_participants (conversation_id, user_id, role, added_at) VALUES (?, ?, 'owner', ?)`,
			conv.ID, ownerID, conv.CreatedAt.Unix())
		return err
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// AddParticipant is an idempotent atomic check-and-insert: concurrent
// calls for the same (conversation, user) pair leave exactly one row, and
// the participant set only ever grows.
func (l *Layer) AddParticipant(ctx context.Context, convID, userID, role string) error {
	if role == "" {
		role = "member"
	}
	return l.db.WithTx(ctx, func(tx *sql.Tx) error {
		conv, err := getConversationTx(tx, convID)
		if err != nil {
			return err
		}
		if conv.Status == model.ConversationArchived {
			return model.Validationf("status", "conversation is archived")
		}
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return model.NotFound("user", userID)
		}
		_, err = tx.Exec(`
			INSERT INTO conversation_participants (conversation_id, user_id, role, added_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(conversation_id, user_id) DO NOTHING`,
			convID, userID, role, time.Now().UTC().Unix())
		return err
	})
}

// PostMessage stores a message with its resolved mention set. The first
// message moves the conversation from created to active.
func (l *Layer) PostMessage(ctx context.Context, convID, authorID string, authorKind model.AuthorKind, text string, rawMentions []string) (*model.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.Validationf("text", "message text is required")
	}
	if authorKind == "" {
		authorKind = model.AuthorUser
	}

	mentions, err := l.resolveMentions(ctx, rawMentions)
	if err != nil {
		return nil, err
	}

	msg := &model.ChatMessage{
		ID:             uuid.New().String(),
		ConversationID: convID,
		AuthorID:       authorID,
		AuthorKind:     authorKind,
		Text:           text,
		Mentions:       mentions,
		CreatedAt:      time.Now().UTC(),
	}
	err = l.db.WithTx(ctx, func(tx *sql.Tx) error {
		conv, err := getConversationTx(tx, convID)
		if err != nil {
			return err
		}
		if conv.Status == model.ConversationArchived {
			return model.Validationf("status", "conversation is archived")
		}
		encoded, err := json.Marshal(emptyMentions(mentions))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`
			INSERT INTO chat_messages (id, conversation_id, author_id, author_kind, text, mentions, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, convID, authorID, string(authorKind), text, string(encoded), msg.CreatedAt.Unix()); err != nil {
			return err
		}
		if conv.Status == model.ConversationCreated {
			if _, err := tx.Exec(`UPDATE conversations SET status = ? WHERE id = ?`,
				string(model.ConversationActive), convID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// PostClipComment attaches a comment to one generated clip of a message.
// The regenerate flag is a signal for the external generation pipeline;
// nothing is generated here.
func (l *Layer) PostClipComment(ctx context.Context, convID, messageID string, clipIndex int, authorID, text string, rawMentions []string, isRegenerateRequest bool) (*model.ClipComment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, model.Validationf("text", "comment text is required")
	}
	if clipIndex < 0 {
		return nil, model.Validationf("clip_index", "clip index %d is negative", clipIndex)
	}

	mentions, err := l.resolveMentions(ctx, rawMentions)
	if err != nil {
		return nil, err
	}

	comment := &model.ClipComment{
		ID:                  uuid.New().String(),
		ConversationID:      convID,
		MessageID:           messageID,
		ClipIndex:           clipIndex,
		Text:                text,
		Mentions:            mentions,
		IsRegenerateRequest: isRegenerateRequest,
		CreatedAt:           time.Now().UTC(),
	}
	err = l.db.WithTx(ctx, func(tx *sql.Tx) error {
		conv, err := getConversationTx(tx, convID)
		if err != nil {
			return err
		}
		if conv.Status == model.ConversationArchived {
			return model.Validationf("status", "conversation is archived")
		}
		var belongs bool
		if err := tx.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM chat_messages WHERE id = ? AND conversation_id = ?)`,
			messageID, convID).Scan(&belongs); err != nil {
			return err
		}
		if !belongs {
			return model.NotFound("message", messageID)
		}
		encoded, err := json.Marshal(emptyMentions(mentions))
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO clip_comments (id, conversation_id, message_id, clip_index, text, mentions, is_regenerate, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			comment.ID, convID, messageID, clipIndex, text, string(encoded),
			isRegenerateRequest, comment.CreatedAt.Unix())
		return err
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// Archive moves the conversation to its terminal state.
func (l *Layer) Archive(ctx context.Context, convID string) error {
	return l.db.WithTx(ctx, func(tx *sql.Tx) error {
		conv, err := getConversationTx(tx, convID)
		if err != nil {
			return err
		}
		if conv.Status == model.ConversationArchived {
			return nil
		}
		_, err = tx.Exec(`UPDATE conversations SET status = ? WHERE id = ?`,
			string(model.ConversationArchived), convID)
		return err
	})
}

// ListMessages returns the conversation's messages in creation order.
func (l *Layer) ListMessages(ctx context.Context, convID string) ([]model.ChatMessage, error) {
	rows, err := l.db.Conn().QueryContext(ctx, `
		SELECT id, conversation_id, author_id, author_kind, text, mentions, created_at
		FROM chat_messages WHERE conversation_id = ? ORDER BY seq`, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		var kind, mentions string
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.AuthorID, &kind, &m.Text, &mentions, &createdAt); err != nil {
			return nil, err
		}
		m.AuthorKind = model.AuthorKind(kind)
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		if err := json.Unmarshal([]byte(mentions), &m.Mentions); err != nil {
			return nil, fmt.Errorf("decoding mentions for message %s: %w", m.ID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListComments returns a message's clip comments in creation order.
func (l *Layer) ListComments(ctx context.Context, messageID string) ([]model.ClipComment, error) {
	rows, err := l.db.Conn().QueryContext(ctx, `
		SELECT id, conversation_id, message_id, clip_index, text, mentions, is_regenerate, created_at
		FROM clip_comments WHERE message_id = ? ORDER BY seq`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ClipComment
	for rows.Next() {
		var c model.ClipComment
		var mentions string
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.ConversationID, &c.MessageID, &c.ClipIndex,
			&c.Text, &mentions, &c.IsRegenerateRequest, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		if err := json.Unmarshal([]byte(mentions), &c.Mentions); err != nil {
			return nil, fmt.Errorf("decoding mentions for comment %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListParticipants returns the participant set in join order.
func (l *Layer) ListParticipants(ctx context.Context, convID string) ([]model.Participant, error) {
	rows, err := l.db.Conn().QueryContext(ctx, `
		SELECT conversation_id, user_id, role, added_at
		FROM conversation_participants WHERE conversation_id = ? ORDER BY added_at, user_id`, convID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		var addedAt int64
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.Role, &addedAt); err != nil {
			return nil, err
		}
		p.AddedAt = time.Unix(addedAt, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (l *Layer) GetConversation(ctx context.Context, convID string) (*model.Conversation, error) {
	var conv *model.Conversation
	err := l.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		conv, err = getConversationTx(tx, convID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// DeleteConversation destroys the thread and everything it owns: messages,
// clip comments and participant rows, as one explicit cascade.
func (l *Layer) DeleteConversation(ctx context.Context, convID string) error {
	return l.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := getConversationTx(tx, convID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM clip_comments WHERE conversation_id = ?`, convID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM chat_messages WHERE conversation_id = ?`, convID); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM conversation_participants WHERE conversation_id = ?`, convID); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM conversations WHERE id = ?`, convID)
		return err
	})
}

func getConversationTx(tx *sql.Tx, id string) (*model.Conversation, error) {
	var conv model.Conversation
	var status string
	var createdAt int64
	err := tx.QueryRow(
		`SELECT id, owner_id, collaborative, status, created_at FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &conv.OwnerID, &conv.Collaborative, &status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, model.NotFound("conversation", id)
	}
	if err != nil {
		return nil, err
	}
	conv.Status = model.ConversationStatus(status)
	conv.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &conv, nil
}

func emptyMentions(m []model.Mention) []model.Mention {
	if m == nil {
		return []model.Mention{}
	}
	return m
}
