package persona

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

// Registry holds voice/identity profiles. Names are unique; an upsert on
// an existing name updates it rather than duplicating. Speaker labels
// resolve by exact match only.
type Registry struct {
	db *store.DB
}

func NewRegistry(db *store.DB) *Registry {
	return &Registry{db: db}
}

// Upsert creates the persona or, on a name collision, updates the existing
// one and returns it.
func (r *Registry) Upsert(ctx context.Context, name string, profile model.PersonaProfile) (*model.Persona, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Validationf("name", "persona name is required")
	}

	var out *model.Persona
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		var id string
		var createdAt int64
		err := tx.QueryRow(`SELECT id, created_at FROM personas WHERE name = ?`, name).Scan(&id, &createdAt)
		switch {
		case err == sql.ErrNoRows:
			id = uuid.New().String()
			createdAt = now.Unix()
			if _, err := tx.Exec(`
				INSERT INTO personas (id, name, tone, style, style_summary, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, name, profile.Tone, profile.Style, profile.StyleSummary,
				createdAt, now.Unix()); err != nil {
				return fmt.Errorf("inserting persona: %w", err)
			}
		case err != nil:
			return err
		default:
			if _, err := tx.Exec(`
				UPDATE personas SET tone = ?, style = ?, style_summary = ?, updated_at = ?
				WHERE id = ?`,
				profile.Tone, profile.Style, profile.StyleSummary, now.Unix(), id); err != nil {
				return fmt.Errorf("updating persona: %w", err)
			}
		}

		labels, err := speakerLabelsTx(tx, id)
		if err != nil {
			return err
		}
		out = &model.Persona{
			ID:            id,
			Name:          name,
			Tone:          profile.Tone,
			Style:         profile.Style,
			StyleSummary:  profile.StyleSummary,
			SpeakerLabels: labels,
			CreatedAt:     time.Unix(createdAt, 0).UTC(),
			UpdatedAt:     now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LinkSpeaker binds a transcript speaker label to the persona. A label
// already claimed by a different persona is a validation error; relinking
// to the same persona is a no-op.
func (r *Registry) LinkSpeaker(ctx context.Context, personaID, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return model.Validationf("speaker_label", "speaker label is required")
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM personas WHERE id = ?)`, personaID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return model.NotFound("persona", personaID)
		}

		var owner string
		err := tx.QueryRow(`SELECT persona_id FROM persona_speakers WHERE speaker_label = ?`, label).Scan(&owner)
		switch {
		case err == sql.ErrNoRows:
			_, err := tx.Exec(`INSERT INTO persona_speakers (persona_id, speaker_label) VALUES (?, ?)`, personaID, label)
			return err
		case err != nil:
			return err
		case owner == personaID:
			return nil
		default:
			return model.Validationf("speaker_label", "label %q already linked to another persona", label)
		}
	})
}

// ResolveBySpeaker resolves a speaker label by exact match. Unmatched
// labels return nil: callers store content without a persona link rather
// than guessing.
func (r *Registry) ResolveBySpeaker(ctx context.Context, label string) (*model.Persona, error) {
	var id string
	err := r.db.Conn().QueryRowContext(ctx,
		`SELECT persona_id FROM persona_speakers WHERE speaker_label = ?`, strings.TrimSpace(label),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// ResolveByName resolves a persona by its unique name; nil when unmatched.
func (r *Registry) ResolveByName(ctx context.Context, name string) (*model.Persona, error) {
	var id string
	err := r.db.Conn().QueryRowContext(ctx,
		`SELECT id FROM personas WHERE name = ?`, strings.TrimSpace(name),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *Registry) Get(ctx context.Context, id string) (*model.Persona, error) {
	var p *model.Persona
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = getTx(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Registry) List(ctx context.Context) ([]model.Persona, error) {
	rows, err := r.db.Conn().QueryContext(ctx,
		`SELECT id, name, tone, style, style_summary, created_at, updated_at FROM personas ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Persona
	for rows.Next() {
		var p model.Persona
		var createdAt, updatedAt int64
		if err := rows.Scan(&p.ID, &p.Name, &p.Tone, &p.Style, &p.StyleSummary, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes the persona and nulls every weak reference to it: content
// items, their search scope, and interaction log entries. Nothing cascades.
func (r *Registry) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM personas WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return model.NotFound("persona", id)
		}
		if _, err := tx.Exec(`DELETE FROM persona_speakers WHERE persona_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE content_items SET persona_id = NULL WHERE persona_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE search_entries SET persona_id = NULL WHERE persona_id = ?`, id); err != nil {
			return err
		}
		_, err = tx.Exec(`UPDATE ai_interaction_logs SET persona_id = NULL WHERE persona_id = ?`, id)
		return err
	})
}

func getTx(tx *sql.Tx, id string) (*model.Persona, error) {
	var p model.Persona
	var createdAt, updatedAt int64
	err := tx.QueryRow(
		`SELECT id, name, tone, style, style_summary, created_at, updated_at FROM personas WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Tone, &p.Style, &p.StyleSummary, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, model.NotFound("persona", id)
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	labels, err := speakerLabelsTx(tx, id)
	if err != nil {
		return nil, err
	}
	p.SpeakerLabels = labels
	return &p, nil
}

func speakerLabelsTx(tx *sql.Tx, personaID string) ([]string, error) {
	rows, err := tx.Query(`SELECT speaker_label FROM persona_speakers WHERE persona_id = ? ORDER BY speaker_label`, personaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}
