package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joesh-del/video-management/internal/core/model"
	"github.com/joesh-del/video-management/internal/core/search"
	"github.com/joesh-del/video-management/internal/store"
)

// Store is the durable home of content items and their time-ordered
// segments. Appends for one parent are serialized against each other;
// different parents proceed in parallel. Every text write updates the
// search index inside the same transaction.
type Store struct {
	db  *store.DB
	idx *search.Indexer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(db *store.DB, idx *search.Indexer) *Store {
	return &Store{
		db:    db,
		idx:   idx,
		locks: make(map[string]*sync.Mutex),
	}
}

// parentLock returns the append mutex for one content item.
func (s *Store) parentLock(parentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[parentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[parentID] = l
	}
	return l
}

// CreateParams carries ingestion metadata for a new content item.
type CreateParams struct {
	SourceType       model.SourceType
	Title            string
	PersonaID        string
	BlobKey          string
	OriginalFilename string
	DurationSeconds  float64
	RecordedAt       *time.Time
	Speakers         []string
	Keywords         []string
	Provider         string
	ProviderModel    string
	Extra            map[string]string
	Body             string // inline text for document/social items
}

// CreateContentItem ingests metadata and returns the new item with status
// uploaded (or parsed, when inline document text was supplied and indexed).
// A persona reference that no longer resolves is nulled, not guessed at.
func (s *Store) CreateContentItem(ctx context.Context, p CreateParams) (*model.ContentItem, error) {
	if !p.SourceType.Valid() {
		return nil, model.Validationf("source_type", "unknown source type %q", p.SourceType)
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, model.Validationf("title", "title is required")
	}
	if p.Body != "" && p.SourceType.IsRecording() {
		return nil, model.Validationf("body", "recordings take segments, not inline text")
	}
	if err := validateExtra(p.Extra); err != nil {
		return nil, err
	}

	item := &model.ContentItem{
		ID:               uuid.New().String(),
		SourceType:       p.SourceType,
		Title:            p.Title,
		Status:           model.StatusUploaded,
		PersonaID:        p.PersonaID,
		BlobKey:          p.BlobKey,
		OriginalFilename: p.OriginalFilename,
		DurationSeconds:  p.DurationSeconds,
		RecordedAt:       p.RecordedAt,
		Speakers:         p.Speakers,
		Keywords:         p.Keywords,
		Provider:         p.Provider,
		ProviderModel:    p.ProviderModel,
		Extra:            p.Extra,
		Body:             p.Body,
		CreatedAt:        time.Now().UTC(),
	}
	item.UpdatedAt = item.CreatedAt
	item.WordCount = len(strings.Fields(p.Body))
	if p.Body != "" {
		item.Status = model.StatusParsed
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if item.PersonaID != "" {
			var exists bool
			if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM personas WHERE id = ?)`, item.PersonaID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				item.PersonaID = ""
			}
		}

		speakers, _ := json.Marshal(emptySlice(item.Speakers))
		keywords, _ := json.Marshal(emptySlice(item.Keywords))
		extra, _ := json.Marshal(emptyMap(item.Extra))
		_, err := tx.Exec(`
			INSERT INTO content_items
				(id, source_type, title, status, persona_id, blob_key, original_filename,
				 duration_seconds, word_count, recorded_at, speakers, keywords,
				 provider, provider_model, extra, body, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, string(item.SourceType), item.Title, string(item.Status),
			nullString(item.PersonaID), item.BlobKey, item.OriginalFilename,
			item.DurationSeconds, item.WordCount, nullTime(item.RecordedAt),
			string(speakers), string(keywords), item.Provider, item.ProviderModel,
			string(extra), item.Body, item.CreatedAt.Unix(), item.UpdatedAt.Unix())
		if err != nil {
			return fmt.Errorf("inserting content item: %w", err)
		}

		if item.Body != "" {
			return s.idx.ReindexTx(tx, s.documentSource(item), item.Body)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// AppendSegments validates and stores a batch atomically, indexing each
// new segment in the same transaction. A violation anywhere fails the
// whole batch and names the offending segment; the stored set is
// unchanged. The first successful append moves the item to transcribed.
func (s *Store) AppendSegments(ctx context.Context, parentID string, batch []model.NewSegment) ([]model.Segment, error) {
	lock := s.parentLock(parentID)
	lock.Lock()
	defer lock.Unlock()

	var stored []model.Segment
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		item, err := getItemTx(tx, parentID)
		if err != nil {
			return err
		}
		if !item.SourceType.IsRecording() {
			return model.Validationf("source_type", "%s items do not take segments", item.SourceType)
		}
		switch item.Status {
		case model.StatusProcessed:
			return model.Validationf("status", "content item is processed and immutable")
		case model.StatusFailed:
			return model.Validationf("status", "content item is failed; re-ingest instead")
		}

		existing, err := listSegmentsTx(tx, parentID)
		if err != nil {
			return err
		}
		if err := validateBatch(existing, batch); err != nil {
			return err
		}

		now := time.Now().UTC()
		recency := item.CreatedAt
		if item.RecordedAt != nil {
			recency = *item.RecordedAt
		}
		words := 0
		for _, ns := range batch {
			seg := model.Segment{
				ID:        uuid.New().String(),
				ContentID: parentID,
				Index:     ns.Index,
				StartTime: ns.StartTime,
				EndTime:   ns.EndTime,
				Speaker:   ns.Speaker,
				Text:      ns.Text,
				CreatedAt: now,
			}
			if _, err := tx.Exec(`
				INSERT INTO segments (id, content_id, segment_index, start_time, end_time, speaker, text, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				seg.ID, seg.ContentID, seg.Index, seg.StartTime, seg.EndTime,
				seg.Speaker, seg.Text, seg.CreatedAt.Unix()); err != nil {
				return fmt.Errorf("inserting segment %d: %w", seg.Index, err)
			}

			src := search.Source{
				ID:           seg.ID,
				Kind:         model.KindSegment,
				ContentID:    parentID,
				PersonaID:    item.PersonaID,
				SourceType:   item.SourceType,
				SegmentIndex: seg.Index,
				RecordedAt:   recency,
			}
			if err := s.idx.ReindexTx(tx, src, seg.Text); err != nil {
				return err
			}

			words += len(strings.Fields(seg.Text))
			stored = append(stored, seg)
		}

		status := item.Status
		if status == model.StatusUploaded {
			status = model.StatusTranscribed
		}
		_, err = tx.Exec(
			`UPDATE content_items SET status = ?, word_count = word_count + ?, updated_at = ? WHERE id = ?`,
			string(status), words, now.Unix(), parentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ListSegments returns the parent's segments ordered by segment index.
func (s *Store) ListSegments(ctx context.Context, parentID string) ([]model.Segment, error) {
	var segs []model.Segment
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := getItemTx(tx, parentID); err != nil {
			return err
		}
		var err error
		segs, err = listSegmentsTx(tx, parentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return segs, nil
}

// SetDocumentText replaces a document/social item's body, reindexing it in
// the same transaction, and moves uploaded items to parsed.
func (s *Store) SetDocumentText(ctx context.Context, id, text string) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		item, err := getItemTx(tx, id)
		if err != nil {
			return err
		}
		if item.SourceType.IsRecording() {
			return model.Validationf("source_type", "recordings take segments, not inline text")
		}
		if item.Status == model.StatusProcessed {
			return model.Validationf("status", "content item is processed and immutable")
		}

		status := item.Status
		if status == model.StatusUploaded {
			status = model.StatusParsed
		}
		_, err = tx.Exec(
			`UPDATE content_items SET body = ?, word_count = ?, status = ?, updated_at = ? WHERE id = ?`,
			text, len(strings.Fields(text)), string(status), time.Now().UTC().Unix(), id)
		if err != nil {
			return err
		}

		item.Body = text
		return s.idx.ReindexTx(tx, s.documentSource(item), text)
	})
}

// SetPersona links (or with an empty id, unlinks) the item's persona and
// repoints the denormalized search scope in the same transaction.
func (s *Store) SetPersona(ctx context.Context, id, personaID string) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := getItemTx(tx, id); err != nil {
			return err
		}
		if personaID != "" {
			var exists bool
			if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM personas WHERE id = ?)`, personaID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return model.NotFound("persona", personaID)
			}
		}
		if _, err := tx.Exec(`UPDATE content_items SET persona_id = ?, updated_at = ? WHERE id = ?`,
			nullString(personaID), time.Now().UTC().Unix(), id); err != nil {
			return err
		}
		return s.idx.SetPersonaTx(tx, id, personaID)
	})
}

// SetProvider records which external provider produced the transcript.
// Provider identity is metadata, never interpreted, and stays writable
// after processing.
func (s *Store) SetProvider(ctx context.Context, id, provider, providerModel string) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := getItemTx(tx, id); err != nil {
			return err
		}
		_, err := tx.Exec(
			`UPDATE content_items SET provider = ?, provider_model = ?, updated_at = ? WHERE id = ?`,
			provider, providerModel, time.Now().UTC().Unix(), id)
		return err
	})
}

// MarkProcessed finalizes an item. Further text writes are rejected.
func (s *Store) MarkProcessed(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, model.StatusProcessed, "")
}

// MarkFailed records an upstream failure with its reason. No segments are
// written for failed items; retry is the caller's responsibility.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) error {
	return s.setStatus(ctx, id, model.StatusFailed, reason)
}

func (s *Store) setStatus(ctx context.Context, id string, next model.ContentStatus, reason string) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		item, err := getItemTx(tx, id)
		if err != nil {
			return err
		}
		if !item.Status.CanTransitionTo(next) {
			return model.Validationf("status", "cannot transition %s -> %s", item.Status, next)
		}
		_, err = tx.Exec(
			`UPDATE content_items SET status = ?, status_reason = ?, updated_at = ? WHERE id = ?`,
			string(next), reason, time.Now().UTC().Unix(), id)
		return err
	})
}

// Get returns one content item.
func (s *Store) Get(ctx context.Context, id string) (*model.ContentItem, error) {
	var item *model.ContentItem
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		item, err = getItemTx(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ExistsByOriginalFilename reports whether a file was already imported.
func (s *Store) ExistsByOriginalFilename(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM content_items WHERE original_filename = ?)`, name,
	).Scan(&exists)
	return exists, err
}

// Delete destroys the item, its segments, and their search entries as one
// explicit cascade.
func (s *Store) Delete(ctx context.Context, id string) error {
	lock := s.parentLock(id)
	lock.Lock()
	defer lock.Unlock()

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := getItemTx(tx, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM search_tokens WHERE source_id IN
			(SELECT source_id FROM search_entries WHERE content_id = ?)`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM search_entries WHERE content_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM segments WHERE content_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM content_items WHERE id = ?`, id)
		return err
	})
}

func (s *Store) documentSource(item *model.ContentItem) search.Source {
	recency := item.CreatedAt
	if item.RecordedAt != nil {
		recency = *item.RecordedAt
	}
	return search.Source{
		ID:         item.ID,
		Kind:       model.KindDocument,
		ContentID:  item.ID,
		PersonaID:  item.PersonaID,
		SourceType: item.SourceType,
		RecordedAt: recency,
	}
}

func getItemTx(tx *sql.Tx, id string) (*model.ContentItem, error) {
	row := tx.QueryRow(`
		SELECT id, source_type, title, status, status_reason, persona_id, blob_key,
		       original_filename, duration_seconds, word_count, recorded_at,
		       speakers, keywords, provider, provider_model, extra, body,
		       created_at, updated_at
		FROM content_items WHERE id = ?`, id)

	var item model.ContentItem
	var sourceType, status string
	var personaID sql.NullString
	var recordedAt sql.NullInt64
	var speakers, keywords, extra string
	var createdAt, updatedAt int64
	err := row.Scan(&item.ID, &sourceType, &item.Title, &status, &item.StatusReason,
		&personaID, &item.BlobKey, &item.OriginalFilename, &item.DurationSeconds,
		&item.WordCount, &recordedAt, &speakers, &keywords, &item.Provider,
		&item.ProviderModel, &extra, &item.Body, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, model.NotFound("content item", id)
	}
	if err != nil {
		return nil, err
	}

	item.SourceType = model.SourceType(sourceType)
	item.Status = model.ContentStatus(status)
	item.PersonaID = personaID.String
	if recordedAt.Valid {
		t := time.Unix(recordedAt.Int64, 0).UTC()
		item.RecordedAt = &t
	}
	item.CreatedAt = time.Unix(createdAt, 0).UTC()
	item.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	_ = json.Unmarshal([]byte(speakers), &item.Speakers)
	_ = json.Unmarshal([]byte(keywords), &item.Keywords)
	_ = json.Unmarshal([]byte(extra), &item.Extra)
	return &item, nil
}

func listSegmentsTx(tx *sql.Tx, parentID string) ([]model.Segment, error) {
	rows, err := tx.Query(`
		SELECT id, content_id, segment_index, start_time, end_time, speaker, text, created_at
		FROM segments WHERE content_id = ? ORDER BY segment_index`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segs []model.Segment
	for rows.Next() {
		var seg model.Segment
		var createdAt int64
		if err := rows.Scan(&seg.ID, &seg.ContentID, &seg.Index, &seg.StartTime,
			&seg.EndTime, &seg.Speaker, &seg.Text, &createdAt); err != nil {
			return nil, err
		}
		seg.CreatedAt = time.Unix(createdAt, 0).UTC()
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}
