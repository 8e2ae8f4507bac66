package search

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joesh-del/video-management/internal/core/model"
	"github.com/joesh-del/video-management/internal/store"
)

const DefaultPageSize = 20

// Indexer maintains the derived token index. Index writes always ride the
// same transaction as the text write they derive from, so a reader can
// never observe old text with a fresh index or vice versa.
type Indexer struct {
	db *store.DB
}

func NewIndexer(db *store.DB) *Indexer {
	return &Indexer{db: db}
}

// Source identifies the text being indexed and the attributes search
// scoping filters on.
type Source struct {
	ID           string
	Kind         model.SourceKind
	ContentID    string
	PersonaID    string
	SourceType   model.SourceType
	SegmentIndex int
	RecordedAt   time.Time
}

// ReindexTx rebuilds the postings for one source inside the caller's
// transaction. Rebuilding from identical text yields an identical index.
func (ix *Indexer) ReindexTx(tx *sql.Tx, src Source, text string) error {
	_, err := tx.Exec(`
		INSERT INTO search_entries
			(source_id, kind, content_id, persona_id, source_type, segment_index, recorded_at, token_count, text_version, index_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 1, 0)
		ON CONFLICT(source_id) DO UPDATE SET
			persona_id = excluded.persona_id,
			recorded_at = excluded.recorded_at,
			text_version = search_entries.text_version + 1,
			index_version = 0
	`, src.ID, string(src.Kind), src.ContentID, nullString(src.PersonaID),
		string(src.SourceType), src.SegmentIndex, src.RecordedAt.Unix())
	if err != nil {
		return fmt.Errorf("upserting search entry: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM search_tokens WHERE source_id = ?`, src.ID); err != nil {
		return fmt.Errorf("clearing postings: %w", err)
	}

	freqs := Tokenize(text)
	tokens := make([]string, 0, len(freqs))
	for tok := range freqs {
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)

	total := 0
	for _, tok := range tokens {
		if _, err := tx.Exec(
			`INSERT INTO search_tokens (source_id, token, freq) VALUES (?, ?, ?)`,
			src.ID, tok, freqs[tok],
		); err != nil {
			return fmt.Errorf("inserting posting %q: %w", tok, err)
		}
		total += freqs[tok]
	}

	// Publishing index_version = text_version marks the pair consistent.
	if _, err := tx.Exec(
		`UPDATE search_entries SET token_count = ?, index_version = text_version WHERE source_id = ?`,
		total, src.ID,
	); err != nil {
		return fmt.Errorf("publishing search entry: %w", err)
	}
	return nil
}

// RemoveTx drops a source from the index inside the caller's transaction.
func (ix *Indexer) RemoveTx(tx *sql.Tx, sourceID string) error {
	if _, err := tx.Exec(`DELETE FROM search_tokens WHERE source_id = ?`, sourceID); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM search_entries WHERE source_id = ?`, sourceID)
	return err
}

// SetPersonaTx repoints the denormalized persona scope for every entry of a
// content item. personaID may be empty to null the reference.
func (ix *Indexer) SetPersonaTx(tx *sql.Tx, contentID, personaID string) error {
	_, err := tx.Exec(
		`UPDATE search_entries SET persona_id = ? WHERE content_id = ?`,
		nullString(personaID), contentID,
	)
	return err
}

// Search runs a scoped, ranked query over committed state. Score is the
// summed stored frequency of matched query terms; ties break by recency
// then ascending segment index for a stable pagination order. An empty
// query returns everything in scope by recency.
func (ix *Indexer) Search(ctx context.Context, query string, scope model.SearchScope, page, pageSize int) (*model.SearchResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	scopeSQL, scopeArgs := scopeClauses(scope)
	tokens := QueryTokens(query)

	result := &model.SearchResult{Page: page, PageSize: pageSize}

	// Sources whose text committed ahead of their index are excluded and
	// reported; they come back after a forced reindex.
	staleQ := `SELECT EXISTS(SELECT 1 FROM search_entries e WHERE e.text_version != e.index_version` + scopeSQL + `)`
	if err := ix.db.Conn().QueryRowContext(ctx, staleQ, scopeArgs...).Scan(&result.Reindexing); err != nil {
		return nil, fmt.Errorf("checking index consistency: %w", err)
	}

	var rows *sql.Rows
	var err error
	if len(tokens) == 0 {
		q := `
			SELECT e.source_id, e.kind, e.content_id, 0 AS score,
			       s.start_time, s.end_time,
			       CASE WHEN e.kind = 'segment' THEN s.text ELSE c.body END AS text
			FROM search_entries e
			LEFT JOIN segments s ON s.id = e.source_id
			LEFT JOIN content_items c ON c.id = e.content_id
			WHERE e.text_version = e.index_version` + scopeSQL + `
			ORDER BY e.recorded_at DESC, e.content_id ASC, e.segment_index ASC, e.source_id ASC
			LIMIT ? OFFSET ?`
		args := append(append([]interface{}{}, scopeArgs...), pageSize, (page-1)*pageSize)
		rows, err = ix.db.Conn().QueryContext(ctx, q, args...)
	} else {
		placeholders := strings.Repeat("?,", len(tokens))
		placeholders = placeholders[:len(placeholders)-1]
		q := `
			SELECT e.source_id, e.kind, e.content_id, SUM(t.freq) AS score,
			       s.start_time, s.end_time,
			       CASE WHEN e.kind = 'segment' THEN s.text ELSE c.body END AS text
			FROM search_tokens t
			JOIN search_entries e ON e.source_id = t.source_id
			LEFT JOIN segments s ON s.id = e.source_id
			LEFT JOIN content_items c ON c.id = e.content_id
			WHERE t.token IN (` + placeholders + `)
			  AND e.text_version = e.index_version` + scopeSQL + `
			GROUP BY e.source_id
			ORDER BY score DESC, e.recorded_at DESC, e.content_id ASC, e.segment_index ASC, e.source_id ASC
			LIMIT ? OFFSET ?`
		args := make([]interface{}, 0, len(tokens)+len(scopeArgs)+2)
		for _, tok := range tokens {
			args = append(args, tok)
		}
		args = append(args, scopeArgs...)
		args = append(args, pageSize, (page-1)*pageSize)
		rows, err = ix.db.Conn().QueryContext(ctx, q, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hit model.SearchHit
		var kind string
		var start, end sql.NullFloat64
		var text sql.NullString
		if err := rows.Scan(&hit.SourceID, &kind, &hit.ContentID, &hit.Score, &start, &end, &text); err != nil {
			return nil, err
		}
		hit.Kind = model.SourceKind(kind)
		if hit.Kind == model.KindSegment && start.Valid {
			hit.StartTime = &start.Float64
			hit.EndTime = &end.Float64
		}
		hit.Snippet = snippet(text.String, tokens)
		result.Hits = append(result.Hits, hit)
	}
	return result, rows.Err()
}

// ForceReindex rebuilds a flagged source from its current stored text.
func (ix *Indexer) ForceReindex(ctx context.Context, sourceID string) error {
	return ix.db.WithTx(ctx, func(tx *sql.Tx) error {
		var src Source
		var kind, sourceType string
		var personaID sql.NullString
		var recordedAt int64
		err := tx.QueryRow(`
			SELECT source_id, kind, content_id, persona_id, source_type, segment_index, recorded_at
			FROM search_entries WHERE source_id = ?`, sourceID,
		).Scan(&src.ID, &kind, &src.ContentID, &personaID, &sourceType, &src.SegmentIndex, &recordedAt)
		if err == sql.ErrNoRows {
			return model.NotFound("search entry", sourceID)
		}
		if err != nil {
			return err
		}
		src.Kind = model.SourceKind(kind)
		src.SourceType = model.SourceType(sourceType)
		src.PersonaID = personaID.String
		src.RecordedAt = time.Unix(recordedAt, 0).UTC()

		var text string
		if src.Kind == model.KindSegment {
			err = tx.QueryRow(`SELECT text FROM segments WHERE id = ?`, sourceID).Scan(&text)
		} else {
			err = tx.QueryRow(`SELECT body FROM content_items WHERE id = ?`, src.ContentID).Scan(&text)
		}
		if err == sql.ErrNoRows {
			// Source text is gone; the entry is an orphan.
			return ix.RemoveTx(tx, sourceID)
		}
		if err != nil {
			return err
		}

		return ix.ReindexTx(tx, src, text)
	})
}

// CheckConsistency reports the inconsistency error for a source whose
// versions diverged, nil when the pair is consistent.
func (ix *Indexer) CheckConsistency(ctx context.Context, sourceID string) error {
	var textVer, indexVer int64
	err := ix.db.Conn().QueryRowContext(ctx,
		`SELECT text_version, index_version FROM search_entries WHERE source_id = ?`, sourceID,
	).Scan(&textVer, &indexVer)
	if err == sql.ErrNoRows {
		return model.NotFound("search entry", sourceID)
	}
	if err != nil {
		return err
	}
	if textVer != indexVer {
		return &model.IndexInconsistencyError{SourceID: sourceID}
	}
	return nil
}

const snippetWindow = 160

// snippet extracts a window of text around the first matched term, or the
// head of the text when nothing matches (empty queries).
func snippet(text string, tokens []string) string {
	if len(text) <= snippetWindow {
		return text
	}
	lower := strings.ToLower(text)
	pos := -1
	for _, tok := range tokens {
		if i := strings.Index(lower, tok); i >= 0 && (pos == -1 || i < pos) {
			pos = i
		}
	}
	if pos <= snippetWindow/2 {
		return text[:snippetWindow] + "…"
	}
	start := pos - snippetWindow/2
	end := start + snippetWindow
	if end > len(text) {
		end = len(text)
		start = end - snippetWindow
	}
	return "…" + text[start:end] + "…"
}

func scopeClauses(scope model.SearchScope) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}
	if scope.PersonaID != "" {
		sb.WriteString(" AND e.persona_id = ?")
		args = append(args, scope.PersonaID)
	}
	if scope.SourceType != "" {
		sb.WriteString(" AND e.source_type = ?")
		args = append(args, string(scope.SourceType))
	}
	if scope.Since != nil {
		sb.WriteString(" AND e.recorded_at >= ?")
		args = append(args, scope.Since.Unix())
	}
	if scope.Until != nil {
		sb.WriteString(" AND e.recorded_at <= ?")
		args = append(args, scope.Until.Unix())
	}
	return sb.String(), args
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
