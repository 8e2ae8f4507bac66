package persona

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joesh-del/video-management/internal/core/model"
	"github.com/joesh-del/video-management/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRegistry(db), db
}

func TestUpsert_CreateThenUpdate(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	created, err := r.Upsert(ctx, "Dan Goldin", model.PersonaProfile{Tone: "direct"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "direct", created.Tone)

	// Same name updates in place rather than duplicating.
	updated, err := r.Upsert(ctx, "Dan Goldin", model.PersonaProfile{
		Tone: "direct", StyleSummary: "short declarative sentences",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "short declarative sentences", updated.StyleSummary)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsert_RequiresName(t *testing.T) {
	r, _ := newTestRegistry(t)
	var ve *model.ValidationError
	_, err := r.Upsert(context.Background(), "   ", model.PersonaProfile{})
	assert.ErrorAs(t, err, &ve)
}

func TestLinkSpeaker_ExactMatchResolution(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	p, err := r.Upsert(ctx, "Dan", model.PersonaProfile{})
	require.NoError(t, err)
	require.NoError(t, r.LinkSpeaker(ctx, p.ID, "Speaker 1"))
	require.NoError(t, r.LinkSpeaker(ctx, p.ID, "Dan G"))

	got, err := r.ResolveBySpeaker(ctx, "Speaker 1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, []string{"Dan G", "Speaker 1"}, got.SpeakerLabels)

	// Exact match only: near-misses resolve to nothing.
	got, err = r.ResolveBySpeaker(ctx, "speaker 1")
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = r.ResolveBySpeaker(ctx, "Speaker 2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLinkSpeaker_ClaimedLabelConflicts(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	a, err := r.Upsert(ctx, "A", model.PersonaProfile{})
	require.NoError(t, err)
	b, err := r.Upsert(ctx, "B", model.PersonaProfile{})
	require.NoError(t, err)

	require.NoError(t, r.LinkSpeaker(ctx, a.ID, "Host"))
	// Relinking the same pair is a no-op.
	require.NoError(t, r.LinkSpeaker(ctx, a.ID, "Host"))

	var ve *model.ValidationError
	assert.ErrorAs(t, r.LinkSpeaker(ctx, b.ID, "Host"), &ve)

	var nf *model.NotFoundError
	assert.ErrorAs(t, r.LinkSpeaker(ctx, "ghost", "Host"), &nf)
}

func TestResolveByName(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	p, err := r.Upsert(ctx, "Dan", model.PersonaProfile{})
	require.NoError(t, err)

	got, err := r.ResolveByName(ctx, "Dan")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.ID, got.ID)

	got, err = r.ResolveByName(ctx, "Nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelete_NullsWeakReferences(t *testing.T) {
	r, db := newTestRegistry(t)
	ctx := context.Background()

	p, err := r.Upsert(ctx, "Dan", model.PersonaProfile{})
	require.NoError(t, err)
	require.NoError(t, r.LinkSpeaker(ctx, p.ID, "Speaker 1"))

	now := time.Now().UTC().Unix()
	_, err = db.Conn().Exec(`
		INSERT INTO content_items (id, source_type, title, persona_id, created_at, updated_at)
		VALUES ('item-1', 'audio', 'talk', ?, ?, ?)`, p.ID, now, now)
	require.NoError(t, err)
	_, err = db.Conn().Exec(`
		INSERT INTO search_entries (source_id, kind, content_id, persona_id, source_type)
		VALUES ('seg-1', 'segment', 'item-1', ?, 'audio')`, p.ID)
	require.NoError(t, err)
	_, err = db.Conn().Exec(`
		INSERT INTO ai_interaction_logs (id, request_type, persona_id, prompt, success, created_at)
		VALUES ('log-1', 'clip_generation', ?, 'p', 1, ?)`, p.ID, now)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, p.ID))

	var nf *model.NotFoundError
	_, err = r.Get(ctx, p.ID)
	assert.ErrorAs(t, err, &nf)

	// Referents survive with the reference nulled; nothing cascades.
	for _, q := range []string{
		`SELECT COUNT(*) FROM content_items WHERE id = 'item-1' AND persona_id IS NULL`,
		`SELECT COUNT(*) FROM search_entries WHERE source_id = 'seg-1' AND persona_id IS NULL`,
		`SELECT COUNT(*) FROM ai_interaction_logs WHERE id = 'log-1' AND persona_id IS NULL`,
	} {
		var n int
		require.NoError(t, db.Conn().QueryRow(q).Scan(&n))
		assert.Equal(t, 1, n, q)
	}

	// The freed label is claimable again.
	q, err := r.Upsert(ctx, "Dan II", model.PersonaProfile{})
	require.NoError(t, err)
	assert.NoError(t, r.LinkSpeaker(ctx, q.ID, "Speaker 1"))
}

func TestDelete_Unknown(t *testing.T) {
	r, _ := newTestRegistry(t)
	var nf *model.NotFoundError
	assert.ErrorAs(t, r.Delete(context.Background(), "ghost"), &nf)
}
