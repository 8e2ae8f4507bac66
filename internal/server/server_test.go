package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joesh-del/video-management/internal/config"
	"github.com/joesh-del/video-management/internal/core"
	"github.com/joesh-del/video-management/internal/llm"
	"github.com/joesh-del/video-management/internal/logger"
	"github.com/joesh-del/video-management/internal/store"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Provider() string { return "stub" }

func (s *stubLLM) Generate(ctx context.Context, prompt string, maxTokens int) (*llm.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Result{Text: s.response, Model: "stub-model"}, nil
}

func newTestRouter(t *testing.T, client llm.Client) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	engine := core.NewEngine(db, client,
		config.GenerationConfig{ContextSegments: 8, MaxTokens: 256}, logger.NewNop())
	return New(engine, logger.NewNop()).SetupRouter("test")
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestContentLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t, &stubLLM{})

	w := doJSON(t, r, http.MethodPost, "/content", gin.H{
		"source_type": "audio",
		"title":       "Interview",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	item := decode(t, w)
	id := item["id"].(string)
	assert.Equal(t, "uploaded", item["status"])

	w = doJSON(t, r, http.MethodPost, "/content/"+id+"/transcript", gin.H{
		"provider": "whisper",
		"segments": []gin.H{
			{"segment_index": 0, "start_time": 0.0, "end_time": 2.5, "speaker": "A", "text": "hello world"},
			{"segment_index": 1, "start_time": 2.5, "end_time": 5.0, "speaker": "B", "text": "goodbye"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "transcribed", decode(t, w)["status"])

	w = doJSON(t, r, http.MethodGet, "/content/"+id+"/segments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	segs := decode(t, w)["segments"].([]interface{})
	assert.Len(t, segs, 2)

	w = doJSON(t, r, http.MethodPost, "/search", gin.H{"query": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	hits := decode(t, w)["hits"].([]interface{})
	require.Len(t, hits, 1)

	w = doJSON(t, r, http.MethodDelete, "/content/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/content/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTranscriptCallback_ProviderError(t *testing.T) {
	r := newTestRouter(t, &stubLLM{})

	w := doJSON(t, r, http.MethodPost, "/content", gin.H{
		"source_type": "video", "title": "Broken",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodPost, "/content/"+id+"/transcript", gin.H{
		"provider": "whisper",
		"error":    "audio unreadable",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "failed", decode(t, w)["status"])

	w = doJSON(t, r, http.MethodGet, "/content/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "failed", decode(t, w)["status"])
}

func TestErrorTaxonomyStatuses(t *testing.T) {
	r := newTestRouter(t, &stubLLM{err: errors.New("provider down")})

	// Validation errors map to 400.
	w := doJSON(t, r, http.MethodPost, "/content", gin.H{
		"source_type": "podcast", "title": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing entities map to 404.
	w = doJSON(t, r, http.MethodGet, "/content/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Upstream provider failures map to 502.
	pw := doJSON(t, r, http.MethodPost, "/personas", gin.H{"name": "Dan"})
	require.Equal(t, http.StatusOK, pw.Code)
	personaID := decode(t, pw)["id"].(string)

	w = doJSON(t, r, http.MethodPost, "/generate", gin.H{
		"persona_id": personaID, "query": "anything",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGenerateOverHTTP(t *testing.T) {
	r := newTestRouter(t, &stubLLM{
		response: `{"clips": [{"title": "One", "text": "First clip."}]}`,
	})

	pw := doJSON(t, r, http.MethodPost, "/personas", gin.H{
		"name": "Dan", "tone": "direct",
	})
	require.Equal(t, http.StatusOK, pw.Code)
	personaID := decode(t, pw)["id"].(string)

	w := doJSON(t, r, http.MethodPost, "/generate", gin.H{
		"persona_id": personaID, "query": "make clips",
	})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode(t, w)
	clips := res["clips"].([]interface{})
	require.Len(t, clips, 1)
	assert.NotEmpty(t, res["log_id"])

	// The round trip is queryable from the log endpoint.
	w = doJSON(t, r, http.MethodGet, "/logs?success=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode(t, w)["entries"].([]interface{})
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, "clip_generation", entry["request_type"])
}

func TestConversationFlowOverHTTP(t *testing.T) {
	r := newTestRouter(t, &stubLLM{})

	uw := doJSON(t, r, http.MethodPost, "/users", gin.H{"name": "alice"})
	require.Equal(t, http.StatusCreated, uw.Code)
	userID := decode(t, uw)["id"].(string)

	cw := doJSON(t, r, http.MethodPost, "/conversations", gin.H{
		"owner_id": userID, "collaborative": true,
	})
	require.Equal(t, http.StatusCreated, cw.Code)
	convID := decode(t, cw)["id"].(string)

	mw := doJSON(t, r, http.MethodPost, "/conversations/"+convID+"/messages", gin.H{
		"author_id": userID,
		"text":      "look at this @alice @nobody",
		"mentions":  []string{"@alice", "@nobody"},
	})
	require.Equal(t, http.StatusCreated, mw.Code)
	msg := decode(t, mw)
	msgID := msg["id"].(string)
	mentions := msg["mentions"].([]interface{})
	require.Len(t, mentions, 1)

	ccw := doJSON(t, r, http.MethodPost, "/conversations/"+convID+"/messages/"+msgID+"/comments", gin.H{
		"author_id":  userID,
		"clip_index": 0,
		"text":       "needs a stronger hook",
	})
	require.Equal(t, http.StatusCreated, ccw.Code)

	lw := doJSON(t, r, http.MethodGet, "/conversations/"+convID+"/messages/"+msgID+"/comments", nil)
	require.Equal(t, http.StatusOK, lw.Code)
	comments := decode(t, lw)["comments"].([]interface{})
	assert.Len(t, comments, 1)

	aw := doJSON(t, r, http.MethodPost, "/conversations/"+convID+"/archive", nil)
	require.Equal(t, http.StatusOK, aw.Code)

	mw = doJSON(t, r, http.MethodPost, "/conversations/"+convID+"/messages", gin.H{
		"author_id": userID, "text": "too late",
	})
	assert.Equal(t, http.StatusBadRequest, mw.Code)
}

func TestForceReindexEndpoint(t *testing.T) {
	r := newTestRouter(t, &stubLLM{})

	w := doJSON(t, r, http.MethodPost, "/search/reindex/unknown-source", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
