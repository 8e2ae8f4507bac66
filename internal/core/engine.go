package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joesh-del/video-management/internal/config"
	"github.com/joesh-del/video-management/internal/core/ailog"
	"github.com/joesh-del/video-management/internal/core/collab"
	"github.com/joesh-del/video-management/internal/core/common"
	"github.com/joesh-del/video-management/internal/core/content"
	"github.com/joesh-del/video-management/internal/core/model"
	"github.com/joesh-del/video-management/internal/core/persona"
	"github.com/joesh-del/video-management/internal/core/search"
	"github.com/joesh-del/video-management/internal/llm"
	"github.com/joesh-del/video-management/internal/logger"
	"github.com/joesh-del/video-management/internal/store"
)

// Engine wires the core components together and owns the generation flow:
// retrieve persona-scoped context, call the model, parse, and record the
// full round trip. Provider calls happen outside every internal lock; the
// core only ever consumes their materialized results.
type Engine struct {
	Content  *content.Store
	Personas *persona.Registry
	Index    *search.Indexer
	Collab   *collab.Layer
	AILog    *ailog.Log
	LLM      llm.Client

	gen config.GenerationConfig
	log *logger.Logger
}

func NewEngine(db *store.DB, llmClient llm.Client, gen config.GenerationConfig, log *logger.Logger) *Engine {
	idx := search.NewIndexer(db)
	personas := persona.NewRegistry(db)
	return &Engine{
		Content:  content.NewStore(db, idx),
		Personas: personas,
		Index:    idx,
		Collab:   collab.NewLayer(db, personas),
		AILog:    ailog.NewLog(db),
		LLM:      llmClient,
		gen:      gen,
		log:      log,
	}
}

type GenerateRequest struct {
	PersonaID      string `json:"persona_id"`
	UserID         string `json:"user_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	PromptContext  string `json:"prompt_context,omitempty"`
	Query          string `json:"query"`
}

type Clip struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type clipResponse struct {
	Clips []Clip `json:"clips"`
}

type GenerateResult struct {
	LogID   string `json:"log_id"`
	Model   string `json:"model"`
	Text    string `json:"text"`
	Clips   []Clip `json:"clips,omitempty"`
	Latency int64  `json:"latency_ms"`
}

// Generate runs one persona-scoped generation call. Whatever happens
// upstream, the round trip lands in the interaction log: provider errors
// and unparseable responses are recorded as failed entries (raw response
// preserved) and surface to the caller as UpstreamFailure. A log write
// failure is itself logged but never fails the generation it observes.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	p, err := e.Personas.Get(ctx, req.PersonaID)
	if err != nil {
		return nil, err
	}

	retrieved, err := e.Index.Search(ctx, req.Query,
		model.SearchScope{PersonaID: p.ID}, 1, e.gen.ContextSegments)
	if err != nil {
		return nil, err
	}

	prompt := buildPrompt(p, retrieved.Hits, req.PromptContext, req.Query)

	entry := model.InteractionLogEntry{
		RequestType:    "clip_generation",
		Provider:       e.LLM.Provider(),
		UserID:         req.UserID,
		PersonaID:      p.ID,
		ConversationID: req.ConversationID,
		Prompt:         prompt,
	}

	started := time.Now()
	res, genErr := e.LLM.Generate(ctx, prompt, e.gen.MaxTokens)
	entry.LatencyMS = time.Since(started).Milliseconds()

	if genErr != nil {
		entry.Success = false
		entry.ErrorMessage = genErr.Error()
		e.record(ctx, entry)
		return nil, &model.UpstreamFailure{Provider: e.LLM.Provider(), Err: genErr}
	}

	entry.Model = res.Model
	entry.ResponseRaw = res.Text
	entry.PromptTokens = res.PromptTokens
	entry.CompletionTokens = res.CompletionTokens

	parsed, parseErr := common.ParseJSON[clipResponse](res.Text)
	if parseErr != nil {
		// The raw response is preserved on the failed entry; a parse
		// failure is never a missing row.
		entry.Success = false
		entry.ErrorMessage = fmt.Sprintf("parsing model response: %v", parseErr)
		e.record(ctx, entry)
		return nil, &model.UpstreamFailure{Provider: e.LLM.Provider(), Err: parseErr}
	}

	encoded, _ := json.Marshal(parsed)
	n := len(parsed.Clips)
	entry.Success = true
	entry.ResponseJSON = string(encoded)
	entry.ClipsGenerated = &n

	logID := e.record(ctx, entry)
	return &GenerateResult{
		LogID:   logID,
		Model:   res.Model,
		Text:    res.Text,
		Clips:   parsed.Clips,
		Latency: entry.LatencyMS,
	}, nil
}

func (e *Engine) record(ctx context.Context, entry model.InteractionLogEntry) string {
	id, err := e.AILog.Record(ctx, entry)
	if err != nil {
		e.log.Error("recording interaction log entry failed",
			"request_type", entry.RequestType, "error", err)
		return ""
	}
	return id
}

func buildPrompt(p *model.Persona, hits []model.SearchHit, promptContext, query string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are writing in the voice of %s.\n", p.Name))
	if p.Tone != "" {
		sb.WriteString(fmt.Sprintf("Tone: %s\n", p.Tone))
	}
	if p.StyleSummary != "" {
		sb.WriteString(fmt.Sprintf("Style: %s\n", p.StyleSummary))
	}
	if len(hits) > 0 {
		sb.WriteString("\nSource material:\n")
		for i, h := range hits {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, h.Snippet))
		}
	}
	if promptContext != "" {
		sb.WriteString("\nContext: " + promptContext + "\n")
	}
	sb.WriteString("\nRequest: " + query + "\n")
	sb.WriteString(`Respond with a JSON object: {"clips": [{"title": "...", "text": "..."}]}` + "\n")
	return sb.String()
}

// IngestTranscript consumes a transcription provider callback: an ordered
// list of (start, end, speaker, text) tuples plus the provider identity,
// which is stored as metadata only. When every resolvable speaker label
// points at one persona the item is linked to it; ambiguous or unmatched
// labels leave the item unlinked rather than guessing.
func (e *Engine) IngestTranscript(ctx context.Context, contentID, provider, providerModel string, tuples []model.NewSegment) ([]model.Segment, error) {
	if provider != "" {
		if err := e.Content.SetProvider(ctx, contentID, provider, providerModel); err != nil {
			return nil, err
		}
	}

	stored, err := e.Content.AppendSegments(ctx, contentID, tuples)
	if err != nil {
		return nil, err
	}

	item, err := e.Content.Get(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if item.PersonaID == "" {
		if pid, err := e.resolveSpeakers(ctx, tuples); err != nil {
			return nil, err
		} else if pid != "" {
			if err := e.Content.SetPersona(ctx, contentID, pid); err != nil {
				return nil, err
			}
		}
	}
	return stored, nil
}

// TranscriptFailed marks the item failed on a provider error. No segments
// are written; retry is the caller's responsibility.
func (e *Engine) TranscriptFailed(ctx context.Context, contentID, provider, reason string) error {
	if reason == "" {
		reason = "transcription provider error"
	}
	if err := e.Content.MarkFailed(ctx, contentID, reason); err != nil {
		return err
	}
	e.log.Warn("transcription failed", "content_id", contentID, "provider", provider, "reason", reason)
	return nil
}

func (e *Engine) resolveSpeakers(ctx context.Context, tuples []model.NewSegment) (string, error) {
	seen := make(map[string]bool)
	resolved := make(map[string]bool)
	for _, t := range tuples {
		label := strings.TrimSpace(t.Speaker)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		p, err := e.Personas.ResolveBySpeaker(ctx, label)
		if err != nil {
			return "", err
		}
		if p != nil {
			resolved[p.ID] = true
		}
	}
	if len(resolved) != 1 {
		return "", nil
	}
	for id := range resolved {
		return id, nil
	}
	return "", nil
}
