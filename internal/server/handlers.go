package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joesh-del/video-management/internal/core"
	"github.com/joesh-del/video-management/internal/core/content"
	"github.com/joesh-del/video-management/internal/core/model"
)

type CreateUserRequest struct {
	Name        string `json:"name" binding:"required"`
	DisplayName string `json:"display_name"`
}

func (s *Server) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	u, err := s.Engine.Collab.CreateUser(c.Request.Context(), req.Name, req.DisplayName)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type UpsertPersonaRequest struct {
	Name         string `json:"name" binding:"required"`
	Tone         string `json:"tone"`
	Style        string `json:"style"`
	StyleSummary string `json:"style_summary"`
}

func (s *Server) UpsertPersona(c *gin.Context) {
	var req UpsertPersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	p, err := s.Engine.Personas.Upsert(c.Request.Context(), req.Name, model.PersonaProfile{
		Tone:         req.Tone,
		Style:        req.Style,
		StyleSummary: req.StyleSummary,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) ListPersonas(c *gin.Context) {
	personas, err := s.Engine.Personas.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"personas": personas})
}

type LinkSpeakerRequest struct {
	SpeakerLabel string `json:"speaker_label" binding:"required"`
}

func (s *Server) LinkSpeaker(c *gin.Context) {
	var req LinkSpeakerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := s.Engine.Personas.LinkSpeaker(c.Request.Context(), c.Param("id"), req.SpeakerLabel); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "linked"})
}

func (s *Server) DeletePersona(c *gin.Context) {
	if err := s.Engine.Personas.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type CreateContentRequest struct {
	SourceType       string            `json:"source_type" binding:"required"`
	Title            string            `json:"title" binding:"required"`
	PersonaID        string            `json:"persona_id"`
	BlobKey          string            `json:"blob_key"`
	OriginalFilename string            `json:"original_filename"`
	DurationSeconds  float64           `json:"duration_seconds"`
	RecordedAt       *time.Time        `json:"recorded_at"`
	Speakers         []string          `json:"speakers"`
	Keywords         []string          `json:"keywords"`
	Extra            map[string]string `json:"extra"`
	Body             string            `json:"body"`
}

func (s *Server) CreateContent(c *gin.Context) {
	var req CreateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	item, err := s.Engine.Content.CreateContentItem(c.Request.Context(), content.CreateParams{
		SourceType:       model.SourceType(req.SourceType),
		Title:            req.Title,
		PersonaID:        req.PersonaID,
		BlobKey:          req.BlobKey,
		OriginalFilename: req.OriginalFilename,
		DurationSeconds:  req.DurationSeconds,
		RecordedAt:       req.RecordedAt,
		Speakers:         req.Speakers,
		Keywords:         req.Keywords,
		Extra:            req.Extra,
		Body:             req.Body,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

type TranscriptCallbackRequest struct {
	Provider      string             `json:"provider"`
	ProviderModel string             `json:"provider_model"`
	Error         string             `json:"error"`
	Segments      []model.NewSegment `json:"segments"`
}

// TranscriptCallback consumes a transcription provider's result. A
// provider-reported error marks the item failed and writes no segments.
func (s *Server) TranscriptCallback(c *gin.Context) {
	var req TranscriptCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	id := c.Param("id")

	if req.Error != "" {
		if err := s.Engine.TranscriptFailed(c.Request.Context(), id, req.Provider, req.Error); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": string(model.StatusFailed)})
		return
	}

	stored, err := s.Engine.IngestTranscript(c.Request.Context(), id, req.Provider, req.ProviderModel, req.Segments)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(model.StatusTranscribed), "segments": len(stored)})
}

func (s *Server) GetContent(c *gin.Context) {
	item, err := s.Engine.Content.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) ListSegments(c *gin.Context) {
	segs, err := s.Engine.Content.ListSegments(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"segments": segs})
}

func (s *Server) DeleteContent(c *gin.Context) {
	if err := s.Engine.Content.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type SearchRequest struct {
	Query    string            `json:"query"`
	Scope    model.SearchScope `json:"scope"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

func (s *Server) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	result, err := s.Engine.Index.Search(c.Request.Context(), req.Query, req.Scope, req.Page, req.PageSize)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) ForceReindex(c *gin.Context) {
	if err := s.Engine.Index.ForceReindex(c.Request.Context(), c.Param("sourceID")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reindexed"})
}

func (s *Server) Generate(c *gin.Context) {
	var req core.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	result, err := s.Engine.Generate(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type CreateConversationRequest struct {
	OwnerID       string `json:"owner_id" binding:"required"`
	Collaborative bool   `json:"collaborative"`
}

func (s *Server) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	conv, err := s.Engine.Collab.CreateConversation(c.Request.Context(), req.OwnerID, req.Collaborative)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

type AddParticipantRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

func (s *Server) AddParticipant(c *gin.Context) {
	var req AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := s.Engine.Collab.AddParticipant(c.Request.Context(), c.Param("id"), req.UserID, req.Role); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

type PostMessageRequest struct {
	AuthorID   string   `json:"author_id" binding:"required"`
	AuthorKind string   `json:"author_kind"`
	Text       string   `json:"text" binding:"required"`
	Mentions   []string `json:"mentions"`
}

func (s *Server) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	msg, err := s.Engine.Collab.PostMessage(c.Request.Context(), c.Param("id"),
		req.AuthorID, model.AuthorKind(req.AuthorKind), req.Text, req.Mentions)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (s *Server) ListMessages(c *gin.Context) {
	msgs, err := s.Engine.Collab.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type PostClipCommentRequest struct {
	AuthorID            string   `json:"author_id" binding:"required"`
	ClipIndex           int      `json:"clip_index"`
	Text                string   `json:"text" binding:"required"`
	Mentions            []string `json:"mentions"`
	IsRegenerateRequest bool     `json:"is_regenerate_request"`
}

func (s *Server) PostClipComment(c *gin.Context) {
	var req PostClipCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	comment, err := s.Engine.Collab.PostClipComment(c.Request.Context(), c.Param("id"),
		c.Param("messageID"), req.ClipIndex, req.AuthorID, req.Text, req.Mentions, req.IsRegenerateRequest)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Server) ListComments(c *gin.Context) {
	comments, err := s.Engine.Collab.ListComments(c.Request.Context(), c.Param("messageID"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (s *Server) ArchiveConversation(c *gin.Context) {
	if err := s.Engine.Collab.Archive(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(model.ConversationArchived)})
}

func (s *Server) DeleteConversation(c *gin.Context) {
	if err := s.Engine.Collab.DeleteConversation(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// QueryLogs serves the observability export: model, user, request type,
// success flag and time window filters over the interaction log.
func (s *Server) QueryLogs(c *gin.Context) {
	filter := model.LogFilter{
		Model:       c.Query("model"),
		UserID:      c.Query("user_id"),
		RequestType: c.Query("request_type"),
	}
	if v := c.Query("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid success flag"})
			return
		}
		filter.Success = &b
	}
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since timestamp"})
			return
		}
		filter.Since = &t
	}
	if v := c.Query("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid until timestamp"})
			return
		}
		filter.Until = &t
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	entries, err := s.Engine.AILog.Query(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
