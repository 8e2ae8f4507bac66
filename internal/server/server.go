package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joesh-del/video-management/internal/core"
	"github.com/joesh-del/video-management/internal/core/model"
	"github.com/joesh-del/video-management/internal/logger"
)

type Server struct {
	Engine *core.Engine
	log    *logger.Logger
}

func New(engine *core.Engine, log *logger.Logger) *Server {
	return &Server{Engine: engine, log: log}
}

func (s *Server) SetupRouter(mode string) *gin.Engine {
	if mode == "prod" || mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.POST("/users", s.CreateUser)

	r.POST("/personas", s.UpsertPersona)
	r.GET("/personas", s.ListPersonas)
	r.POST("/personas/:id/speakers", s.LinkSpeaker)
	r.DELETE("/personas/:id", s.DeletePersona)

	r.POST("/content", s.CreateContent)
	r.POST("/content/:id/transcript", s.TranscriptCallback)
	r.GET("/content/:id", s.GetContent)
	r.GET("/content/:id/segments", s.ListSegments)
	r.DELETE("/content/:id", s.DeleteContent)

	r.POST("/search", s.Search)
	r.POST("/search/reindex/:sourceID", s.ForceReindex)
	r.POST("/generate", s.Generate)

	r.POST("/conversations", s.CreateConversation)
	r.POST("/conversations/:id/participants", s.AddParticipant)
	r.POST("/conversations/:id/messages", s.PostMessage)
	r.GET("/conversations/:id/messages", s.ListMessages)
	r.POST("/conversations/:id/messages/:messageID/comments", s.PostClipComment)
	r.GET("/conversations/:id/messages/:messageID/comments", s.ListComments)
	r.POST("/conversations/:id/archive", s.ArchiveConversation)
	r.DELETE("/conversations/:id", s.DeleteConversation)

	r.GET("/logs", s.QueryLogs)

	return r
}

// respondError maps the core error taxonomy onto HTTP statuses.
func (s *Server) respondError(c *gin.Context, err error) {
	var ve *model.ValidationError
	var nf *model.NotFoundError
	var uf *model.UpstreamFailure
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error()})
	case errors.As(err, &uf):
		c.JSON(http.StatusBadGateway, gin.H{"error": uf.Error()})
	default:
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
