package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/talkie-app/sttd/internal/dispatch"
	"github.com/talkie-app/sttd/internal/repository/transcript"
	"github.com/talkie-app/sttd/internal/session"
	"github.com/talkie-app/sttd/pkg/Logger"
)

type STTHandler struct {
	dispatcher  *dispatch.Dispatcher
	objects     *session.Registry
	transcripts transcript.Repository
	logger      *Logger.Logger
}

func NewSTTHandler(
	dispatcher *dispatch.Dispatcher,
	objects *session.Registry,
	transcripts transcript.Repository,
	logger *Logger.Logger,
) *STTHandler {
	return &STTHandler{
		dispatcher:  dispatcher,
		objects:     objects,
		transcripts: transcripts,
		logger:      logger,
	}
}

// LoadModel handles POST /v1/models.
func (h *STTHandler) LoadModel(c *gin.Context) {
	var req LoadModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	name, err := h.dispatcher.LoadModel(c.Request.Context(), req.Engine, req.Path)
	if err != nil {
		h.logger.Errorf("model load failed (engine=%s): %v", req.Engine, err)
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, LoadModelResponse{Name: name, Engine: req.Engine})
}

// ListModels handles GET /v1/models.
func (h *STTHandler) ListModels(c *gin.Context) {
	resp := ListModelsResponse{Models: []ModelInfo{}}
	for _, name := range h.objects.ModelNames() {
		m, ok := h.objects.Model(name)
		if !ok {
			continue
		}
		resp.Models = append(resp.Models, ModelInfo{
			Name:        m.Name(),
			Engine:      m.EngineType(),
			Path:        m.Path(),
			Recognizers: m.Children(),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Command handles POST /v1/command: one dispatcher command per call.
func (h *STTHandler) Command(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	words := splitWords(req.Command)
	if req.Audio != "" {
		data, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "audio is not valid base64"})
			return
		}
		words = append(words, data)
	}

	result, err := h.dispatcher.Do(c.Request.Context(), words)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, CommandResponse{Result: result})
}

// Transcripts handles GET /v1/transcripts?session=<uuid>.
func (h *STTHandler) Transcripts(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Query("session"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session must be a uuid"})
		return
	}

	list, err := h.transcripts.BySession(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Errorf("transcript listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list transcripts"})
		return
	}
	if list == nil {
		list = []transcript.Transcript{}
	}
	c.JSON(http.StatusOK, TranscriptsResponse{Transcripts: list})
}

func splitWords(command string) [][]byte {
	fields := strings.Fields(command)
	words := make([][]byte, len(fields))
	for i, f := range fields {
		words[i] = []byte(f)
	}
	return words
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dispatch.ErrUnknownObject), errors.Is(err, dispatch.ErrObjectDeleted):
		return http.StatusNotFound
	case errors.Is(err, dispatch.ErrObjectClosed):
		return http.StatusConflict
	case errors.Is(err, dispatch.ErrWrongArity),
		errors.Is(err, dispatch.ErrInvalidArgument),
		errors.Is(err, dispatch.ErrUnknownSubcommand):
		return http.StatusBadRequest
	case errors.Is(err, dispatch.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
