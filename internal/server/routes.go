package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talkie-app/sttd/internal/config"
	"github.com/talkie-app/sttd/internal/dispatch"
	"github.com/talkie-app/sttd/internal/handlers"
	"github.com/talkie-app/sttd/internal/repository/transcript"
	"github.com/talkie-app/sttd/internal/session"
	"github.com/talkie-app/sttd/pkg/Logger"
)

// Event types streamed back over the recognizer WebSocket.
type EventType string

const (
	EventPartial EventType = "partial"
	EventFinal   EventType = "final"
	EventAck     EventType = "ack"
	EventError   EventType = "error"
)

// WSEvent is one server-to-client message.
type WSEvent struct {
	Type       EventType `json:"type"`
	Recognizer string    `json:"recognizer,omitempty"`
	Text       string    `json:"text,omitempty"`
	SessionID  string    `json:"sessionId,omitempty"`
}

type Dependencies struct {
	Dispatcher  *dispatch.Dispatcher
	Objects     *session.Registry
	Transcripts transcript.Repository
	Logger      *Logger.Logger
	Configs     *config.Settings
}

func NewServerDependencies(
	dispatcher *dispatch.Dispatcher,
	objects *session.Registry,
	transcripts transcript.Repository,
	logger *Logger.Logger,
	cfg *config.Settings,
) Dependencies {
	return Dependencies{
		Dispatcher:  dispatcher,
		Objects:     objects,
		Transcripts: transcripts,
		Logger:      logger,
		Configs:     cfg,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // dev-only
}

func InitializeRoutes(r *gin.Engine, dep Dependencies) {
	r.Use(handlers.CORSMiddleware())
	r.Use(handlers.RequestLoggerMiddleware(dep.Logger))
	r.Use(handlers.ErrorHandlerMiddleware(dep.Logger))

	r.GET("/", func(ctx *gin.Context) { ctx.JSON(200, gin.H{"message": "Server healthy"}) })
	r.GET("/health", func(ctx *gin.Context) { ctx.JSON(200, gin.H{"status": "ok"}) })

	h := handlers.NewSTTHandler(dep.Dispatcher, dep.Objects, dep.Transcripts, dep.Logger)

	v1 := r.Group("/v1")
	if dep.Configs.Auth.Enabled {
		v1.Use(handlers.AuthMiddleware(dep.Configs.Auth.JWTSecret, dep.Logger))
	}
	v1.POST("/models", h.LoadModel)
	v1.GET("/models", h.ListModels)
	v1.POST("/command", h.Command)
	v1.GET("/transcripts", h.Transcripts)

	sm := newStreamManager(dep)
	r.GET("/ws/recognizers/:name", sm.handleRecognizerWebSocket)
}

// streamManager runs the WebSocket audio-streaming surface. Each
// connection drives exactly one recognizer object through the
// dispatcher, so streamed audio obeys the same rules as /v1/command.
type streamManager struct {
	deps Dependencies
}

func newStreamManager(deps Dependencies) *streamManager {
	return &streamManager{deps: deps}
}

func (sm *streamManager) handleRecognizerWebSocket(c *gin.Context) {
	name := c.Param("name")
	rec, ok := sm.deps.Objects.Recognizer(name)
	if !ok || rec.Closed() {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: "no open recognizer named " + name})
		return
	}
	model, _ := sm.deps.Objects.Model(rec.ModelName())

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sm.deps.Logger.Errorf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.New()
	sm.deps.Logger.Infof("ws connected - recognizer=%s session=%s", name, sessionID)

	st := &streamState{
		sm:        sm,
		conn:      conn,
		rec:       name,
		sessionID: sessionID,
	}
	if model != nil {
		st.engine = model.EngineType()
	}

	for {
		messageType, msgBytes, err := conn.ReadMessage()
		if err != nil {
			sm.deps.Logger.Infof("ws closed for %s: %v", name, err)
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			st.handleAudio(c, msgBytes)
		case websocket.TextMessage:
			if st.handleControl(c, string(msgBytes)) {
				return
			}
		default:
			sm.deps.Logger.Warnf("unknown ws message type %d on %s", messageType, name)
		}
	}
}

type streamState struct {
	sm        *streamManager
	conn      *websocket.Conn
	rec       string
	engine    string
	sessionID uuid.UUID

	lastPartial  string
	audioSeconds float64
}

func (st *streamState) send(ev WSEvent) {
	ev.Recognizer = st.rec
	ev.SessionID = st.sessionID.String()
	if err := st.conn.WriteJSON(ev); err != nil {
		st.sm.deps.Logger.Debugf("ws write failed for %s: %v", st.rec, err)
	}
}

func (st *streamState) dispatch(c *gin.Context, words ...[]byte) (string, bool) {
	result, err := st.sm.deps.Dispatcher.Do(c.Request.Context(), words)
	if err != nil {
		st.send(WSEvent{Type: EventError, Text: err.Error()})
		return "", false
	}
	return result, true
}

// handleAudio feeds one binary frame to the recognizer. The first 8
// bytes carry sample rate (4), channels (2) and 2 reserved bytes,
// the rest is 16-bit PCM.
func (st *streamState) handleAudio(c *gin.Context, msgBytes []byte) {
	if len(msgBytes) <= 8 {
		st.send(WSEvent{Type: EventError, Text: "audio frame too short"})
		return
	}

	sampleRate := int32(msgBytes[0]) | int32(msgBytes[1])<<8 | int32(msgBytes[2])<<16 | int32(msgBytes[3])<<24
	channels := int16(msgBytes[4]) | int16(msgBytes[5])<<8
	pcmData := msgBytes[8:]

	if sampleRate > 0 && channels > 0 {
		samples := len(pcmData) / 2 / int(channels)
		st.audioSeconds += float64(samples) / float64(sampleRate)
	}

	boundary, ok := st.dispatch(c, []byte(st.rec), []byte("accept-waveform"), pcmData)
	if !ok {
		return
	}

	if boundary == "true" {
		st.emitFinal(c, true)
		return
	}

	partial, ok := st.dispatch(c, []byte(st.rec), []byte("text"))
	if !ok {
		return
	}
	if partial != st.lastPartial {
		st.lastPartial = partial
		if err := st.sm.deps.Transcripts.CachePartial(st.rec, partial); err != nil {
			st.sm.deps.Logger.Debugf("partial cache failed for %s: %v", st.rec, err)
		}
		st.send(WSEvent{Type: EventPartial, Text: partial})
	}
}

// handleControl runs a text command; returns true when the connection
// should end.
func (st *streamState) handleControl(c *gin.Context, cmd string) bool {
	switch cmd {
	case "final":
		st.emitFinal(c, false)
		return false
	case "reset":
		if _, ok := st.dispatch(c, []byte(st.rec), []byte("reset")); ok {
			st.lastPartial = ""
			st.audioSeconds = 0
			st.send(WSEvent{Type: EventAck, Text: "reset"})
		}
		return false
	case "close":
		if _, ok := st.dispatch(c, []byte(st.rec), []byte("close")); ok {
			st.send(WSEvent{Type: EventAck, Text: "closed"})
		}
		return true
	}
	st.send(WSEvent{Type: EventError, Text: "unknown control message \"" + cmd + "\""})
	return false
}

// emitFinal finalizes the current utterance, persists it, and resets
// the recognizer when streaming continues.
func (st *streamState) emitFinal(c *gin.Context, continueStream bool) {
	text, ok := st.dispatch(c, []byte(st.rec), []byte("final-result"))
	if !ok {
		return
	}

	if text != "" {
		t := transcript.Transcript{
			ID:           uuid.New(),
			SessionID:    st.sessionID,
			Recognizer:   st.rec,
			Engine:       st.engine,
			Text:         text,
			AudioSeconds: st.audioSeconds,
			CreatedAt:    time.Now(),
		}
		if _, err := st.sm.deps.Transcripts.SaveFinal(c.Request.Context(), t); err != nil {
			st.sm.deps.Logger.Errorf("transcript save failed for %s: %v", st.rec, err)
		}
	}

	st.send(WSEvent{Type: EventFinal, Text: text})
	st.lastPartial = ""
	st.audioSeconds = 0

	if continueStream {
		st.dispatch(c, []byte(st.rec), []byte("reset"))
	}
}
