package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gemini-chat/internal/handlers"
	"gemini-chat/internal/models"
	"gemini-chat/internal/services"
)

const writeWait = 10 * time.Second

// StreamingModel streams a model reply chunk by chunk.
type StreamingModel interface {
	ChatStream(ctx context.Context, history []models.ChatMessage, prompt string, onChunk func(string) error) error
}

type stream struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// Hub serves streamed chat replies over WebSocket and keeps track of the
// open streams so they can be torn down on shutdown.
type Hub struct {
	mu       sync.Mutex
	streams  map[uuid.UUID]stream
	model    StreamingModel
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewHub(model StreamingModel, frontendURL string, logger *zap.Logger) *Hub {
	return &Hub{
		streams: make(map[uuid.UUID]stream),
		model:   model,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == frontendURL
			},
		},
		logger: logger.Named("stream"),
	}
}

// HandleStream reads one ChatRequest frame and answers with chunk frames
// followed by a single done or error frame.
func (h *Hub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	h.register(id, conn, cancel)
	defer h.unregister(id)

	log := h.logger.With(
		zap.String("stream_id", id.String()),
		zap.String("request_id", r.Header.Get("X-Request-ID")))

	var req models.ChatRequest
	if err := conn.ReadJSON(&req); err != nil {
		log.Error("invalid stream request", zap.Error(err))
		h.writeFrame(conn, models.StreamFrame{Type: models.FrameError, Content: handlers.ProxyErrorMessage})
		return
	}

	history, prompt, err := services.SplitTranscript(req.Messages)
	if err != nil {
		log.Error("invalid stream transcript", zap.Error(err))
		h.writeFrame(conn, models.StreamFrame{Type: models.FrameError, Content: handlers.ProxyErrorMessage})
		return
	}

	// A closed client connection cancels the model call.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	chunks := 0
	err = h.model.ChatStream(ctx, history, prompt, func(text string) error {
		chunks++
		return h.writeFrame(conn, models.StreamFrame{Type: models.FrameChunk, Content: text})
	})
	if err != nil {
		log.Error("error in chat stream", zap.Int("chunks", chunks), zap.Error(err))
		h.writeFrame(conn, models.StreamFrame{Type: models.FrameError, Content: handlers.ProxyErrorMessage})
		return
	}

	h.writeFrame(conn, models.StreamFrame{Type: models.FrameDone})
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	log.Debug("stream completed", zap.Int("chunks", chunks))
}

// Close aborts every open stream.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, s := range h.streams {
		s.cancel()
		s.conn.Close()
		delete(h.streams, id)
	}
}

// Active returns the number of open streams.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams)
}

func (h *Hub) writeFrame(conn *websocket.Conn, frame models.StreamFrame) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(frame)
}

func (h *Hub) register(id uuid.UUID, conn *websocket.Conn, cancel context.CancelFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.streams[id] = stream{conn: conn, cancel: cancel}
	h.logger.Debug("stream opened", zap.String("stream_id", id.String()), zap.Int("active", len(h.streams)))
}

func (h *Hub) unregister(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.streams[id]
	if !ok {
		return
	}
	s.cancel()
	s.conn.Close()
	delete(h.streams, id)
}
