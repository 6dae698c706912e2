package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gemini-chat/internal/models"
	"gemini-chat/internal/services"
)

// ProxyErrorMessage is the body of every failed chat response.
const ProxyErrorMessage = "Error processing your request"

// ChatModel sends a prompt to a generative model on top of prior turns.
type ChatModel interface {
	Chat(ctx context.Context, history []models.ChatMessage, prompt string) (string, error)
}

type ChatHandler struct {
	model        ChatModel
	maxBodyBytes int64
	logger       *zap.Logger
}

func NewChatHandler(model ChatModel, maxBodyBytes int64, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		model:        model,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.Named("chat"),
	}
}

// Chat forwards the posted transcript to the model and answers with the
// reply as plain text.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With(zap.String("request_id", r.Header.Get("X-Request-ID")))

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("invalid chat request body", zap.Error(err))
		writeText(w, http.StatusInternalServerError, ProxyErrorMessage)
		return
	}

	history, prompt, err := services.SplitTranscript(req.Messages)
	if err != nil {
		log.Error("invalid chat transcript", zap.Int("messages", len(req.Messages)), zap.Error(err))
		writeText(w, http.StatusInternalServerError, ProxyErrorMessage)
		return
	}

	reply, err := h.model.Chat(r.Context(), history, prompt)
	if err != nil {
		log.Error("error in chat route",
			zap.Bool("timeout", errors.Is(err, services.ErrModelTimeout)),
			zap.Error(err))
		writeText(w, http.StatusInternalServerError, ProxyErrorMessage)
		return
	}

	writeText(w, http.StatusOK, reply)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
