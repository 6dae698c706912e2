package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gemini-chat/internal/models"
	"gemini-chat/internal/services"
)

type stubModel struct {
	reply   string
	err     error
	calls   int
	history []models.ChatMessage
	prompt  string
}

func (s *stubModel) Chat(ctx context.Context, history []models.ChatMessage, prompt string) (string, error) {
	s.calls++
	s.history = history
	s.prompt = prompt
	return s.reply, s.err
}

func postChat(t *testing.T, h *ChatHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Chat(rr, req)
	return rr
}

func TestChatHandler_SingleMessage(t *testing.T) {
	model := &stubModel{reply: "Hello back"}
	h := NewChatHandler(model, 1<<20, zap.NewNop())

	rr := postChat(t, h, `{"messages":[{"role":"user","content":"Hi"}]}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "Hello back", rr.Body.String())
	assert.Empty(t, model.history)
	assert.Equal(t, "Hi", model.prompt)
}

func TestChatHandler_ForwardsPriorTurns(t *testing.T) {
	model := &stubModel{reply: "Fine, thanks"}
	h := NewChatHandler(model, 1<<20, zap.NewNop())

	rr := postChat(t, h, `{"messages":[
		{"role":"user","content":"Hi"},
		{"role":"assistant","content":"Hey"},
		{"role":"user","content":"How are you"}]}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "How are you", model.prompt)
	assert.Equal(t, []models.ChatMessage{
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "Hey"},
	}, model.history)

	contents := services.BuildHistory(model.history)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
}

func TestChatHandler_Failures(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		modelErr  error
		wantCalls int
	}{
		{"malformed json", `{"messages":`, nil, 0},
		{"missing messages", `{}`, nil, 0},
		{"empty messages", `{"messages":[]}`, nil, 0},
		{"model error", `{"messages":[{"role":"user","content":"Hi"}]}`, errors.New("upstream down"), 1},
		{"model timeout", `{"messages":[{"role":"user","content":"Hi"}]}`, fmt.Errorf("%w: deadline", services.ErrModelTimeout), 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := &stubModel{err: tc.modelErr}
			h := NewChatHandler(model, 1<<20, zap.NewNop())

			rr := postChat(t, h, tc.body)

			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			assert.Equal(t, ProxyErrorMessage, rr.Body.String())
			assert.Equal(t, tc.wantCalls, model.calls)
		})
	}
}

func TestChatHandler_BodyTooLarge(t *testing.T) {
	model := &stubModel{reply: "unused"}
	h := NewChatHandler(model, 64, zap.NewNop())

	body, err := json.Marshal(models.ChatRequest{Messages: []models.ChatMessage{
		{Role: "user", Content: strings.Repeat("a", 500)},
	}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Chat(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Zero(t, model.calls)
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}
