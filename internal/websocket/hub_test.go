package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gemini-chat/internal/client"
	"gemini-chat/internal/models"
)

type stubStreamer struct {
	chunks  []string
	err     error
	history []models.ChatMessage
	prompt  string
}

func (s *stubStreamer) ChatStream(ctx context.Context, history []models.ChatMessage, prompt string, onChunk func(string) error) error {
	s.history = history
	s.prompt = prompt
	for _, c := range s.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return s.err
}

func newTestHub(t *testing.T, model StreamingModel) (*Hub, *client.StreamClient) {
	t.Helper()
	hub := NewHub(model, "http://localhost:3000", zap.NewNop())
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleStream))
	t.Cleanup(srv.Close)

	c, err := client.NewStreamClient(srv.URL, 5*time.Second)
	require.NoError(t, err)
	return hub, c
}

func TestHub_StreamsChunks(t *testing.T) {
	model := &stubStreamer{chunks: []string{"Hel", "lo ", "there"}}
	hub, c := newTestHub(t, model)

	reply, err := c.Send(context.Background(), []models.ChatMessage{
		{Role: models.RoleUser, Content: "Hi"},
		{Role: models.RoleAssistant, Content: "Hey"},
		{Role: models.RoleUser, Content: "Greet me"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello there", reply)
	assert.Equal(t, "Greet me", model.prompt)
	assert.Len(t, model.history, 2)

	assert.Eventually(t, func() bool { return hub.Active() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_ModelError(t *testing.T) {
	model := &stubStreamer{chunks: []string{"partial"}, err: errors.New("upstream down")}
	_, c := newTestHub(t, model)

	_, err := c.Send(context.Background(), []models.ChatMessage{{Role: models.RoleUser, Content: "Hi"}})
	assert.ErrorIs(t, err, client.ErrStreamFailed)
}

func TestHub_EmptyTranscript(t *testing.T) {
	model := &stubStreamer{}
	_, c := newTestHub(t, model)

	_, err := c.Send(context.Background(), nil)
	assert.ErrorIs(t, err, client.ErrStreamFailed)
	assert.Empty(t, model.prompt)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	hub := NewHub(&stubStreamer{}, "http://localhost:3000", zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/chat/stream", nil)
	req.Header.Set("Origin", "http://evil.example")

	assert.False(t, hub.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, hub.upgrader.CheckOrigin(req))

	req.Header.Del("Origin")
	assert.True(t, hub.upgrader.CheckOrigin(req))
}
