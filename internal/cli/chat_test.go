package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-chat/internal/models"
	"gemini-chat/internal/store"
)

type scriptedInput struct {
	lines []string
}

func (s *scriptedInput) ReadLine(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

type echoSender struct {
	err error
}

func (e echoSender) Send(_ context.Context, msgs []models.ChatMessage) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return "echo: " + msgs[len(msgs)-1].Content, nil
}

func runScript(t *testing.T, sender store.Sender, lines ...string) (*store.Store, string) {
	t.Helper()
	s := store.New(sender)
	var out bytes.Buffer
	c := New(s, &scriptedInput{lines: lines}, &out)
	require.NoError(t, c.Run(context.Background()))
	return s, out.String()
}

func TestChat_FirstMessageCreatesConversation(t *testing.T) {
	s, out := runScript(t, echoSender{}, "Hello")

	st := s.State()
	require.Len(t, st.Conversations, 1)
	assert.Equal(t, st.Conversations[0].ID, st.CurrentConversationID)
	assert.Equal(t, "Hello...", st.Conversations[0].Title)
	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleUser, Content: "Hello"},
		{Role: models.RoleAssistant, Content: "echo: Hello"},
	}, st.Conversations[0].Messages)
	assert.Contains(t, out, "echo: Hello")
}

func TestChat_IgnoresBlankInput(t *testing.T) {
	s, _ := runScript(t, echoSender{}, "   ", "")
	assert.Empty(t, s.State().Conversations)
}

func TestChat_FailureShowsFallback(t *testing.T) {
	s, out := runScript(t, echoSender{err: errors.New("boom")}, "Hello")

	conv, ok := s.CurrentConversation()
	require.True(t, ok)
	assert.Equal(t, store.FallbackMessage, conv.Messages[1].Content)
	assert.Contains(t, out, store.FallbackMessage)
}

func TestChat_Commands(t *testing.T) {
	s, out := runScript(t, echoSender{},
		"first chat",
		"/new",
		"second chat",
		"/list",
		"/switch 2",
		"/delete 1",
		"/clear",
	)

	st := s.State()
	require.Len(t, st.Conversations, 1)
	assert.Equal(t, "first chat...", st.Conversations[0].Title)
	assert.Empty(t, st.Conversations[0].Messages)
	assert.Equal(t, st.Conversations[0].ID, st.CurrentConversationID)
	assert.Contains(t, out, "second chat...")
	assert.Contains(t, out, "Switched to")
	assert.Contains(t, out, "Chat cleared.")
}

func TestChat_InvalidCommands(t *testing.T) {
	s, out := runScript(t, echoSender{},
		"/switch",
		"/switch 7",
		"/delete abc",
		"/clear",
		"/bogus",
	)

	assert.Empty(t, s.State().Conversations)
	assert.Contains(t, out, "Usage: /switch <n> or /delete <n>")
	assert.Contains(t, out, "No chat #7.")
	assert.Contains(t, out, "No chat #abc.")
	assert.Contains(t, out, "No active chat.")
	assert.Contains(t, out, "Unknown command /bogus")
}

func TestChat_QuitStopsReading(t *testing.T) {
	s, _ := runScript(t, echoSender{}, "/quit", "never sent")
	assert.Empty(t, s.State().Conversations)
}

func TestChat_RendersReplies(t *testing.T) {
	s := store.New(echoSender{})
	var out bytes.Buffer
	c := New(s, &scriptedInput{lines: []string{"**bold**"}}, &out,
		WithRenderer(func(md string) string { return "<" + md + ">" }))

	require.NoError(t, c.Run(context.Background()))
	assert.Contains(t, out.String(), "<echo: **bold**>")
}

func TestChat_StreamingDoesNotReprintReply(t *testing.T) {
	s := store.New(echoSender{})
	var out bytes.Buffer
	c := New(s, &scriptedInput{lines: []string{"Hi"}}, &out,
		WithStreaming(true),
		WithRenderer(func(md string) string { return "RENDERED" }))

	require.NoError(t, c.Run(context.Background()))
	assert.NotContains(t, out.String(), "RENDERED")
}

func TestMarkdownRenderer_FallsBackToText(t *testing.T) {
	render := MarkdownRenderer(80)
	assert.Contains(t, render("plain words"), "plain words")
}
