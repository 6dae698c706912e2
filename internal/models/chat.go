package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Conversation is a titled transcript of messages.
type Conversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
}

// Clone returns a copy that shares no message storage with c.
func (c Conversation) Clone() Conversation {
	msgs := make([]ChatMessage, len(c.Messages))
	copy(msgs, c.Messages)
	c.Messages = msgs
	return c
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// StreamFrame is one server-to-client message on the streaming endpoint.
type StreamFrame struct {
	Type    string `json:"type"` // "chunk", "done" or "error"
	Content string `json:"content,omitempty"`
}

const (
	FrameChunk = "chunk"
	FrameDone  = "done"
	FrameError = "error"
)
