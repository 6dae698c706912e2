package services

import (
	"errors"
	"strings"

	"gemini-chat/internal/models"
)

// ErrEmptyTranscript is returned when a transcript carries no prompt to send.
var ErrEmptyTranscript = errors.New("transcript has no prompt")

// SplitTranscript treats the last message as the new prompt and everything
// before it as prior turns.
func SplitTranscript(msgs []models.ChatMessage) ([]models.ChatMessage, string, error) {
	if len(msgs) == 0 {
		return nil, "", ErrEmptyTranscript
	}

	last := msgs[len(msgs)-1]
	if strings.TrimSpace(last.Content) == "" {
		return nil, "", ErrEmptyTranscript
	}

	return msgs[:len(msgs)-1], last.Content, nil
}
