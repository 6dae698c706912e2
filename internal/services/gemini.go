package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"gemini-chat/internal/models"
)

// ErrModelTimeout is returned when a Gemini call does not finish within the
// configured timeout, including time spent waiting for a rate slot.
var ErrModelTimeout = errors.New("gemini request timed out")

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	timeout  time.Duration
	rateChan chan struct{} // Token bucket
	logger   *zap.Logger
}

func NewGeminiService(
	apiKey string,
	modelName string,
	concurrentReqs int,
	timeout time.Duration,
	logger *zap.Logger,
) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		timeout:  timeout,
		rateChan: rateChan,
		logger:   logger.Named("gemini"),
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *GeminiService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Chat seeds a chat session with history and sends prompt as the next turn.
func (s *GeminiService) Chat(ctx context.Context, history []models.ChatMessage, prompt string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.acquireRate(ctx); err != nil {
		return "", wrapModelErr(ctx, err)
	}
	defer s.releaseRate()

	cs := s.model.StartChat()
	cs.History = BuildHistory(history)

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", wrapModelErr(ctx, err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			s.logger.Warn("candidate stopped early",
				zap.Int("candidate", i),
				zap.Any("finish_reason", cand.FinishReason))
		}
	}
	s.logger.Debug("chat turn completed",
		zap.Int("history_len", len(history)),
		zap.Duration("elapsed", time.Since(start)))

	return extractText(resp), nil
}

// ChatStream is like Chat but hands each text chunk to onChunk as it
// arrives. An error from onChunk aborts the stream and is returned as is.
func (s *GeminiService) ChatStream(ctx context.Context, history []models.ChatMessage, prompt string, onChunk func(string) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.acquireRate(ctx); err != nil {
		return wrapModelErr(ctx, err)
	}
	defer s.releaseRate()

	cs := s.model.StartChat()
	cs.History = BuildHistory(history)

	iter := cs.SendMessageStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return wrapModelErr(ctx, err)
		}
		if text := extractText(resp); text != "" {
			if err := onChunk(text); err != nil {
				return err
			}
		}
	}
}

// BuildHistory maps transcript roles onto Gemini roles: "user" stays "user",
// anything else becomes "model".
func BuildHistory(history []models.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := "model"
		if msg.Role == models.RoleUser {
			role = "user"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents
}

func wrapModelErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrModelTimeout, err)
	}
	return fmt.Errorf("Gemini API error: %w", err)
}

// extractText returns the text parts of the first candidate. Other
// candidates are ignored.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}
