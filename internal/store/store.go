// Package store holds the client-side conversation state: every
// conversation, the active one, the pending input and the loading flag.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gemini-chat/internal/models"
)

const (
	DefaultTitle    = "New Chat"
	FallbackMessage = "Sorry, I encountered an error. Please try again."

	titleLength = 30
	titleSuffix = "..."
)

// ErrRequestInFlight is returned by SendMessage while another send is
// still waiting for its reply.
var ErrRequestInFlight = errors.New("a message is already being sent")

// Sender delivers a whole transcript to the chat endpoint and returns the
// assistant reply.
type Sender interface {
	Send(ctx context.Context, msgs []models.ChatMessage) (string, error)
}

// State is a snapshot of the store. It shares no memory with the store.
type State struct {
	Conversations         []models.Conversation
	CurrentConversationID string // empty when there is none
	Input                 string
	IsLoading             bool
}

type Store struct {
	mu            sync.Mutex
	conversations []*models.Conversation // newest first
	currentID     string
	input         string
	isLoading     bool

	sender    Sender
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger
	listeners map[int]func()
	nextSub   int
}

type Option func(*Store)

// WithTimeout bounds each SendMessage round trip. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func New(sender Sender, opts ...Option) *Store {
	s := &Store{
		sender:    sender,
		timeout:   60 * time.Second,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    zap.NewNop(),
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to run after every state change. The returned
// func removes it.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs := make([]models.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		convs[i] = c.Clone()
	}
	return State{
		Conversations:         convs,
		CurrentConversationID: s.currentID,
		Input:                 s.input,
		IsLoading:             s.isLoading,
	}
}

// CurrentConversation returns a copy of the active conversation.
func (s *Store) CurrentConversation() (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.find(s.currentID)
	if c == nil {
		return models.Conversation{}, false
	}
	return c.Clone(), true
}

func (s *Store) SetInput(text string) {
	s.update(func() { s.input = text })
}

func (s *Store) SetLoading(loading bool) {
	s.update(func() { s.isLoading = loading })
}

// CreateNewConversation prepends an empty conversation, makes it current and
// returns its id.
func (s *Store) CreateNewConversation() string {
	var id string
	s.update(func() {
		conv := &models.Conversation{
			ID:        s.newID(),
			Title:     DefaultTitle,
			Messages:  []models.ChatMessage{},
			CreatedAt: s.now(),
		}
		s.conversations = append([]*models.Conversation{conv}, s.conversations...)
		s.currentID = conv.ID
		s.input = ""
		id = conv.ID
	})
	return id
}

// SwitchConversation makes id current and clears the input. Unknown ids
// leave the state untouched and report false.
func (s *Store) SwitchConversation(id string) bool {
	s.mu.Lock()
	if s.find(id) == nil {
		s.mu.Unlock()
		return false
	}
	s.currentID = id
	s.input = ""
	s.mu.Unlock()

	s.notify()
	return true
}

// DeleteConversation removes id. When the active conversation is gone the
// first remaining one becomes current, or none when the list is empty.
func (s *Store) DeleteConversation(id string) {
	s.update(func() {
		kept := s.conversations[:0]
		for _, c := range s.conversations {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		for i := len(kept); i < len(s.conversations); i++ {
			s.conversations[i] = nil
		}
		s.conversations = kept

		if s.find(s.currentID) == nil {
			s.currentID = ""
			if len(s.conversations) > 0 {
				s.currentID = s.conversations[0].ID
			}
		}
	})
}

// AddMessage appends msg to the active conversation. The first message of a
// conversation also sets its title.
func (s *Store) AddMessage(msg models.ChatMessage) {
	s.update(func() { s.appendTo(s.currentID, msg) })
}

// ClearChat empties the active conversation, keeping its id, title and
// creation time.
func (s *Store) ClearChat() {
	s.update(func() {
		if c := s.find(s.currentID); c != nil {
			c.Messages = []models.ChatMessage{}
		}
	})
}

// SendMessage appends content as a user message, sends the transcript and
// appends the reply, or FallbackMessage when the send fails. The reply goes
// to the conversation the message was sent from, even if another one became
// current meanwhile. Send failures are logged, never returned; the only
// error is ErrRequestInFlight. The loading flag is always cleared on return.
func (s *Store) SendMessage(ctx context.Context, content string) error {
	s.mu.Lock()
	if s.isLoading {
		s.mu.Unlock()
		return ErrRequestInFlight
	}
	conv := s.find(s.currentID)
	if conv == nil {
		s.mu.Unlock()
		return nil
	}
	convID := conv.ID
	s.appendTo(convID, models.ChatMessage{Role: models.RoleUser, Content: content})
	s.input = ""
	s.isLoading = true
	transcript := conv.Clone().Messages
	s.mu.Unlock()
	s.notify()

	reply := s.send(ctx, convID, transcript)

	s.update(func() {
		s.appendTo(convID, models.ChatMessage{Role: models.RoleAssistant, Content: reply})
		s.isLoading = false
	})
	return nil
}

func (s *Store) send(ctx context.Context, convID string, transcript []models.ChatMessage) string {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now()
	reply, err := s.sender.Send(ctx, transcript)
	if err != nil {
		s.logger.Error("chat request failed",
			zap.String("conversation_id", convID),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			zap.Error(err))
		return FallbackMessage
	}

	s.logger.Debug("chat reply received",
		zap.String("conversation_id", convID),
		zap.Int("messages", len(transcript)),
		zap.Duration("elapsed", s.now().Sub(start)))
	return reply
}

// appendTo must be called with mu held. Missing conversations are ignored.
func (s *Store) appendTo(id string, msg models.ChatMessage) {
	c := s.find(id)
	if c == nil {
		return
	}
	if len(c.Messages) == 0 {
		c.Title = deriveTitle(msg.Content)
	}
	c.Messages = append(c.Messages, msg)
}

func (s *Store) find(id string) *models.Conversation {
	if id == "" {
		return nil
	}
	for _, c := range s.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// deriveTitle keeps the first 30 characters and always adds the ellipsis.
func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) > titleLength {
		runes = runes[:titleLength]
	}
	return string(runes) + titleSuffix
}
