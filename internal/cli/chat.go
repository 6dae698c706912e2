// Package cli is the terminal front end of the conversation store: it reads
// lines, turns them into store operations and prints the conversation.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gemini-chat/internal/models"
	"gemini-chat/internal/store"
)

var (
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	activeStyle    = lipgloss.NewStyle().Bold(true)
)

// ErrQuit is returned by a LineReader when the user wants to leave.
var ErrQuit = errors.New("quit")

// LineReader reads one line of user input.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// Chat drives a store from line input.
type Chat struct {
	store     *store.Store
	in        LineReader
	out       io.Writer
	render    func(string) string
	streaming bool
}

type Option func(*Chat)

// WithRenderer sets how assistant replies are printed.
func WithRenderer(render func(string) string) Option {
	return func(c *Chat) { c.render = render }
}

// WithStreaming tells the chat that replies were already printed chunk by
// chunk while they arrived.
func WithStreaming(streaming bool) Option {
	return func(c *Chat) { c.streaming = streaming }
}

func New(s *store.Store, in LineReader, out io.Writer, opts ...Option) *Chat {
	c := &Chat{
		store:  s,
		in:     in,
		out:    out,
		render: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run reads input until the user quits or the input ends.
func (c *Chat) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, mutedStyle.Render("What can I help with? Type /help for commands."))

	for {
		line, err := c.in.ReadLine(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, ErrQuit) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := c.handleCommand(line); quit {
				return nil
			}
			continue
		}

		c.submit(ctx, line)
	}
}

func (c *Chat) submit(ctx context.Context, text string) {
	c.store.SetInput(text)

	// First message with no conversation yet starts one.
	if _, ok := c.store.CurrentConversation(); !ok {
		c.store.CreateNewConversation()
	}

	if c.streaming {
		fmt.Fprint(c.out, assistantStyle.Render("gemini> "))
	} else {
		fmt.Fprintln(c.out, mutedStyle.Render("thinking..."))
	}

	if err := c.store.SendMessage(ctx, text); err != nil {
		fmt.Fprintln(c.out, warningStyle.Render(err.Error()))
		return
	}

	conv, ok := c.store.CurrentConversation()
	if !ok || len(conv.Messages) == 0 {
		return
	}
	last := conv.Messages[len(conv.Messages)-1]
	if last.Role != models.RoleAssistant {
		return
	}

	if c.streaming {
		if last.Content == store.FallbackMessage {
			fmt.Fprint(c.out, last.Content)
		}
		fmt.Fprintln(c.out)
		return
	}
	fmt.Fprintln(c.out, assistantStyle.Render("gemini>"))
	fmt.Fprintln(c.out, c.render(last.Content))
}

func (c *Chat) handleCommand(line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		c.printHelp()
	case "/new":
		c.store.CreateNewConversation()
		fmt.Fprintln(c.out, mutedStyle.Render("Started a new chat."))
	case "/list":
		c.printList()
	case "/switch":
		conv, ok := c.lookup(args)
		if !ok {
			return false
		}
		c.store.SwitchConversation(conv.ID)
		fmt.Fprintf(c.out, "Switched to %s\n", activeStyle.Render(conv.Title))
		c.printHistory()
	case "/delete":
		conv, ok := c.lookup(args)
		if !ok {
			return false
		}
		c.store.DeleteConversation(conv.ID)
		fmt.Fprintf(c.out, "Deleted %s\n", conv.Title)
	case "/clear":
		if _, ok := c.store.CurrentConversation(); !ok {
			fmt.Fprintln(c.out, warningStyle.Render("No active chat."))
			return false
		}
		c.store.ClearChat()
		fmt.Fprintln(c.out, mutedStyle.Render("Chat cleared."))
	case "/history":
		c.printHistory()
	default:
		fmt.Fprintln(c.out, warningStyle.Render("Unknown command "+cmd+". Type /help for commands."))
	}
	return false
}

// lookup resolves a 1-based position from /list.
func (c *Chat) lookup(args []string) (models.Conversation, bool) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, warningStyle.Render("Usage: /switch <n> or /delete <n>"))
		return models.Conversation{}, false
	}

	convs := c.store.State().Conversations
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(convs) {
		fmt.Fprintln(c.out, warningStyle.Render(fmt.Sprintf("No chat #%s.", args[0])))
		return models.Conversation{}, false
	}
	return convs[n-1], true
}

func (c *Chat) printList() {
	st := c.store.State()
	if len(st.Conversations) == 0 {
		fmt.Fprintln(c.out, mutedStyle.Render("No chats yet."))
		return
	}

	for i, conv := range st.Conversations {
		marker := "  "
		title := conv.Title
		if conv.ID == st.CurrentConversationID {
			marker = "* "
			title = activeStyle.Render(title)
		}
		fmt.Fprintf(c.out, "%s%d. %s %s\n", marker, i+1, title,
			mutedStyle.Render(conv.CreatedAt.Format("Jan 2, 15:04")))
	}
}

func (c *Chat) printHistory() {
	conv, ok := c.store.CurrentConversation()
	if !ok {
		fmt.Fprintln(c.out, warningStyle.Render("No active chat."))
		return
	}
	if len(conv.Messages) == 0 {
		fmt.Fprintln(c.out, mutedStyle.Render("This chat is empty."))
		return
	}

	for _, msg := range conv.Messages {
		if msg.Role == models.RoleUser {
			fmt.Fprintf(c.out, "%s %s\n", userStyle.Render("you>"), msg.Content)
			continue
		}
		fmt.Fprintln(c.out, assistantStyle.Render("gemini>"))
		fmt.Fprintln(c.out, c.render(msg.Content))
	}
}

func (c *Chat) printHelp() {
	fmt.Fprintln(c.out, `Commands:
  /new          start a new chat
  /list         list chats, newest first
  /switch <n>   switch to chat n from /list
  /delete <n>   delete chat n from /list
  /clear        clear the messages of the current chat
  /history      show the current chat
  /quit         leave`)
}
