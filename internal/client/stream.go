package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"gemini-chat/internal/models"
)

const streamPath = "/api/chat/stream"

// ErrStreamFailed is returned when the proxy ends a stream with an error frame.
var ErrStreamFailed = errors.New("chat stream failed")

// StreamClient receives replies chunk by chunk over the streaming endpoint.
type StreamClient struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer

	// OnChunk, when set, is called with every chunk as it arrives.
	OnChunk func(string)
}

func NewStreamClient(endpoint string, timeout time.Duration) (*StreamClient, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid chat endpoint: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	u.Path += streamPath

	return &StreamClient{
		url:     u.String(),
		timeout: timeout,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}, nil
}

func (c *StreamClient) Send(ctx context.Context, msgs []models.ChatMessage) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("chat stream dial failed: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}
	// Unblock ReadJSON when the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteJSON(models.ChatRequest{Messages: msgs}); err != nil {
		return "", fmt.Errorf("failed to send chat request: %w", err)
	}

	var reply strings.Builder
	for {
		var frame models.StreamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("chat stream interrupted: %w", err)
		}

		switch frame.Type {
		case models.FrameChunk:
			reply.WriteString(frame.Content)
			if c.OnChunk != nil {
				c.OnChunk(frame.Content)
			}
		case models.FrameDone:
			return reply.String(), nil
		case models.FrameError:
			return "", fmt.Errorf("%w: %s", ErrStreamFailed, frame.Content)
		default:
			return "", fmt.Errorf("unexpected stream frame %q", frame.Type)
		}
	}
}
