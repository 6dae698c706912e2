// Package client talks to the chat proxy endpoint on behalf of the
// conversation store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gemini-chat/internal/models"
)

const chatPath = "/api/chat"

// StatusError reports a non-2xx answer from the proxy.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat endpoint returned %d: %s", e.Code, e.Body)
}

// HTTPClient posts whole transcripts to the proxy and reads back plain text.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Send(ctx context.Context, msgs []models.ChatMessage) (string, error) {
	body, err := json.Marshal(models.ChatRequest{Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+chatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode, Body: string(data)}
	}

	return string(data), nil
}
