// Package completion talks to an OpenAI-compatible chat-completions endpoint.
package completion

import (
	"bytes"
	"chat-desk/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response ends up in the error message.
const maxErrorBody = 512

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client implements contract.ICompletionService. One request per prompt, no retries;
// the caller's context bounds the call.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg Config, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, httpClient: httpClient, log: log}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var messages []chatMessage
	if c.cfg.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: c.cfg.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{Model: c.cfg.Model, Messages: messages})
	if err != nil {
		return "", err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Upstream(err)
	}
	request.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		request.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.Upstream(err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		c.log.Warn("Completion service refused the request", "status", response.StatusCode)
		return "", fmt.Errorf("%w: status %d: %s", errors.ErrCompletionRejected,
			response.StatusCode, strings.TrimSpace(string(detail)))
	}

	var decoded chatResponse
	if err = json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return "", errors.Upstream(fmt.Errorf("malformed completion body: %w", err))
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return "", errors.ErrCompletionEmpty
	}
	return decoded.Choices[0].Message.Content, nil
}
