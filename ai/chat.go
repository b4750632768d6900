// Package ai implements the storefront chat widget client: the backend's
// ai/settings and ai/chat endpoints plus a per-session, capped,
// Memory-persisted conversation history.
package ai

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cairocart/storefront-go/core"
	"github.com/cairocart/storefront-go/transport"
)

// Settings describe the store's chat widget configuration (GET ai/settings)
type Settings struct {
	Enabled  bool   `json:"enabled"`
	Greeting string `json:"greeting"`
	Model    string `json:"model"`
}

// Message is one turn in a chat conversation
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Reply is the assistant's answer to a chat request
type Reply struct {
	Content string `json:"content"`
}

// Chat is the chat widget client. History is kept per session ID, capped
// at maxHistory turns, and persisted best-effort through Memory.
type Chat struct {
	client     *transport.Client
	memory     core.Memory
	logger     core.Logger
	sessionID  string
	maxHistory int
}

// ChatOption configures the chat client
type ChatOption func(*Chat)

// WithSessionID resumes an existing chat session
func WithSessionID(id string) ChatOption {
	return func(c *Chat) {
		if id != "" {
			c.sessionID = id
		}
	}
}

// WithMaxHistory caps the retained conversation turns
func WithMaxHistory(n int) ChatOption {
	return func(c *Chat) {
		if n > 0 {
			c.maxHistory = n
		}
	}
}

// NewChat creates a chat client. A fresh session ID is generated unless
// one is supplied.
func NewChat(client *transport.Client, memory core.Memory, logger core.Logger, opts ...ChatOption) *Chat {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	c := &Chat{
		client:     client,
		memory:     memory,
		logger:     logger,
		sessionID:  uuid.NewString(),
		maxHistory: 50,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID returns the chat session identifier
func (c *Chat) SessionID() string {
	return c.sessionID
}

// Settings fetches the widget configuration (GET ai/settings)
func (c *Chat) Settings(ctx context.Context) (*Settings, error) {
	var settings Settings
	if _, err := c.client.Get(ctx, "ai/settings", nil, &settings); err != nil {
		return nil, core.NewStoreError("ai.Settings", "ai", err)
	}
	return &settings, nil
}

// chatRequest is the POST ai/chat payload
type chatRequest struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
}

// Send posts the user message with the retained history and returns the
// assistant's reply (POST ai/chat). Both turns are appended to the
// history on success.
func (c *Chat) Send(ctx context.Context, content string) (*Reply, error) {
	history := c.History(ctx)
	messages := append(history, Message{Role: "user", Content: content})

	var reply Reply
	err := c.client.Post(ctx, "ai/chat", chatRequest{
		SessionID: c.sessionID,
		Messages:  messages,
	}, &reply)
	if err != nil {
		return nil, &core.StoreError{Op: "ai.Send", Kind: "ai", ID: c.sessionID, Err: err}
	}

	messages = append(messages, Message{Role: "assistant", Content: reply.Content})
	c.persistHistory(ctx, messages)

	c.logger.Debug("Chat turn completed", map[string]interface{}{
		"operation": "ai_chat",
		"session":   c.sessionID,
		"turns":     len(messages),
	})
	return &reply, nil
}

// History returns the retained conversation for this session
func (c *Chat) History(ctx context.Context) []Message {
	if c.memory == nil {
		return nil
	}
	raw, err := c.memory.Get(ctx, c.historyKey())
	if err != nil || raw == "" {
		return nil
	}
	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil
	}
	return messages
}

// Reset discards the conversation history
func (c *Chat) Reset(ctx context.Context) {
	if c.memory == nil {
		return
	}
	_ = c.memory.Delete(ctx, c.historyKey())
}

func (c *Chat) historyKey() string {
	return "ai:history:" + c.sessionID
}

func (c *Chat) persistHistory(ctx context.Context, messages []Message) {
	if c.memory == nil {
		return
	}
	if len(messages) > c.maxHistory {
		messages = messages[len(messages)-c.maxHistory:]
	}
	data, err := json.Marshal(messages)
	if err == nil {
		err = c.memory.Set(ctx, c.historyKey(), string(data), 24*time.Hour)
	}
	if err != nil {
		c.logger.Debug("Chat history persistence failed", map[string]interface{}{
			"operation": "ai_history_persist",
			"session":   c.sessionID,
			"error":     err.Error(),
		})
	}
}
