package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"chatbank-agent/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 10 * time.Second
	maxReplyTokens = 300
	temperature    = 0.7
)

// tokenProvider yields the API key. *paramstore.TokenSource satisfies it.
type tokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client phrases conversational replies through the Chat Completions API.
// Every call is bounded by the client timeout regardless of the caller's
// deadline.
type Client struct {
	tokens     tokenProvider
	model      string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration

	mu  sync.Mutex
	api *goopenai.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a Client. The API key is requested from tokens on the
// first completion, not here, so a cold start never blocks on SSM.
func NewClient(tokens tokenProvider, model string, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("openai: token provider must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("openai: model must not be empty")
	}
	c := &Client{
		tokens:  tokens,
		model:   model,
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout <= 0 {
		return nil, errors.New("openai: timeout must be positive")
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	return c, nil
}

func (c *Client) client(ctx context.Context) (*goopenai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		return c.api, nil
	}
	key, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai: resolve api key: %w", err)
	}
	cfg := goopenai.DefaultConfig(key)
	cfg.BaseURL = c.baseURL
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	}
	c.api = goopenai.NewClientWithConfig(cfg)
	return c.api, nil
}

// Complete returns the assistant reply to messages.
func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("openai: messages must not be empty")
	}
	api, err := c.client(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAI(messages),
		MaxTokens:   maxReplyTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", statusError(err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", errors.New("openai: empty reply")
	}
	return reply, nil
}

func toOpenAI(msgs []domain.ChatMessage) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := m.Role
		switch role {
		case domain.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		case domain.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		default:
			role = goopenai.ChatMessageRoleUser
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

// statusError maps go-openai's error types onto HTTPStatusError so callers
// can branch on the status without importing go-openai.
func statusError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return err
}
