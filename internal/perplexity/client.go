package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/j-veylop/mass-rtp-search/internal/logger"
	"github.com/j-veylop/mass-rtp-search/internal/models"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.perplexity.ai"

// maxErrorBody caps how much of a failed response body ends up in errors.
const maxErrorBody = 512

var (
	// ErrTransport wraps failures to send the request or read the response.
	ErrTransport = errors.New("perplexity: transport failure")
	// ErrDecode wraps malformed or empty response bodies.
	ErrDecode = errors.New("perplexity: invalid response")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Body string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("perplexity: request failed (status %d): %s", e.Code, e.Body)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int {
	return e.Code
}

// Client calls the chat completions endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if u := strings.TrimRight(strings.TrimSpace(baseURL), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// WithTimeout sets an overall per-request timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Transport: c.httpClient.Transport, Timeout: d}
	}
}

// New creates a client authenticating with apiKey.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends a chat completion request.
func (c *Client) Complete(ctx context.Context, request Request) (*Response, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrTransport, err)
	}
	logger.Debug("completion response", "status", resp.StatusCode, "body", string(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}

	var completion Response
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrDecode)
	}

	return &completion, nil
}

// Ask sends a system instruction plus one user question and returns the
// first choice's text.
func (c *Client) Ask(ctx context.Context, model, system, question string) (models.Completion, error) {
	request := NewRequest(model,
		Message{Role: "system", Content: system},
		Message{Role: "user", Content: question},
	)

	resp, err := c.Complete(ctx, request)
	if err != nil {
		return models.Completion{}, err
	}

	return models.Completion{
		Text:             resp.Choices[0].Message.Content,
		RequestID:        resp.ID,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
