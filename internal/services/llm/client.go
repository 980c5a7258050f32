package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storyboard/internal/logging"
)

const (
	defaultBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 5
)

// Config captures the runtime settings required to talk to OpenRouter.
type Config struct {
	APIKey         string
	BaseURL        string
	ImageModel     string
	TextModel      string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client wraps the OpenRouter chat completion API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger

	retry retryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retry.attempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry.base = baseDelay
		c.retry.max = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.retry.sleep = sleeper
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			ImageModel:     strings.TrimSpace(cfg.ImageModel),
			TextModel:      strings.TrimSpace(cfg.TextModel),
			Referer:        strings.TrimSpace(cfg.Referer),
			Title:          strings.TrimSpace(cfg.Title),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		retry: retryPolicy{
			attempts: defaultRetryAttempts,
			base:     defaultRetryBaseDelay,
			max:      defaultRetryMaxDelay,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	client.logger = logging.NewComponentLogger(client.logger, "llm")
	return client
}

// HealthCheck sends a one-token JSON ping to the text model to confirm the
// key and model are accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	ping := chatCompletionRequest{
		Model: c.cfg.TextModel,
		Messages: []chatMessage{
			{Role: "system", Content: "Reply with a JSON object only."},
			{Role: "user", Content: `Return {"ok":true}`},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	var reply string
	err := c.withRetry(ctx, "llm health", func() error {
		completion, body, err := c.sendOnce(ctx, ping)
		if err != nil {
			return err
		}
		if reply = completion.firstText(); reply == "" {
			return &emptyContentError{
				Op:           "llm health",
				FinishReason: completion.finishReason(),
				Refusal:      completion.refusal(),
				Snippet:      snippet(string(body)),
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	var ack struct {
		OK bool `json:"ok"`
	}
	switch err := DecodeLLMJSON(reply, &ack); {
	case err != nil:
		return fmt.Errorf("llm health: parse reply: %w", err)
	case !ack.OK:
		return fmt.Errorf("llm health: unexpected reply %s", snippet(reply))
	}
	return nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Modalities     []string          `json:"modalities,omitempty"`
	Stream         bool              `json:"stream,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

// chatMessage content is either a plain string or a list of contentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// userParts builds a multimodal user message: images first, then the text.
func userParts(text string, images []string) chatMessage {
	parts := make([]contentPart, 0, len(images)+1)
	for _, img := range images {
		if strings.TrimSpace(img) == "" {
			continue
		}
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: img}})
	}
	parts = append(parts, contentPart{Type: "text", Text: text})
	return chatMessage{Role: "user", Content: parts}
}

type chatCompletionResponse struct {
	Choices []struct {
		Message            chatCompletionMessage `json:"message"`
		Delta              chatCompletionMessage `json:"delta"`
		FinishReason       string                `json:"finish_reason"`
		NativeFinishReason string                `json:"native_finish_reason"`
		SafetyRatings      []SafetyRating        `json:"safety_ratings"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
	Images  []struct {
		Type     string   `json:"type"`
		ImageURL imageURL `json:"image_url"`
	} `json:"images"`
}

func (r chatCompletionResponse) firstText() string {
	for _, choice := range r.Choices {
		if content := firstNonEmpty(choice.Message.Content, choice.Delta.Content); content != "" {
			return content
		}
	}
	return ""
}

func (r chatCompletionResponse) firstImage() string {
	for _, choice := range r.Choices {
		for _, img := range choice.Message.Images {
			if u := strings.TrimSpace(img.ImageURL.URL); u != "" {
				return u
			}
		}
	}
	return ""
}

// finishReason prefers the provider's native reason, which carries block
// details such as SAFETY or PROHIBITED_CONTENT.
func (r chatCompletionResponse) finishReason() string {
	for _, choice := range r.Choices {
		if reason := firstNonEmpty(choice.NativeFinishReason, choice.FinishReason); reason != "" {
			return reason
		}
	}
	return ""
}

// safetyRatings returns the first choice's pass-through safety verdicts.
// Gemini models report them when a response is blocked.
func (r chatCompletionResponse) safetyRatings() []SafetyRating {
	for _, choice := range r.Choices {
		var out []SafetyRating
		for _, rating := range choice.SafetyRatings {
			if strings.TrimSpace(rating.Category) != "" {
				out = append(out, rating)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (r chatCompletionResponse) refusal() string {
	for _, choice := range r.Choices {
		if refusal := firstNonEmpty(choice.Message.Refusal, choice.Delta.Refusal); refusal != "" {
			return refusal
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (c *Client) newRequest(ctx context.Context, payload chatCompletionRequest) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm request: %w", err)
	}
	headers := map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
		"Content-Type":  "application/json",
		"HTTP-Referer":  c.cfg.Referer,
		"Referer":       c.cfg.Referer,
		"X-Title":       c.cfg.Title,
	}
	for name, value := range headers {
		if value != "" {
			req.Header.Set(name, value)
		}
	}
	return req, nil
}

// sendOnce performs one non-streaming completion. The raw body is returned
// alongside decode failures so callers can quote it.
func (c *Client) sendOnce(ctx context.Context, payload chatCompletionRequest) (chatCompletionResponse, []byte, error) {
	var out chatCompletionResponse
	req, err := c.newRequest(ctx, payload)
	if err != nil {
		return out, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, nil, fmt.Errorf("llm request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	switch {
	case err != nil:
		return out, nil, fmt.Errorf("llm request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	case resp.StatusCode >= http.StatusMultipleChoices:
		return out, body, newStatusError(resp, body)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, body, fmt.Errorf("llm request: decode response: %w", err)
	}
	if out.Error != nil {
		return out, body, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(out.Error.Message))
	}
	return out, body, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}
