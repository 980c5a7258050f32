package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// TextRequest is one streamed text completion. Images are data URLs sent
// ahead of the prompt text.
type TextRequest struct {
	Prompt string
	Images []string
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// StreamCompletion streams the text model's answer, calling onDelta for every
// non-empty delta in arrival order. It returns the full text. An error from
// onDelta stops the stream and is returned as is.
func (c *Client) StreamCompletion(ctx context.Context, req TextRequest, onDelta func(string) error) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("llm stream: prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("llm stream: api key required")
	}
	payload := chatCompletionRequest{
		Model:    c.cfg.TextModel,
		Messages: []chatMessage{userParts(prompt, req.Images)},
		Stream:   true,
	}

	var full string
	err := c.withRetry(ctx, "llm stream", func() error {
		text, sent, err := c.streamOnce(ctx, payload, onDelta)
		full = text
		if err != nil && sent {
			// Partial output already reached the caller; a retry would duplicate it.
			return &permanentError{err: err}
		}
		return err
	})
	var perm *permanentError
	if errors.As(err, &perm) {
		return full, perm.err
	}
	return full, err
}

func (c *Client) streamOnce(ctx context.Context, payload chatCompletionRequest, onDelta func(string) error) (string, bool, error) {
	httpReq, err := c.newRequest(ctx, payload)
	if err != nil {
		return "", false, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", false, fmt.Errorf("llm stream: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", false, newStatusError(resp, body)
	}

	var builder strings.Builder
	sent := false
	emit := func(delta string) error {
		if delta == "" {
			return nil
		}
		builder.WriteString(delta)
		sent = true
		if onDelta == nil {
			return nil
		}
		return onDelta(delta)
	}

	// Some providers answer a stream request with a single JSON document.
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "application/json") {
		var completion chatCompletionResponse
		if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
			return "", false, fmt.Errorf("llm stream: decode response: %w", err)
		}
		if completion.Error != nil {
			return "", false, fmt.Errorf("llm stream: api error: %s", strings.TrimSpace(completion.Error.Message))
		}
		if err := emit(completion.firstText()); err != nil {
			return builder.String(), sent, err
		}
		return builder.String(), sent, nil
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(line[len("data:"):])
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return builder.String(), sent, nil
		}
		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return builder.String(), sent, fmt.Errorf("llm stream: api error: %s", strings.TrimSpace(chunk.Error.Message))
		}
		for _, choice := range chunk.Choices {
			if err := emit(choice.Delta.Content); err != nil {
				return builder.String(), sent, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return builder.String(), sent, fmt.Errorf("llm stream: read stream: %w", err)
	}
	return builder.String(), sent, nil
}
