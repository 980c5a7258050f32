package llm

import (
	"context"
	"errors"
	"strings"
)

// ImageRequest is one image generation call. Images are data URLs sent ahead
// of the prompt text.
type ImageRequest struct {
	Prompt string
	Images []string
}

// SafetyRating is one provider safety verdict, such as
// HARM_CATEGORY_DANGEROUS_CONTENT rated HIGH.
type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
}

// ImageResult is what the model returned. Image is empty when no image was
// produced; FinishReason, Refusal and Text then explain why.
type ImageResult struct {
	Image        string
	Text         string
	Refusal      string
	FinishReason string
	Safety       []SafetyRating
}

// GenerateImage asks the image model for a single image.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (ImageResult, error) {
	var result ImageResult
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return result, errors.New("llm image: prompt required")
	}
	if c.cfg.APIKey == "" {
		return result, errors.New("llm image: api key required")
	}
	payload := chatCompletionRequest{
		Model:      c.cfg.ImageModel,
		Messages:   []chatMessage{userParts(prompt, req.Images)},
		Modalities: []string{"image", "text"},
	}
	err := c.withRetry(ctx, "llm image", func() error {
		completion, _, err := c.sendOnce(ctx, payload)
		if err != nil {
			return err
		}
		result = ImageResult{
			Image:        completion.firstImage(),
			Text:         completion.firstText(),
			Refusal:      completion.refusal(),
			FinishReason: completion.finishReason(),
			Safety:       completion.safetyRatings(),
		}
		return nil
	})
	if err != nil {
		return ImageResult{}, err
	}
	return result, nil
}
