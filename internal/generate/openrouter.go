package generate

import (
	"context"
	"strings"

	"storyboard/internal/services/llm"
)

// OpenRouterBackend serves Backend through the OpenRouter client.
type OpenRouterBackend struct {
	client *llm.Client
}

// NewOpenRouterBackend wraps client.
func NewOpenRouterBackend(client *llm.Client) *OpenRouterBackend {
	return &OpenRouterBackend{client: client}
}

// GenerateImage implements Backend.
func (b *OpenRouterBackend) GenerateImage(ctx context.Context, req Request) (Output, error) {
	result, err := b.client.GenerateImage(ctx, llm.ImageRequest{Prompt: req.Prompt, Images: req.Images})
	if err != nil {
		return Output{}, err
	}
	image := strings.TrimSpace(result.Image)
	if image != "" && !strings.HasPrefix(image, "data:") {
		image = "data:image/png;base64," + image
	}
	text := result.Refusal
	if strings.TrimSpace(text) == "" {
		text = result.Text
	}
	out := Output{Asset: image, Text: text, FinishReason: result.FinishReason}
	for _, rating := range result.Safety {
		out.Safety = append(out.Safety, SafetyRating{Category: rating.Category, Probability: rating.Probability})
	}
	return out, nil
}

// StreamText implements Backend.
func (b *OpenRouterBackend) StreamText(ctx context.Context, req Request, onChunk func(string) error) error {
	_, err := b.client.StreamCompletion(ctx, llm.TextRequest{Prompt: req.Prompt, Images: req.Images}, onChunk)
	return err
}
