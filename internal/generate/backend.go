package generate

import "context"

// Request is one call to the model. Images are data URLs.
type Request struct {
	Prompt string
	Images []string
}

// SafetyRating is a provider safety verdict attached to a blocked response.
type SafetyRating struct {
	Category    string
	Probability string
}

// Output is the model's answer to an image request. Asset is empty when no
// image was produced.
type Output struct {
	Asset        string
	Text         string
	FinishReason string
	Safety       []SafetyRating
}

// Backend reaches the generative model.
type Backend interface {
	GenerateImage(ctx context.Context, req Request) (Output, error)
	StreamText(ctx context.Context, req Request, onChunk func(chunk string) error) error
}
