package generate

import (
	"fmt"
	"strings"

	"storyboard/internal/services"
)

// FailureKind classifies why a generation call failed.
type FailureKind string

const (
	FailureRefused      FailureKind = "refused"
	FailureBlocked      FailureKind = "blocked"
	FailureStopped      FailureKind = "stopped"
	FailureUnknown      FailureKind = "unknown"
	FailureTransport    FailureKind = "transport"
	FailurePrompt       FailureKind = "prompt"
	FailurePrecondition FailureKind = "precondition"
)

const (
	imageFailurePrefix  = "image generation failed: "
	promptFailurePrefix = "video prompt generation failed: "

	// MissingMainAsset is recorded when a video prompt is requested for a row
	// without a main image.
	MissingMainAsset = "a main image is required to generate a video prompt"
)

// Failure is a row-scoped generation error. Message is the text stored on
// the row; Prompt is the request that failed, when one was sent.
type Failure struct {
	Kind    FailureKind
	Message string
	Prompt  string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

// Unwrap exposes both the classification marker and the underlying cause.
func (f *Failure) Unwrap() []error {
	errs := []error{f.marker()}
	if f.Err != nil {
		errs = append(errs, f.Err)
	}
	return errs
}

func (f *Failure) marker() error {
	switch f.Kind {
	case FailureTransport, FailurePrompt:
		return services.ErrGenerationTransport
	case FailurePrecondition:
		return services.ErrValidation
	default:
		return services.ErrGenerationBlocked
	}
}

// successReasons are finish reasons of a normally completed response.
var successReasons = map[string]bool{
	"stop":     true,
	"end_turn": true,
}

// ClassifyOutput returns nil when out carries an asset, else the failure
// explaining why no image was produced. Model text wins over the finish
// reason because it is the most specific explanation.
func ClassifyOutput(out Output) *Failure {
	if strings.TrimSpace(out.Asset) != "" {
		return nil
	}
	if text := strings.TrimSpace(out.Text); text != "" {
		return &Failure{
			Kind:    FailureRefused,
			Message: imageFailurePrefix + "model responded with text instead of an image: " + text,
		}
	}
	reason := strings.TrimSpace(out.FinishReason)
	switch {
	case reason == "":
		return &Failure{
			Kind:    FailureUnknown,
			Message: imageFailurePrefix + "no image was produced for an unknown reason",
		}
	case successReasons[strings.ToLower(reason)]:
		return &Failure{
			Kind:    FailureStopped,
			Message: fmt.Sprintf("%sstopped (reason: %s); no image was produced", imageFailurePrefix, reason),
		}
	default:
		detail := "reason: " + reason
		if len(out.Safety) > 0 {
			ratings := make([]string, 0, len(out.Safety))
			for _, rating := range out.Safety {
				ratings = append(ratings, rating.Category+" was "+rating.Probability)
			}
			detail += "; safety: " + strings.Join(ratings, ", ")
		}
		return &Failure{
			Kind:    FailureBlocked,
			Message: imageFailurePrefix + "blocked (" + detail + ")",
		}
	}
}

func transportFailure(err error, prompt string) *Failure {
	return &Failure{
		Kind:    FailureTransport,
		Message: imageFailurePrefix + "transport error: " + err.Error(),
		Prompt:  prompt,
		Err:     err,
	}
}

func promptFailure(err error, prompt string) *Failure {
	return &Failure{
		Kind:    FailurePrompt,
		Message: promptFailurePrefix + err.Error(),
		Prompt:  prompt,
		Err:     err,
	}
}
