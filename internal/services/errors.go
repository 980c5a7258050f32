package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrImport              = errors.New("import error")
	ErrMigration           = errors.New("project migration error")
	ErrGenerationBlocked   = errors.New("generation blocked")
	ErrGenerationTransport = errors.New("generation transport failure")
	ErrValidation          = errors.New("validation error")
	ErrConfiguration       = errors.New("configuration error")
	ErrNotFound            = errors.New("not found")
	ErrTransient           = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Outcome labels used when recording a failed row operation.
const (
	OutcomeBlocked   = "blocked"
	OutcomeTransport = "transport"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// FailureOutcome maps a row operation error to the outcome label stored in the
// generation history.
func FailureOutcome(err error) string {
	switch {
	case errors.Is(err, ErrGenerationBlocked):
		return OutcomeBlocked
	case errors.Is(err, ErrGenerationTransport):
		return OutcomeTransport
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
