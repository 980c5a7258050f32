package services_test

import (
	"errors"
	"strings"
	"testing"

	"storyboard/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrImport, "ingest", "build rows", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrImport) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"ingest", "build rows", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerIsTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestFailureOutcomeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{services.Wrap(services.ErrGenerationBlocked, "generate", "image", "safety", nil), services.OutcomeBlocked},
		{services.Wrap(services.ErrGenerationTransport, "llm", "post", "", errors.New("eof")), services.OutcomeTransport},
		{services.Wrap(services.ErrValidation, "generate", "prompt", "no main image", nil), services.OutcomeRejected},
		{errors.New("plain"), services.OutcomeFailed},
		{nil, services.OutcomeFailed},
	}
	for _, tc := range cases {
		if got := services.FailureOutcome(tc.err); got != tc.want {
			t.Fatalf("FailureOutcome(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
