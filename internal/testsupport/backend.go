package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storyboard/internal/generate"
)

// FakeBackend is an in-memory generate.Backend. By default every image call
// succeeds with a numbered data URL and every stream yields Chunks.
type FakeBackend struct {
	// Image overrides the default image response.
	Image func(req generate.Request) (generate.Output, error)
	// Chunks is streamed for every text request unless Stream is set.
	Chunks []string
	Stream func(req generate.Request, onChunk func(string) error) error

	mu           sync.Mutex
	imageCalls   []generate.Request
	promptCalls  []generate.Request
	inFlight     int
	peakInFlight int
}

// GenerateImage implements generate.Backend.
func (f *FakeBackend) GenerateImage(ctx context.Context, req generate.Request) (generate.Output, error) {
	n := f.enter(req, true)
	defer f.leave()
	if err := ctx.Err(); err != nil {
		return generate.Output{}, err
	}
	if f.Image != nil {
		return f.Image(req)
	}
	return generate.Output{Asset: fmt.Sprintf("data:image/png;base64,ZmFrZS0%d", n), FinishReason: "stop"}, nil
}

// StreamText implements generate.Backend.
func (f *FakeBackend) StreamText(ctx context.Context, req generate.Request, onChunk func(string) error) error {
	f.enter(req, false)
	defer f.leave()
	if f.Stream != nil {
		return f.Stream(req, onChunk)
	}
	for _, chunk := range f.Chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeBackend) enter(req generate.Request, image bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight++
	f.peakInFlight = max(f.peakInFlight, f.inFlight)
	if image {
		f.imageCalls = append(f.imageCalls, req)
		return len(f.imageCalls)
	}
	f.promptCalls = append(f.promptCalls, req)
	return len(f.promptCalls)
}

func (f *FakeBackend) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

// ImageCalls returns the image requests received so far.
func (f *FakeBackend) ImageCalls() []generate.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]generate.Request(nil), f.imageCalls...)
}

// PromptCalls returns the text requests received so far.
func (f *FakeBackend) PromptCalls() []generate.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]generate.Request(nil), f.promptCalls...)
}

// PeakInFlight reports the highest number of concurrent calls observed.
func (f *FakeBackend) PeakInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peakInFlight
}

// ErrTransport is a canned transport failure for tests.
var ErrTransport = errors.New("connection reset by peer")
