package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storyboard/internal/logging"
)

// retryPolicy bounds how often and how long a request is retried.
type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
	sleep    func(time.Duration)
}

// backoff doubles from base for each attempt after the first, capped at max.
func (p retryPolicy) backoff(attempt int) time.Duration {
	if p.base <= 0 {
		return 0
	}
	delay := p.base
	for i := 1; i < attempt && delay < p.ceiling(); i++ {
		delay *= 2
	}
	return p.clamp(delay)
}

func (p retryPolicy) ceiling() time.Duration {
	if p.max <= 0 {
		return defaultRetryMaxDelay
	}
	return p.max
}

func (p retryPolicy) clamp(d time.Duration) time.Duration {
	return max(0, min(d, p.ceiling()))
}

func (p retryPolicy) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}
	if p.sleep != nil {
		p.sleep(d)
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withRetry runs call until it succeeds, fails permanently or attempts run out.
func (c *Client) withRetry(ctx context.Context, op string, call func() error) error {
	limit := max(c.retry.attempts, 1)
	for attempt := 1; ; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		if attempt >= limit || ctx.Err() != nil {
			if attempt == 1 {
				return err
			}
			return fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
		}
		hint, retryable := classify(err)
		if !retryable {
			if attempt == 1 {
				return err
			}
			return fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
		}
		delay := c.retry.backoff(attempt)
		if hint > 0 {
			delay = c.retry.clamp(hint)
		}
		c.logger.Debug("retrying llm request",
			logging.String("op", op),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := c.retry.wait(ctx, delay); err != nil {
			return err
		}
	}
}

// classify reports whether err is worth another attempt and, for throttled
// responses, how long the server asked us to wait.
func classify(err error) (time.Duration, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return 0, false
	}
	var empty *emptyContentError
	if errors.As(err, &empty) {
		return 0, true
	}
	var status *httpStatusError
	if errors.As(err, &status) {
		switch code := status.StatusCode; {
		case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
			return status.RetryAfter, true
		}
		return 0, false
	}
	var netErr net.Error
	return 0, errors.As(err, &netErr) && netErr.Timeout()
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func newStatusError(resp *http.Response, body []byte) *httpStatusError {
	return &httpStatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, e.Body)
}

// emptyContentError is a 200 response without usable output. Providers return
// these transiently, so they are retried.
type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op, e.FinishReason, e.Refusal, e.Snippet)
}

// permanentError stops withRetry without another attempt.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// parseRetryAfter accepts delta-seconds or an HTTP date; anything else is 0.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		return max(time.Until(when), 0)
	}
	return 0
}
