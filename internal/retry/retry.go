// Package retry drives calls to a rate-limited upstream with a two-tier
// capped backoff: the first throttled failure waits for the server hint
// (capped), every later one waits a fixed delay. Failures that are not
// throttling are returned immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/timmy/ghostbooth/internal/domain"
)

const (
	DefaultMaxAttempts = 3
	DefaultFirstCap    = 300 * time.Second
	DefaultSecondDelay = 180 * time.Second
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
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

// Controller holds the backoff schedule. The zero value is not usable; use New.
type Controller struct {
	MaxAttempts int

	// FirstCap bounds the hinted delay after the first throttled failure.
	// It is also the delay used when no hint is present.
	FirstCap time.Duration

	// SecondDelay is waited after every later throttled failure.
	SecondDelay time.Duration

	Sleep Sleeper

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// New returns a Controller, filling zero values with the defaults.
func New(maxAttempts int, firstCap, secondDelay time.Duration) *Controller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if firstCap <= 0 {
		firstCap = DefaultFirstCap
	}
	if secondDelay <= 0 {
		secondDelay = DefaultSecondDelay
	}
	return &Controller{
		MaxAttempts: maxAttempts,
		FirstCap:    firstCap,
		SecondDelay: secondDelay,
		Sleep:       SleepContext,
	}
}

// ExhaustedError is returned when every attempt was throttled.
// It matches both domain.ErrRateLimitExhausted and the last upstream error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("rate limited after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	return []error{domain.ErrRateLimitExhausted, e.Last}
}

// Execute runs op until it succeeds, fails with a non-throttling error, or the
// attempt budget is spent. It returns the number of attempts made.
func (c *Controller) Execute(ctx context.Context, op func(context.Context) error) (int, error) {
	sleep := c.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	maxAttempts := c.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !IsRateLimited(err) {
			return attempt, err
		}
		if attempt >= maxAttempts {
			break
		}

		delay := c.delay(attempt, err)
		if c.OnRetry != nil {
			c.OnRetry(attempt, err, delay)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return attempt, fmt.Errorf("backoff interrupted: %w", serr)
		}
	}

	return maxAttempts, &ExhaustedError{Attempts: maxAttempts, Last: lastErr}
}

// delay returns the wait after the given failed attempt.
func (c *Controller) delay(attempt int, err error) time.Duration {
	if attempt > 1 {
		return c.SecondDelay
	}
	// a zero hint counts as no hint
	hint, ok := RetryHint(err)
	if !ok || hint <= 0 || hint > c.FirstCap {
		return c.FirstCap
	}
	return hint
}

type rateLimited interface {
	RateLimited() bool
}

type retryHinter interface {
	RetryHint() (time.Duration, bool)
}

// IsRateLimited classifies err as throttling. Typed errors decide for
// themselves; anything else is matched on its text.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var rl rateLimited
	if errors.As(err, &rl) {
		return rl.RateLimited()
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "rate limit")
}

var hintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)retryDelay['"]?\s*:\s*['"]?(\d+(?:\.\d+)?)s`),
	regexp.MustCompile(`(?i)retry after (\d+(?:\.\d+)?) ?s(?:ec(?:ond)?s?)?\b`),
}

// RetryHint extracts a server-suggested delay from err.
func RetryHint(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	var h retryHinter
	if errors.As(err, &h) {
		if d, ok := h.RetryHint(); ok {
			return d, true
		}
	}
	return ParseHint(err.Error())
}

// ParseHint finds a delay such as `retryDelay: '27s'` or "retry after 12 seconds" in text.
func ParseHint(text string) (time.Duration, bool) {
	for _, re := range hintPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		secs, err := strconv.ParseFloat(m[1], 64)
		if err != nil || secs < 0 {
			continue
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	return 0, false
}
