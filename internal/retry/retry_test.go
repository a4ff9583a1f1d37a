package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/ghostbooth/internal/domain"
)

type recorder struct {
	sleeps []time.Duration
}

func (r *recorder) sleep(ctx context.Context, d time.Duration) error {
	r.sleeps = append(r.sleeps, d)
	return nil
}

func newController(r *recorder) *Controller {
	c := New(3, 300*time.Second, 180*time.Second)
	c.Sleep = r.sleep
	return c
}

type throttled struct {
	hint time.Duration
}

func (e throttled) Error() string                    { return "upstream throttled" }
func (e throttled) RateLimited() bool                { return true }
func (e throttled) RetryHint() (time.Duration, bool) { return e.hint, e.hint > 0 }

func TestExecute_TwoThrottlesThenSuccess(t *testing.T) {
	rec := &recorder{}
	c := newController(rec)

	calls := 0
	attempts, err := c.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls <= 2 {
			return errors.New(`429 RESOURCE_EXHAUSTED {"retryDelay": "27s"}`)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{27 * time.Second, 180 * time.Second}, rec.sleeps)
}

func TestExecute_AlwaysThrottled(t *testing.T) {
	rec := &recorder{}
	c := newController(rec)

	calls := 0
	attempts, err := c.Execute(context.Background(), func(context.Context) error {
		calls++
		return throttled{}
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, attempts)
	assert.True(t, errors.Is(err, domain.ErrRateLimitExhausted))
	var last throttled
	assert.True(t, errors.As(err, &last))
	// no hint: first wait is the cap
	assert.Equal(t, []time.Duration{300 * time.Second, 180 * time.Second}, rec.sleeps)
}

func TestExecute_HintIsCapped(t *testing.T) {
	rec := &recorder{}
	c := newController(rec)

	calls := 0
	_, err := c.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return throttled{hint: 900 * time.Second}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{300 * time.Second}, rec.sleeps)
}

func TestExecute_ZeroHintWaitsCap(t *testing.T) {
	rec := &recorder{}
	c := newController(rec)

	calls := 0
	attempts, err := c.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New(`429 RESOURCE_EXHAUSTED {"retryDelay": "0s"}`)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{300 * time.Second}, rec.sleeps)
}

func TestExecute_NonRetryableReturnsImmediately(t *testing.T) {
	rec := &recorder{}
	c := newController(rec)

	boom := errors.New("400 invalid argument")
	calls := 0
	attempts, err := c.Execute(context.Background(), func(context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.sleeps)
	assert.False(t, errors.Is(err, domain.ErrRateLimitExhausted))
}

func TestExecute_ContextCancelledDuringBackoff(t *testing.T) {
	c := New(3, time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := c.Execute(ctx, func(context.Context) error {
		calls++
		return throttled{}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestExecute_OnRetry(t *testing.T) {
	rec := &recorder{}
	c := newController(rec)
	var seen []int
	c.OnRetry = func(attempt int, err error, delay time.Duration) { seen = append(seen, attempt) }

	_, _ = c.Execute(context.Background(), func(context.Context) error { return throttled{} })
	assert.Equal(t, []int{1, 2}, seen)
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("HTTP 429 Too Many Requests"), true},
		{errors.New("status RESOURCE_EXHAUSTED"), true},
		{errors.New("Rate limit reached"), true},
		{errors.New("500 internal"), false},
		{throttled{}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRateLimited(tt.err), "%v", tt.err)
	}
}

func TestParseHint(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
		ok   bool
	}{
		{`'retryDelay': '42s'`, 42 * time.Second, true},
		{`"retryDelay": "1.5s"`, 1500 * time.Millisecond, true},
		{"please retry after 12 seconds", 12 * time.Second, true},
		{"Retry after 7s", 7 * time.Second, true},
		{"no hint here", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseHint(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}
