package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

// NewSleeper returns a Sleeper backed by a real timer.
func NewSleeper() Sleeper {
	return timerSleeper{}
}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy retries quota failures only. After failed attempt n the wait is
// BaseDelay*n, except the wait before the last attempt, which is FinalDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	FinalDelay  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   15 * time.Second,
		FinalDelay:  60 * time.Second,
	}
}

func (p RetryPolicy) delayAfter(attempt int) time.Duration {
	if attempt+1 >= p.MaxAttempts && p.FinalDelay > 0 {
		return p.FinalDelay
	}
	return p.BaseDelay * time.Duration(attempt)
}

// Do runs call until it succeeds, fails with something other than a quota
// error, or runs out of attempts. Exhaustion is reported as an LLMOther error
// wrapping ErrQuotaExhausted.
func (p RetryPolicy) Do(ctx context.Context, sleeper Sleeper, call func(ctx context.Context) (string, error)) (string, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := call(ctx)
		if err == nil {
			return text, nil
		}
		if LLMErrorKindOf(err) != LLMQuotaExceeded {
			return "", err
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}

		wait := p.delayAfter(attempt)
		log.Printf("⚠️  [Retry %d/%d] Quota exhausted. Waiting %s...", attempt, maxAttempts, wait)
		if err := sleeper.Sleep(ctx, wait); err != nil {
			return "", fmt.Errorf("retry wait interrupted: %w", err)
		}
	}

	return "", &LLMError{
		Kind:    LLMOther,
		Message: "quota exhausted",
		Err:     fmt.Errorf("%w after %d attempts: %w", ErrQuotaExhausted, maxAttempts, lastErr),
	}
}
