package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gigboard/gigboard/src/gigs/failure"
	"github.com/gigboard/gigboard/src/logging"
)

// RetryPolicy bounds how often a transient store failure is retried before
// it surfaces as failure.ErrStoreUnavailable.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

var DefaultRetry = RetryPolicy{Attempts: 3, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second}

// Retry runs fn until it succeeds, fails with a non-transient error, or the
// policy is exhausted. Typed failures are returned untouched.
func Retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := p.InitialDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Second
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		var fe *failure.Error
		if errors.As(err, &fe) {
			return err
		}
		if !logging.IsTransient(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		log.Printf("store: transient failure (attempt %d/%d): %v", i+1, attempts, err)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return failure.Unavailable(ctx.Err())
		case <-t.C:
		}
		if delay < maxDelay {
			delay *= 2
		}
	}
	return failure.Unavailable(err)
}
