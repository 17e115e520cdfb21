// Package backoff provides named retry policies built on cenkalti/backoff.
//
// Policies are plain values so they can be logged, overridden from config
// and exercised in tests without touching the network.
package backoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	cbackoff "github.com/cenkalti/backoff/v4"
)

// ErrExhausted is returned when a bounded policy runs out of attempts.
var ErrExhausted = errors.New("backoff: attempts exhausted")

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts bounds the total number of attempts. Zero means unlimited.
	MaxAttempts int
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration
	// MaxDelay caps the wait between attempts when Multiplier > 1.
	MaxDelay time.Duration
	// Multiplier grows the delay after every failure. Values <= 1 keep it fixed.
	Multiplier float64
}

var (
	// Startup is used while a service is booting: five attempts two seconds
	// apart, after which the caller is expected to abort.
	Startup = Policy{MaxAttempts: 5, InitialDelay: 2 * time.Second, Multiplier: 1}

	// Reconnect is used after a dependency drops mid-operation. It never
	// gives up on its own; cancel the context to stop it.
	Reconnect = Policy{InitialDelay: 500 * time.Millisecond, MaxDelay: 30 * time.Second, Multiplier: 2}
)

// Constant returns a fixed-delay policy with the given attempt bound.
func Constant(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, InitialDelay: delay, Multiplier: 1}
}

// Bounded reports whether the policy gives up after MaxAttempts.
func (p Policy) Bounded() bool {
	return p.MaxAttempts > 0
}

// Notify is called after every failed attempt that will be retried.
type Notify func(attempt int, err error, next time.Duration)

// Permanent wraps err so that Retry stops immediately and returns it.
func Permanent(err error) error {
	return cbackoff.Permanent(err)
}

// Retry runs op until it succeeds, returns a permanent error, the policy is
// exhausted, or ctx is done.
func (p Policy) Retry(ctx context.Context, op func(ctx context.Context) error, notify Notify) error {
	attempt := 0
	var (
		lastErr   error
		permanent *cbackoff.PermanentError
	)

	operation := func() error {
		attempt++
		err := op(ctx)
		if err != nil {
			lastErr = err
			errors.As(err, &permanent)
		}
		return err
	}

	onRetry := func(err error, next time.Duration) {
		if notify != nil {
			notify(attempt, err, next)
		}
	}

	err := cbackoff.RetryNotify(operation, cbackoff.WithContext(p.backOff(), ctx), onRetry)
	if err == nil {
		return nil
	}

	if permanent != nil {
		return permanent.Err
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if lastErr != nil {
			return fmt.Errorf("backoff: %w (last error: %w)", ctxErr, lastErr)
		}
		return ctxErr
	}

	if p.Bounded() && attempt >= p.MaxAttempts {
		return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, lastErr)
	}

	return err
}

func (p Policy) backOff() cbackoff.BackOff {
	var b cbackoff.BackOff
	if p.Multiplier <= 1 {
		b = cbackoff.NewConstantBackOff(p.InitialDelay)
	} else {
		exp := cbackoff.NewExponentialBackOff()
		exp.InitialInterval = p.InitialDelay
		exp.Multiplier = p.Multiplier
		exp.RandomizationFactor = 0.2
		exp.MaxElapsedTime = 0
		if p.MaxDelay > 0 {
			exp.MaxInterval = p.MaxDelay
		}
		exp.Reset()
		b = exp
	}

	if p.Bounded() {
		b = cbackoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return b
}
