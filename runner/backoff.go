package runner

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff yields the wait before retry number attempt, counting from zero.
type Backoff interface {
	Delay(attempt int) time.Duration
}

// ConstantBackoff waits the same amount before every retry.
type ConstantBackoff time.Duration

func (c ConstantBackoff) Delay(int) time.Duration {
	return time.Duration(c)
}

// ExponentialBackoff grows the wait by Factor per retry, capped at Max.
type ExponentialBackoff struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
}

func (e ExponentialBackoff) Delay(attempt int) time.Duration {
	if e.Base <= 0 {
		return 0
	}
	factor := e.Factor
	if factor < 1 {
		factor = 1
	}
	d := float64(e.Base) * math.Pow(factor, float64(max(attempt, 0)))
	if e.Max > 0 && d > float64(e.Max) {
		return e.Max
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// JitterBackoff spreads retries of many callers apart: the wait grows by
// Factor per retry up to Max and is randomized by +/- Randomization of it.
type JitterBackoff struct {
	Base          time.Duration
	Factor        float64
	Max           time.Duration
	Randomization float64
}

// retries past this count all sit at Max
const jitterSteps = 64

func (j JitterBackoff) Delay(attempt int) time.Duration {
	if j.Base <= 0 {
		return 0
	}
	opts := []backoff.ExponentialBackOffOpts{
		backoff.WithInitialInterval(j.Base),
		backoff.WithRandomizationFactor(min(max(j.Randomization, 0), 1)),
		backoff.WithMaxElapsedTime(0),
	}
	if j.Factor >= 1 {
		opts = append(opts, backoff.WithMultiplier(j.Factor))
	}
	if j.Max > 0 {
		opts = append(opts, backoff.WithMaxInterval(j.Max))
	}
	b := backoff.NewExponentialBackOff(opts...)
	d := b.NextBackOff()
	for i := 0; i < min(max(attempt, 0), jitterSteps); i++ {
		d = b.NextBackOff()
	}
	return max(d, 0)
}

// RetryDecision is a strategy's answer for one failed attempt.
type RetryDecision struct {
	Retry  bool
	Delay  time.Duration
	Reason string
}

// RetryStrategy decides whether a failed attempt is worth repeating.
type RetryStrategy interface {
	Decide(attempt int, err error) RetryDecision
}

// ClassifyingStrategy retries errors Retryable accepts, or every error when
// Retryable is nil, waiting as Backoff says.
type ClassifyingStrategy struct {
	Backoff   Backoff
	Retryable func(error) bool
}

func (c ClassifyingStrategy) Decide(attempt int, err error) RetryDecision {
	if c.Retryable != nil && !c.Retryable(err) {
		return RetryDecision{Reason: "not_retryable"}
	}
	var d time.Duration
	if c.Backoff != nil {
		d = c.Backoff.Delay(attempt)
	}
	return RetryDecision{Retry: true, Delay: d}
}
