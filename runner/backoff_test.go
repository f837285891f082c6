package runner

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff{Base: 100 * time.Millisecond, Factor: 2, Max: time.Second}
	cases := map[int]time.Duration{
		-1: 100 * time.Millisecond,
		0:  100 * time.Millisecond,
		1:  200 * time.Millisecond,
		3:  800 * time.Millisecond,
		4:  time.Second,
		80: time.Second,
	}
	for attempt, want := range cases {
		if got := b.Delay(attempt); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
	if got := (ExponentialBackoff{Base: time.Second}).Delay(5); got != time.Second {
		t.Fatalf("factor below one keeps the base delay, got %s", got)
	}
}

func TestJitterBackoffStaysNearTheCurve(t *testing.T) {
	b := JitterBackoff{Base: 100 * time.Millisecond, Factor: 2, Max: time.Second, Randomization: 0.5}
	for attempt, center := range map[int]time.Duration{0: 100 * time.Millisecond, 2: 400 * time.Millisecond, 30: time.Second} {
		got := b.Delay(attempt)
		if got < center/2 || got > center+center/2 {
			t.Fatalf("attempt %d: %s outside [%s, %s]", attempt, got, center/2, center+center/2)
		}
	}
	if got := (JitterBackoff{}).Delay(3); got != 0 {
		t.Fatalf("zero base waits nothing, got %s", got)
	}
	exact := JitterBackoff{Base: 50 * time.Millisecond, Factor: 2}
	if got := exact.Delay(1); got != 100*time.Millisecond {
		t.Fatalf("no randomization follows the curve, got %s", got)
	}
}

func TestExponentialBackoffNeverExceedsMax(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("delay stays within [0, max]", prop.ForAll(
		func(base int64, factor float64, attempt int) bool {
			b := ExponentialBackoff{Base: time.Duration(base) * time.Millisecond, Factor: factor, Max: 5 * time.Second}
			d := b.Delay(attempt)
			return d >= 0 && d <= b.Max
		},
		gen.Int64Range(0, 10_000),
		gen.Float64Range(0, 8),
		gen.IntRange(0, 200),
	))
	properties.TestingRun(t)
}

func TestClassifyingStrategy(t *testing.T) {
	transient := errors.New("timeout")
	fatal := errors.New("invalid")
	s := ClassifyingStrategy{
		Backoff:   ConstantBackoff(50 * time.Millisecond),
		Retryable: func(err error) bool { return err == transient },
	}

	if d := s.Decide(0, transient); !d.Retry || d.Delay != 50*time.Millisecond {
		t.Fatalf("expected retry after 50ms, got %+v", d)
	}
	if d := s.Decide(0, fatal); d.Retry || d.Reason != "not_retryable" {
		t.Fatalf("expected veto, got %+v", d)
	}
	if d := (ClassifyingStrategy{}).Decide(3, fatal); !d.Retry || d.Delay != 0 {
		t.Fatalf("zero strategy retries immediately, got %+v", d)
	}
}
