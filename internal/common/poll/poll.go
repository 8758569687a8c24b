package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is a step of the polling state machine:
// submitted -> polling -> succeeded | failed | timed_out.
type State string

const (
	StateSubmitted State = "submitted"
	StatePolling   State = "polling"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateTimedOut
}

var ErrTimeout = errors.New("poll: timed out")

// Policy bounds a polling loop.
type Policy struct {
	Interval time.Duration
	Timeout  time.Duration
	// MaxErrors is the number of consecutive transient check errors tolerated
	// before the loop fails.
	MaxErrors int
}

func DefaultPolicy() Policy {
	return Policy{
		Interval:  4 * time.Second,
		Timeout:   10 * time.Minute,
		MaxErrors: 3,
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.Interval <= 0 {
		p.Interval = def.Interval
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	if p.MaxErrors < 0 {
		p.MaxErrors = 0
	}
	return p
}

type stopError struct{ err error }

func (e *stopError) Error() string { return e.err.Error() }
func (e *stopError) Unwrap() error { return e.err }

// Stop marks err as terminal: the loop fails immediately instead of retrying.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &stopError{err: err}
}

// Check is called once per tick. It returns done=true once the remote job
// reached a terminal state. Errors wrapped with Stop end the loop; any other
// error counts as transient.
type Check[T any] func(ctx context.Context) (T, bool, error)

// Until runs check at a fixed interval until it reports done, fails, or the
// policy timeout elapses. observe, when non-nil, receives every state transition.
func Until[T any](ctx context.Context, p Policy, check Check[T], observe func(State)) (T, error) {
	var zero T
	p = p.normalized()
	emit := func(s State) {
		if observe != nil {
			observe(s)
		}
	}
	emit(StateSubmitted)

	deadline := time.NewTimer(p.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	errCount := 0
	first := true
	for {
		if !first {
			select {
			case <-ctx.Done():
				emit(StateFailed)
				return zero, ctx.Err()
			case <-deadline.C:
				emit(StateTimedOut)
				return zero, fmt.Errorf("%w after %s", ErrTimeout, p.Timeout)
			case <-ticker.C:
			}
		} else {
			emit(StatePolling)
			first = false
		}

		v, done, err := check(ctx)
		if err != nil {
			var stop *stopError
			if errors.As(err, &stop) {
				emit(StateFailed)
				return zero, stop.err
			}
			errCount++
			if errCount > p.MaxErrors {
				emit(StateFailed)
				return zero, fmt.Errorf("poll: %d consecutive errors: %w", errCount, err)
			}
			continue
		}
		errCount = 0
		if done {
			emit(StateSucceeded)
			return v, nil
		}
	}
}
