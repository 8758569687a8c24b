package poll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) observe(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func fastPolicy() Policy {
	return Policy{Interval: 2 * time.Millisecond, Timeout: time.Second, MaxErrors: 2}
}

func TestUntilSucceedsAfterPending(t *testing.T) {
	calls := 0
	rec := &recorder{}
	got, err := Until(context.Background(), fastPolicy(), func(context.Context) (string, bool, error) {
		calls++
		if calls < 3 {
			return "", false, nil
		}
		return "video.mp4", true, nil
	}, rec.observe)

	require.NoError(t, err)
	assert.Equal(t, "video.mp4", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []State{StateSubmitted, StatePolling, StateSucceeded}, rec.states)
}

func TestUntilStopFailsImmediately(t *testing.T) {
	boom := errors.New("job failed: content policy")
	calls := 0
	rec := &recorder{}
	_, err := Until(context.Background(), fastPolicy(), func(context.Context) (int, bool, error) {
		calls++
		return 0, false, Stop(boom)
	}, rec.observe)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateFailed, rec.states[len(rec.states)-1])
}

func TestUntilToleratesBoundedTransientErrors(t *testing.T) {
	calls := 0
	_, err := Until(context.Background(), fastPolicy(), func(context.Context) (int, bool, error) {
		calls++
		if calls <= 2 {
			return 0, false, errors.New("503")
		}
		return 7, true, nil
	}, nil)
	require.NoError(t, err)

	calls = 0
	_, err = Until(context.Background(), fastPolicy(), func(context.Context) (int, bool, error) {
		calls++
		return 0, false, errors.New("503")
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestUntilTimesOut(t *testing.T) {
	rec := &recorder{}
	p := Policy{Interval: time.Millisecond, Timeout: 20 * time.Millisecond}
	_, err := Until(context.Background(), p, func(context.Context) (int, bool, error) {
		return 0, false, nil
	}, rec.observe)

	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, StateTimedOut, rec.states[len(rec.states)-1])
	assert.True(t, StateTimedOut.Terminal())
	assert.False(t, StatePolling.Terminal())
}

func TestUntilHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Until(ctx, fastPolicy(), func(context.Context) (int, bool, error) {
		calls++
		cancel()
		return 0, false, nil
	}, nil)
	require.ErrorIs(t, err, context.Canceled)
}
