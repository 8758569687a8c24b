package generation

import (
	"errors"

	"storyweave/internal/common/poll"
)

var (
	ErrBusy              = errors.New("generation: a step is already running")
	ErrInvalidTransition = errors.New("generation: step not allowed in current state")
	ErrClosed            = errors.New("generation: session closed")
	ErrUnsupportedModel  = errors.New("generation: unsupported model")
	ErrInvalidRequest    = errors.New("generation: invalid request")
	ErrJobFailed         = errors.New("generation: provider job failed")
	ErrTimeout           = poll.ErrTimeout
)
