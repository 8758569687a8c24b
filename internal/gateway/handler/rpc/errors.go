package rpc

import (
	"context"
	"errors"

	"storyweave/internal/canvas"
	"storyweave/internal/chain"
	mediarepo "storyweave/internal/gateway/repository/media"
	"storyweave/internal/gateway/repository/universe"
	gensvc "storyweave/internal/gateway/service/generation"
	"storyweave/internal/generation"
	"storyweave/internal/segment"

	"connectrpc.com/connect"
)

// toConnectError maps domain sentinels onto Connect codes. The original
// message is kept so provider and contract errors reach the caller verbatim.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return err
	}
	return connect.NewError(codeOf(err), err)
}

func codeOf(err error) connect.Code {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce.Code()
	}
	switch {
	case errors.Is(err, universe.ErrNotFound),
		errors.Is(err, gensvc.ErrNotFound),
		errors.Is(err, mediarepo.ErrNotFound),
		errors.Is(err, canvas.ErrUnknownNode),
		errors.Is(err, canvas.ErrUnknownEdge):
		return connect.CodeNotFound
	case errors.Is(err, universe.ErrInvalid),
		errors.Is(err, generation.ErrInvalidRequest),
		errors.Is(err, generation.ErrUnsupportedModel),
		errors.Is(err, mediarepo.ErrInvalidHash),
		errors.Is(err, segment.ErrIndex),
		errors.Is(err, segment.ErrInvalid),
		errors.Is(err, canvas.ErrInvalidInput),
		errors.Is(err, canvas.ErrDuplicateID),
		errors.Is(err, chain.ErrBadAddress):
		return connect.CodeInvalidArgument
	case errors.Is(err, generation.ErrBusy),
		errors.Is(err, generation.ErrInvalidTransition),
		errors.Is(err, generation.ErrClosed),
		errors.Is(err, canvas.ErrImmutable),
		errors.Is(err, canvas.ErrHasParent),
		errors.Is(err, canvas.ErrCycle),
		errors.Is(err, chain.ErrReadOnly):
		return connect.CodeFailedPrecondition
	case errors.Is(err, chain.ErrReverted):
		return connect.CodeAborted
	case errors.Is(err, generation.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, generation.ErrJobFailed):
		return connect.CodeUnavailable
	}
	return connect.CodeUnknown
}

func invalidArgument(msg string) error {
	return connect.NewError(connect.CodeInvalidArgument, errors.New(msg))
}
