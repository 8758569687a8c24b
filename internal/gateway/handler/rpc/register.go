package rpc

import (
	"context"
	"net/http"

	"storyweave/internal/api"

	"connectrpc.com/connect"
)

// Registrar is implemented by every RPC handler in this package.
type Registrar interface {
	Register(mux *http.ServeMux, opts ...connect.HandlerOption)
}

// HandlerOptions are the options shared by all unary handlers.
func HandlerOptions() []connect.HandlerOption {
	return []connect.HandlerOption{connect.WithCodec(api.Codec{})}
}

func handle[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts []connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}
