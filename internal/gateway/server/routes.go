package server

import (
	"net/http"

	"storyweave/internal/api"
	"storyweave/internal/gateway/handler"
	"storyweave/internal/gateway/handler/rpc"
	"storyweave/internal/gateway/middleware"
)

// Routes is everything the gateway serves.
type Routes struct {
	RPC            []rpc.Registrar
	Sessions       *rpc.SessionStreamHandler
	Media          *handler.MediaHandler
	AllowedOrigins []string
}

func NewMux(routes Routes) http.Handler {
	mux := http.NewServeMux()

	// RPC Handlers
	opts := rpc.HandlerOptions()
	for _, r := range routes.RPC {
		r.Register(mux, opts...)
	}

	// Streams and content
	if routes.Sessions != nil {
		mux.HandleFunc(api.SessionStreamPath, routes.Sessions.HandleSessionWS)
	}
	if routes.Media != nil {
		mux.HandleFunc(api.MediaPathPrefix+"{hash}", routes.Media.HandleMedia)
	}

	// Middleware
	return middleware.CORS(mux, routes.AllowedOrigins)
}
