package rpc

import (
	"context"
	"net/http"
	"time"

	"storyweave/internal/api"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// HealthCheck reports extra fields for the health response.
type HealthCheck func(ctx context.Context) map[string]any

type HealthHandler struct {
	started time.Time
	checks  map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{started: time.Now(), checks: checks}
}

func (h *HealthHandler) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	handle(mux, api.HealthCheckProcedure, h.Check, opts)
}

func (h *HealthHandler) Check(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	fields := map[string]any{
		"status":        "ok",
		"uptimeSeconds": time.Since(h.started).Seconds(),
	}
	for name, check := range h.checks {
		fields[name] = check(ctx)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}
