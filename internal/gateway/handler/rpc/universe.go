package rpc

import (
	"context"
	"net/http"
	"strings"

	"storyweave/internal/api"
	"storyweave/internal/gateway/repository/universe"

	"connectrpc.com/connect"
)

// UniverseStore is the part of universe.Store the handler needs.
type UniverseStore interface {
	Get(ctx context.Context, id string) (universe.Universe, error)
	Put(ctx context.Context, u universe.Universe) (universe.Universe, error)
	List(ctx context.Context) ([]universe.Universe, error)
	Delete(ctx context.Context, id string) error
}

type UniverseHandler struct {
	store UniverseStore
}

func NewUniverseHandler(store UniverseStore) *UniverseHandler {
	return &UniverseHandler{store: store}
}

func (h *UniverseHandler) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	handle(mux, api.UniverseListProcedure, h.ListUniverses, opts)
	handle(mux, api.UniverseGetProcedure, h.GetUniverse, opts)
	handle(mux, api.UniversePutProcedure, h.PutUniverse, opts)
	handle(mux, api.UniverseDeleteProcedure, h.DeleteUniverse, opts)
}

func (h *UniverseHandler) ListUniverses(ctx context.Context, _ *connect.Request[api.ListUniversesRequest]) (*connect.Response[api.ListUniversesResponse], error) {
	list, err := h.store.List(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	if list == nil {
		list = []universe.Universe{}
	}
	return connect.NewResponse(&api.ListUniversesResponse{Universes: list}), nil
}

func (h *UniverseHandler) GetUniverse(ctx context.Context, req *connect.Request[api.GetUniverseRequest]) (*connect.Response[api.UniverseResponse], error) {
	id := strings.TrimSpace(req.Msg.ID)
	if id == "" {
		return nil, invalidArgument("id is required")
	}
	u, err := h.store.Get(ctx, id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.UniverseResponse{Universe: u}), nil
}

func (h *UniverseHandler) PutUniverse(ctx context.Context, req *connect.Request[api.PutUniverseRequest]) (*connect.Response[api.UniverseResponse], error) {
	u, err := h.store.Put(ctx, req.Msg.Universe)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.UniverseResponse{Universe: u}), nil
}

func (h *UniverseHandler) DeleteUniverse(ctx context.Context, req *connect.Request[api.DeleteUniverseRequest]) (*connect.Response[api.DeleteUniverseResponse], error) {
	id := strings.TrimSpace(req.Msg.ID)
	if id == "" {
		return nil, invalidArgument("id is required")
	}
	if err := h.store.Delete(ctx, id); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DeleteUniverseResponse{}), nil
}
