package rpc

import (
	"context"
	"net/http"
	"strings"

	"storyweave/internal/api"
	tlsvc "storyweave/internal/gateway/service/timeline"
	"storyweave/internal/timeline"

	"connectrpc.com/connect"
)

type TimelineHandler struct {
	svc *tlsvc.Service
}

func NewTimelineHandler(svc *tlsvc.Service) *TimelineHandler {
	return &TimelineHandler{svc: svc}
}

func (h *TimelineHandler) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	handle(mux, api.TimelineGetGraphProcedure, h.GetGraph, opts)
	handle(mux, api.TimelineGetSnapshotProcedure, h.GetSnapshot, opts)
	handle(mux, api.TimelineGetLeavesProcedure, h.GetLeaves, opts)
	handle(mux, api.TimelineCreateNodeProcedure, h.CreateNode, opts)
	handle(mux, api.TimelineSubmitCanvasProcedure, h.SubmitCanvas, opts)
}

func universeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", invalidArgument("universe_id is required")
	}
	return id, nil
}

func (h *TimelineHandler) GetGraph(ctx context.Context, req *connect.Request[api.GetGraphRequest]) (*connect.Response[api.GetGraphResponse], error) {
	id, err := universeID(req.Msg.UniverseID)
	if err != nil {
		return nil, err
	}
	layout, err := timeline.ParseLayout(req.Msg.Layout)
	if err != nil {
		return nil, invalidArgument(err.Error())
	}
	g, placeholder, err := h.svc.Graph(ctx, id, timeline.Options{Layout: layout, AddNode: req.Msg.AddNode})
	if err != nil {
		return nil, toConnectError(err)
	}
	out := &api.GetGraphResponse{Graph: g, Placeholder: placeholder}
	if !placeholder {
		out.Leaves = g.Leaves()
		out.Roots = g.Roots()
		out.Canon = g.CanonIDs()
	}
	return connect.NewResponse(out), nil
}

func (h *TimelineHandler) GetSnapshot(ctx context.Context, req *connect.Request[api.GetSnapshotRequest]) (*connect.Response[api.GetSnapshotResponse], error) {
	id, err := universeID(req.Msg.UniverseID)
	if err != nil {
		return nil, err
	}
	snap, err := h.svc.Snapshot(ctx, id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetSnapshotResponse{Snapshot: snap}), nil
}

func (h *TimelineHandler) GetLeaves(ctx context.Context, req *connect.Request[api.GetLeavesRequest]) (*connect.Response[api.GetLeavesResponse], error) {
	id, err := universeID(req.Msg.UniverseID)
	if err != nil {
		return nil, err
	}
	ids, err := h.svc.Leaves(ctx, id)
	if err != nil {
		return nil, toConnectError(err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	return connect.NewResponse(&api.GetLeavesResponse{IDs: ids}), nil
}

func (h *TimelineHandler) CreateNode(ctx context.Context, req *connect.Request[api.CreateNodeRequest]) (*connect.Response[api.CreateNodeResponse], error) {
	id, err := universeID(req.Msg.UniverseID)
	if err != nil {
		return nil, err
	}
	link := strings.TrimSpace(req.Msg.Link)
	if link == "" {
		return nil, invalidArgument("link is required")
	}
	nodeID, err := h.svc.CreateNode(ctx, id, link, req.Msg.Plot, req.Msg.PreviousID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.CreateNodeResponse{ID: nodeID}), nil
}

// SubmitCanvas writes the canvas drafts. On a partial failure the error
// carries the created ids in its metadata under "created".
func (h *TimelineHandler) SubmitCanvas(ctx context.Context, req *connect.Request[api.SubmitCanvasRequest]) (*connect.Response[api.SubmitCanvasResponse], error) {
	id, err := universeID(req.Msg.UniverseID)
	if err != nil {
		return nil, err
	}
	created, err := h.svc.SubmitCanvas(ctx, id, req.Msg.Canvas)
	if err != nil {
		ce := connect.NewError(codeOf(err), err)
		for draft, nodeID := range created {
			ce.Meta().Add("created", draft+"="+timeline.Key(nodeID))
		}
		return nil, ce
	}
	return connect.NewResponse(&api.SubmitCanvasResponse{Created: created}), nil
}
