package rpc

import (
	"context"
	"net/http"

	"storyweave/internal/api"
	"storyweave/internal/segment"

	"connectrpc.com/connect"
)

// SegmentHandler applies clip list edits. It keeps no state; the caller owns
// the list.
type SegmentHandler struct{}

func NewSegmentHandler() *SegmentHandler {
	return &SegmentHandler{}
}

func (h *SegmentHandler) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	handle(mux, api.SegmentAppendProcedure, h.Append, opts)
	handle(mux, api.SegmentMoveProcedure, h.Move, opts)
	handle(mux, api.SegmentSwapProcedure, h.Swap, opts)
	handle(mux, api.SegmentRemoveProcedure, h.Remove, opts)
	handle(mux, api.SegmentTotalProcedure, h.Total, opts)
}

func segmentsResponse(l segment.List, err error) (*connect.Response[api.SegmentsResponse], error) {
	if err != nil {
		return nil, toConnectError(err)
	}
	if l == nil {
		l = segment.List{}
	}
	return connect.NewResponse(&api.SegmentsResponse{Segments: l, TotalSeconds: l.TotalSeconds()}), nil
}

func (h *SegmentHandler) Append(_ context.Context, req *connect.Request[api.AppendSegmentRequest]) (*connect.Response[api.SegmentsResponse], error) {
	return segmentsResponse(req.Msg.Segments.Append(req.Msg.Segment))
}

func (h *SegmentHandler) Move(_ context.Context, req *connect.Request[api.MoveSegmentRequest]) (*connect.Response[api.SegmentsResponse], error) {
	return segmentsResponse(req.Msg.Segments.Move(req.Msg.From, req.Msg.To))
}

func (h *SegmentHandler) Swap(_ context.Context, req *connect.Request[api.SwapSegmentsRequest]) (*connect.Response[api.SegmentsResponse], error) {
	return segmentsResponse(req.Msg.Segments.Swap(req.Msg.I, req.Msg.J))
}

func (h *SegmentHandler) Remove(_ context.Context, req *connect.Request[api.RemoveSegmentRequest]) (*connect.Response[api.SegmentsResponse], error) {
	return segmentsResponse(req.Msg.Segments.Remove(req.Msg.Index))
}

func (h *SegmentHandler) Total(_ context.Context, req *connect.Request[api.SegmentsRequest]) (*connect.Response[api.SegmentsResponse], error) {
	return segmentsResponse(req.Msg.Segments, nil)
}
