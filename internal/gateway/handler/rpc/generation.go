package rpc

import (
	"context"
	"net/http"
	"strings"
	"time"

	"storyweave/internal/api"
	gensvc "storyweave/internal/gateway/service/generation"

	"connectrpc.com/connect"
)

const maxSessionWait = 2 * time.Minute

type GenerationHandler struct {
	svc *gensvc.Service
}

func NewGenerationHandler(svc *gensvc.Service) *GenerationHandler {
	return &GenerationHandler{svc: svc}
}

func (h *GenerationHandler) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	handle(mux, api.GenerationStartSessionProcedure, h.StartSession, opts)
	handle(mux, api.GenerationGetSessionProcedure, h.GetSession, opts)
	handle(mux, api.GenerationWaitSessionProcedure, h.WaitSession, opts)
	handle(mux, api.GenerationGenerateImageProcedure, h.GenerateImage, opts)
	handle(mux, api.GenerationGenerateVideoProcedure, h.GenerateVideo, opts)
	handle(mux, api.GenerationCommitProcedure, h.Commit, opts)
	handle(mux, api.GenerationExportSegmentProcedure, h.ExportSegment, opts)
	handle(mux, api.GenerationCloseSessionProcedure, h.CloseSession, opts)
	handle(mux, api.GenerationListModelsProcedure, h.ListModels, opts)
}

func sessionID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", invalidArgument("session_id is required")
	}
	return id, nil
}

func (h *GenerationHandler) StartSession(_ context.Context, req *connect.Request[api.StartSessionRequest]) (*connect.Response[api.SessionResponse], error) {
	id, err := universeID(req.Msg.UniverseID)
	if err != nil {
		return nil, err
	}
	snap := h.svc.Start(id, req.Msg.ParentID)
	return connect.NewResponse(&api.SessionResponse{Session: snap}), nil
}

func (h *GenerationHandler) GetSession(_ context.Context, req *connect.Request[api.SessionRequest]) (*connect.Response[api.SessionResponse], error) {
	id, err := sessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	snap, err := h.svc.Snapshot(id)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.SessionResponse{Session: snap}), nil
}

// WaitSession holds the call until the running step settles, up to
// timeout_ms (capped at two minutes).
func (h *GenerationHandler) WaitSession(ctx context.Context, req *connect.Request[api.WaitSessionRequest]) (*connect.Response[api.SessionResponse], error) {
	id, err := sessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(req.Msg.TimeoutMs) * time.Millisecond
	if timeout <= 0 || timeout > maxSessionWait {
		timeout = maxSessionWait
	}
	snap, err := h.svc.Await(ctx, id, timeout)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.SessionResponse{Session: snap}), nil
}

func (h *GenerationHandler) GenerateImage(ctx context.Context, req *connect.Request[api.GenerateImageRequest]) (*connect.Response[api.SessionResponse], error) {
	id, err := sessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Msg.Image.Prompt) == "" {
		return nil, invalidArgument("prompt is required")
	}
	snap, err := h.svc.GenerateImage(ctx, id, req.Msg.Image)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.SessionResponse{Session: snap}), nil
}

func (h *GenerationHandler) GenerateVideo(ctx context.Context, req *connect.Request[api.GenerateVideoRequest]) (*connect.Response[api.SessionResponse], error) {
	id, err := sessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Msg.Video.Model) == "" {
		return nil, invalidArgument("model is required")
	}
	snap, err := h.svc.GenerateVideo(ctx, id, req.Msg.Video)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.SessionResponse{Session: snap}), nil
}

func (h *GenerationHandler) Commit(ctx context.Context, req *connect.Request[api.CommitRequest]) (*connect.Response[api.CommitResponse], error) {
	id, err := sessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	nodeID, link, err := h.svc.Commit(ctx, id, req.Msg.Plot)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.CommitResponse{NodeID: nodeID, Link: link}), nil
}

func (h *GenerationHandler) ExportSegment(ctx context.Context, req *connect.Request[api.ExportSegmentRequest]) (*connect.Response[api.ExportSegmentResponse], error) {
	id, err := sessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	seg, err := h.svc.Export(ctx, id, req.Msg.Prompt)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ExportSegmentResponse{Segment: seg}), nil
}

func (h *GenerationHandler) CloseSession(_ context.Context, req *connect.Request[api.SessionRequest]) (*connect.Response[api.CloseSessionResponse], error) {
	id, err := sessionID(req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	if err := h.svc.Close(id); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.CloseSessionResponse{Closed: true}), nil
}

func (h *GenerationHandler) ListModels(context.Context, *connect.Request[api.ListModelsRequest]) (*connect.Response[api.ListModelsResponse], error) {
	return connect.NewResponse(&api.ListModelsResponse{Models: h.svc.Models()}), nil
}
