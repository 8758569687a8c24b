package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the gateway's RPC services with the JSON codec.
type Client struct {
	getGraph      *connect.Client[GetGraphRequest, GetGraphResponse]
	getSnapshot   *connect.Client[GetSnapshotRequest, GetSnapshotResponse]
	getLeaves     *connect.Client[GetLeavesRequest, GetLeavesResponse]
	createNode    *connect.Client[CreateNodeRequest, CreateNodeResponse]
	startSession  *connect.Client[StartSessionRequest, SessionResponse]
	getSession    *connect.Client[SessionRequest, SessionResponse]
	waitSession   *connect.Client[WaitSessionRequest, SessionResponse]
	generateImage *connect.Client[GenerateImageRequest, SessionResponse]
	generateVideo *connect.Client[GenerateVideoRequest, SessionResponse]
	commit        *connect.Client[CommitRequest, CommitResponse]
	exportSegment *connect.Client[ExportSegmentRequest, ExportSegmentResponse]
	closeSession  *connect.Client[SessionRequest, CloseSessionResponse]
	listModels    *connect.Client[ListModelsRequest, ListModelsResponse]
	listUniverses *connect.Client[ListUniversesRequest, ListUniversesResponse]
	putUniverse   *connect.Client[PutUniverseRequest, UniverseResponse]
	health        *connect.Client[emptypb.Empty, structpb.Struct]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &Client{
		getGraph:      connect.NewClient[GetGraphRequest, GetGraphResponse](httpClient, base+TimelineGetGraphProcedure, opts...),
		getSnapshot:   connect.NewClient[GetSnapshotRequest, GetSnapshotResponse](httpClient, base+TimelineGetSnapshotProcedure, opts...),
		getLeaves:     connect.NewClient[GetLeavesRequest, GetLeavesResponse](httpClient, base+TimelineGetLeavesProcedure, opts...),
		createNode:    connect.NewClient[CreateNodeRequest, CreateNodeResponse](httpClient, base+TimelineCreateNodeProcedure, opts...),
		startSession:  connect.NewClient[StartSessionRequest, SessionResponse](httpClient, base+GenerationStartSessionProcedure, opts...),
		getSession:    connect.NewClient[SessionRequest, SessionResponse](httpClient, base+GenerationGetSessionProcedure, opts...),
		waitSession:   connect.NewClient[WaitSessionRequest, SessionResponse](httpClient, base+GenerationWaitSessionProcedure, opts...),
		generateImage: connect.NewClient[GenerateImageRequest, SessionResponse](httpClient, base+GenerationGenerateImageProcedure, opts...),
		generateVideo: connect.NewClient[GenerateVideoRequest, SessionResponse](httpClient, base+GenerationGenerateVideoProcedure, opts...),
		commit:        connect.NewClient[CommitRequest, CommitResponse](httpClient, base+GenerationCommitProcedure, opts...),
		exportSegment: connect.NewClient[ExportSegmentRequest, ExportSegmentResponse](httpClient, base+GenerationExportSegmentProcedure, opts...),
		closeSession:  connect.NewClient[SessionRequest, CloseSessionResponse](httpClient, base+GenerationCloseSessionProcedure, opts...),
		listModels:    connect.NewClient[ListModelsRequest, ListModelsResponse](httpClient, base+GenerationListModelsProcedure, opts...),
		listUniverses: connect.NewClient[ListUniversesRequest, ListUniversesResponse](httpClient, base+UniverseListProcedure, opts...),
		putUniverse:   connect.NewClient[PutUniverseRequest, UniverseResponse](httpClient, base+UniversePutProcedure, opts...),
		health:        connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, base+HealthCheckProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	res, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) GetGraph(ctx context.Context, req *GetGraphRequest) (*GetGraphResponse, error) {
	return call(ctx, c.getGraph, req)
}

func (c *Client) GetSnapshot(ctx context.Context, req *GetSnapshotRequest) (*GetSnapshotResponse, error) {
	return call(ctx, c.getSnapshot, req)
}

func (c *Client) GetLeaves(ctx context.Context, req *GetLeavesRequest) (*GetLeavesResponse, error) {
	return call(ctx, c.getLeaves, req)
}

func (c *Client) CreateNode(ctx context.Context, req *CreateNodeRequest) (*CreateNodeResponse, error) {
	return call(ctx, c.createNode, req)
}

func (c *Client) StartSession(ctx context.Context, req *StartSessionRequest) (*SessionResponse, error) {
	return call(ctx, c.startSession, req)
}

func (c *Client) GetSession(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	return call(ctx, c.getSession, req)
}

func (c *Client) WaitSession(ctx context.Context, req *WaitSessionRequest) (*SessionResponse, error) {
	return call(ctx, c.waitSession, req)
}

func (c *Client) GenerateImage(ctx context.Context, req *GenerateImageRequest) (*SessionResponse, error) {
	return call(ctx, c.generateImage, req)
}

func (c *Client) GenerateVideo(ctx context.Context, req *GenerateVideoRequest) (*SessionResponse, error) {
	return call(ctx, c.generateVideo, req)
}

func (c *Client) Commit(ctx context.Context, req *CommitRequest) (*CommitResponse, error) {
	return call(ctx, c.commit, req)
}

func (c *Client) ExportSegment(ctx context.Context, req *ExportSegmentRequest) (*ExportSegmentResponse, error) {
	return call(ctx, c.exportSegment, req)
}

func (c *Client) CloseSession(ctx context.Context, req *SessionRequest) (*CloseSessionResponse, error) {
	return call(ctx, c.closeSession, req)
}

func (c *Client) ListModels(ctx context.Context) (*ListModelsResponse, error) {
	return call(ctx, c.listModels, &ListModelsRequest{})
}

func (c *Client) ListUniverses(ctx context.Context) (*ListUniversesResponse, error) {
	return call(ctx, c.listUniverses, &ListUniversesRequest{})
}

func (c *Client) PutUniverse(ctx context.Context, req *PutUniverseRequest) (*UniverseResponse, error) {
	return call(ctx, c.putUniverse, req)
}

func (c *Client) Health(ctx context.Context) (*structpb.Struct, error) {
	return call(ctx, c.health, &emptypb.Empty{})
}
