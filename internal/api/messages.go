package api

import (
	"storyweave/internal/canvas"
	"storyweave/internal/gateway/repository/universe"
	"storyweave/internal/generation"
	"storyweave/internal/segment"
	"storyweave/internal/timeline"
)

type GetGraphRequest struct {
	UniverseID string `json:"universeId"`
	Layout     string `json:"layout,omitempty"`
	AddNode    bool   `json:"addNode,omitempty"`
}

type GetGraphResponse struct {
	Graph       timeline.Graph `json:"graph"`
	Placeholder bool           `json:"placeholder,omitempty"`
	Leaves      []uint64       `json:"leaves,omitempty"`
	Roots       []uint64       `json:"roots,omitempty"`
	Canon       []uint64       `json:"canon,omitempty"`
}

type GetSnapshotRequest struct {
	UniverseID string `json:"universeId"`
}

type GetSnapshotResponse struct {
	Snapshot timeline.Snapshot `json:"snapshot"`
}

type GetLeavesRequest struct {
	UniverseID string `json:"universeId"`
}

type GetLeavesResponse struct {
	IDs []uint64 `json:"ids"`
}

type CreateNodeRequest struct {
	UniverseID string `json:"universeId"`
	Link       string `json:"link"`
	Plot       string `json:"plot"`
	PreviousID uint64 `json:"previousId"`
}

type CreateNodeResponse struct {
	ID uint64 `json:"id"`
}

type SubmitCanvasRequest struct {
	UniverseID string       `json:"universeId"`
	Canvas     canvas.State `json:"canvas"`
}

type SubmitCanvasResponse struct {
	// Created maps draft ids to the chain ids they were written as.
	Created map[string]uint64 `json:"created"`
}

type StartSessionRequest struct {
	UniverseID string `json:"universeId"`
	ParentID   uint64 `json:"parentId"`
}

type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

type SessionResponse struct {
	Session generation.Snapshot `json:"session"`
}

type WaitSessionRequest struct {
	SessionID string `json:"sessionId"`
	TimeoutMs int64  `json:"timeoutMs,omitempty"`
}

type GenerateImageRequest struct {
	SessionID string                `json:"sessionId"`
	Image     generation.ImageInput `json:"image"`
}

type GenerateVideoRequest struct {
	SessionID string                `json:"sessionId"`
	Video     generation.VideoInput `json:"video"`
}

type CommitRequest struct {
	SessionID string `json:"sessionId"`
	Plot      string `json:"plot"`
}

type CommitResponse struct {
	NodeID uint64 `json:"nodeId"`
	Link   string `json:"link"`
}

type ExportSegmentRequest struct {
	SessionID string `json:"sessionId"`
	Prompt    string `json:"prompt,omitempty"`
}

type ExportSegmentResponse struct {
	Segment segment.Segment `json:"segment"`
}

type CloseSessionResponse struct {
	Closed bool `json:"closed"`
}

type ListModelsRequest struct{}

type ListModelsResponse struct {
	Models []generation.VideoModel `json:"models"`
}

type ListUniversesRequest struct{}

type ListUniversesResponse struct {
	Universes []universe.Universe `json:"universes"`
}

type GetUniverseRequest struct {
	ID string `json:"id"`
}

type PutUniverseRequest struct {
	Universe universe.Universe `json:"universe"`
}

type UniverseResponse struct {
	Universe universe.Universe `json:"universe"`
}

type DeleteUniverseRequest struct {
	ID string `json:"id"`
}

type DeleteUniverseResponse struct{}

type AppendSegmentRequest struct {
	Segments segment.List    `json:"segments"`
	Segment  segment.Segment `json:"segment"`
}

type MoveSegmentRequest struct {
	Segments segment.List `json:"segments"`
	From     int          `json:"from"`
	To       int          `json:"to"`
}

type SwapSegmentsRequest struct {
	Segments segment.List `json:"segments"`
	I        int          `json:"i"`
	J        int          `json:"j"`
}

type RemoveSegmentRequest struct {
	Segments segment.List `json:"segments"`
	Index    int          `json:"index"`
}

type SegmentsRequest struct {
	Segments segment.List `json:"segments"`
}

type SegmentsResponse struct {
	Segments     segment.List `json:"segments"`
	TotalSeconds float64      `json:"totalSeconds"`
}
