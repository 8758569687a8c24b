package timeline

import "strconv"

// Node is one entry of the on-chain narrative graph as read from the contract.
type Node struct {
	ID         uint64   `json:"id"`
	Link       string   `json:"link"`
	Plot       string   `json:"plot"`
	PreviousID uint64   `json:"previousId"`
	NextIDs    []uint64 `json:"nextIds,omitempty"`
	Canon      bool     `json:"isCanon"`
	Creator    string   `json:"creator,omitempty"`
}

// IsRoot reports whether n has no parent. Every such node is treated as a root,
// not only the one the contract acknowledges.
func (n Node) IsRoot() bool { return n.PreviousID == 0 }

// Key is the flow-node id of a contract node.
func Key(id uint64) string { return strconv.FormatUint(id, 10) }

// Snapshot is a graph read in contract array order.
type Snapshot struct {
	Nodes  []Node  `json:"nodes"`
	Issues []Issue `json:"issues,omitempty"`
}

// Children recomputes child lists from every node's PreviousID, keyed by parent.
// Child order follows array order.
func (s Snapshot) Children() map[uint64][]uint64 {
	out := make(map[uint64][]uint64, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.PreviousID == 0 {
			continue
		}
		out[n.PreviousID] = append(out[n.PreviousID], n.ID)
	}
	return out
}

type IssueKind string

const (
	IssueDanglingParent  IssueKind = "dangling_parent"
	IssueDuplicateID     IssueKind = "duplicate_id"
	IssueNextIDsMismatch IssueKind = "next_ids_mismatch"
	IssueMalformedEntry  IssueKind = "malformed_entry"
)

// Issue is a data-integrity condition found while reading or building a graph.
// Issues never abort a build.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	NodeID uint64    `json:"nodeId,omitempty"`
	Index  int       `json:"index"`
	Detail string    `json:"detail"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type NodeType string

const (
	NodeScene       NodeType = "scene"
	NodeAdd         NodeType = "add"
	NodePlaceholder NodeType = "placeholder"
	NodeDraft       NodeType = "draft"
)

type Style struct {
	Stroke      string  `json:"stroke"`
	Fill        string  `json:"fill"`
	StrokeWidth float64 `json:"strokeWidth"`
}

var (
	CanonStyle  = Style{Stroke: "#f5b301", Fill: "#2b2205", StrokeWidth: 3}
	BranchStyle = Style{Stroke: "#5b6b8c", Fill: "#151a24", StrokeWidth: 1}
	AddStyle    = Style{Stroke: "#8a8a8a", Fill: "transparent", StrokeWidth: 1}
)

// NodeData is the payload carried by a scene node. It is a value copy of the
// contract node; editing it never touches the snapshot.
type NodeData struct {
	NodeID     uint64   `json:"nodeId,omitempty"`
	Link       string   `json:"link,omitempty"`
	Plot       string   `json:"plot,omitempty"`
	PreviousID uint64   `json:"previousId,omitempty"`
	NextIDs    []uint64 `json:"nextIds,omitempty"`
	Canon      bool     `json:"isCanon,omitempty"`
	Leaf       bool     `json:"leaf,omitempty"`
	Media      string   `json:"media,omitempty"`
}

type FlowNode struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
	Style    Style    `json:"style"`
}

type FlowEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Dashed bool   `json:"dashed,omitempty"`
	Canon  bool   `json:"canon,omitempty"`
}

func EdgeID(source, target string) string { return "e" + source + "-" + target }

// Graph is the renderable result of Build.
type Graph struct {
	Nodes  []FlowNode `json:"nodes"`
	Edges  []FlowEdge `json:"edges"`
	Issues []Issue    `json:"issues,omitempty"`
}

// Empty reports whether the graph carries no scene nodes.
func (g Graph) Empty() bool {
	for _, n := range g.Nodes {
		if n.Type == NodeScene {
			return false
		}
	}
	return true
}

// Leaves returns contract ids of scene nodes without children, in node order.
func (g Graph) Leaves() []uint64 {
	out := make([]uint64, 0)
	for _, n := range g.Nodes {
		if n.Type == NodeScene && n.Data.Leaf {
			out = append(out, n.Data.NodeID)
		}
	}
	return out
}

// Roots returns contract ids of scene nodes whose parent is zero or missing.
func (g Graph) Roots() []uint64 {
	hasParent := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		if !e.Dashed {
			hasParent[e.Target] = true
		}
	}
	out := make([]uint64, 0)
	for _, n := range g.Nodes {
		if n.Type == NodeScene && !hasParent[n.ID] {
			out = append(out, n.Data.NodeID)
		}
	}
	return out
}

// CanonIDs returns the ids flagged canonical, in node order.
func (g Graph) CanonIDs() []uint64 {
	out := make([]uint64, 0)
	for _, n := range g.Nodes {
		if n.Type == NodeScene && n.Data.Canon {
			out = append(out, n.Data.NodeID)
		}
	}
	return out
}
