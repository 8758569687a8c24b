package timeline

import (
	"fmt"
	"path"
	"sort"
	"strings"
)

type Layout string

const (
	// LayoutGrid places nodes on a three-column grid in array order.
	LayoutGrid Layout = "grid"
	// LayoutSequential offsets every node along x in array order.
	LayoutSequential Layout = "sequential"
	// LayoutTree places nodes by depth from their root.
	LayoutTree Layout = "tree"
)

const (
	GridColumns  = 3
	GridSpacingX = 320.0
	GridSpacingY = 240.0
	SeqSpacingX  = 300.0
	SeqY         = 120.0
	TreeSpacingX = 300.0
	TreeSpacingY = 180.0
	AddNodeID    = "add"
)

func ParseLayout(s string) (Layout, error) {
	switch Layout(strings.ToLower(strings.TrimSpace(s))) {
	case "", LayoutGrid:
		return LayoutGrid, nil
	case LayoutSequential:
		return LayoutSequential, nil
	case LayoutTree:
		return LayoutTree, nil
	}
	return "", fmt.Errorf("unknown layout %q", s)
}

type Options struct {
	Layout Layout
	// AddNode appends the synthetic "add" affordance after the last node.
	AddNode bool
}

func DefaultOptions() Options {
	return Options{Layout: LayoutGrid, AddNode: true}
}

// Build converts a snapshot into flow nodes and edges. It never fails: edges
// whose parent is missing are dropped and reported as issues, duplicate ids
// resolve to the last occurrence for lookups.
func Build(s Snapshot, opts Options) Graph {
	if opts.Layout == "" {
		opts.Layout = LayoutGrid
	}
	g := Graph{
		Nodes:  make([]FlowNode, 0, len(s.Nodes)+1),
		Edges:  make([]FlowEdge, 0, len(s.Nodes)+1),
		Issues: append([]Issue(nil), s.Issues...),
	}
	if len(s.Nodes) == 0 {
		return g
	}

	byID := make(map[uint64]int, len(s.Nodes))
	for i, n := range s.Nodes {
		if prev, ok := byID[n.ID]; ok {
			g.Issues = append(g.Issues, Issue{
				Kind:   IssueDuplicateID,
				NodeID: n.ID,
				Index:  i,
				Detail: fmt.Sprintf("id also at index %d; index %d wins", prev, i),
			})
		}
		byID[n.ID] = i
	}
	children := s.Children()
	positions := positionsFor(s, byID, opts.Layout)

	for i, n := range s.Nodes {
		kids := append([]uint64(nil), children[n.ID]...)
		if n.NextIDs != nil && !sameIDs(n.NextIDs, kids) {
			g.Issues = append(g.Issues, Issue{
				Kind:   IssueNextIDsMismatch,
				NodeID: n.ID,
				Index:  i,
				Detail: fmt.Sprintf("contract lists %v, previousId scan gives %v", n.NextIDs, kids),
			})
		}
		style := BranchStyle
		if n.Canon {
			style = CanonStyle
		}
		g.Nodes = append(g.Nodes, FlowNode{
			ID:       Key(n.ID),
			Type:     NodeScene,
			Position: positions[i],
			Data: NodeData{
				NodeID:     n.ID,
				Link:       n.Link,
				Plot:       n.Plot,
				PreviousID: n.PreviousID,
				NextIDs:    kids,
				Canon:      n.Canon,
				Leaf:       len(kids) == 0,
				Media:      MediaKind(n.Link),
			},
			Style: style,
		})
	}

	for i, n := range s.Nodes {
		if n.PreviousID == 0 {
			continue
		}
		if n.PreviousID == n.ID {
			g.Issues = append(g.Issues, Issue{
				Kind:   IssueMalformedEntry,
				NodeID: n.ID,
				Index:  i,
				Detail: "node is its own parent",
			})
		}
		pi, ok := byID[n.PreviousID]
		if !ok {
			g.Issues = append(g.Issues, Issue{
				Kind:   IssueDanglingParent,
				NodeID: n.ID,
				Index:  i,
				Detail: fmt.Sprintf("parent %d not in snapshot", n.PreviousID),
			})
			continue
		}
		source := Key(n.PreviousID)
		target := Key(n.ID)
		g.Edges = append(g.Edges, FlowEdge{
			ID:     EdgeID(source, target),
			Source: source,
			Target: target,
			Canon:  n.Canon && s.Nodes[pi].Canon,
		})
	}

	if opts.AddNode {
		last := g.Nodes[len(g.Nodes)-1]
		g.Nodes = append(g.Nodes, FlowNode{
			ID:       AddNodeID,
			Type:     NodeAdd,
			Position: addPosition(len(s.Nodes), last.Position, opts.Layout),
			Style:    AddStyle,
		})
		g.Edges = append(g.Edges, FlowEdge{
			ID:     EdgeID(last.ID, AddNodeID),
			Source: last.ID,
			Target: AddNodeID,
			Dashed: true,
		})
	}
	return g
}

func positionsFor(s Snapshot, byID map[uint64]int, layout Layout) []Position {
	out := make([]Position, len(s.Nodes))
	switch layout {
	case LayoutSequential:
		for i := range s.Nodes {
			out[i] = sequentialSlot(i)
		}
	case LayoutTree:
		depths := depthsOf(s, byID)
		rows := map[int]int{}
		for i := range s.Nodes {
			d := depths[i]
			out[i] = Position{X: float64(d) * TreeSpacingX, Y: float64(rows[d]) * TreeSpacingY}
			rows[d]++
		}
	default:
		for i := range s.Nodes {
			out[i] = gridSlot(i)
		}
	}
	return out
}

func gridSlot(i int) Position {
	return Position{
		X: float64(i%GridColumns) * GridSpacingX,
		Y: float64(i/GridColumns) * GridSpacingY,
	}
}

func sequentialSlot(i int) Position {
	return Position{X: float64(i) * SeqSpacingX, Y: SeqY}
}

func addPosition(n int, last Position, layout Layout) Position {
	switch layout {
	case LayoutSequential:
		return sequentialSlot(n)
	case LayoutTree:
		return Position{X: last.X + TreeSpacingX, Y: last.Y}
	default:
		return gridSlot(n)
	}
}

// depthsOf walks previousId links to a root. Missing parents end the walk and
// cycles are cut at the first revisited node.
func depthsOf(s Snapshot, byID map[uint64]int) []int {
	const unknown = -1
	depth := make([]int, len(s.Nodes))
	for i := range depth {
		depth[i] = unknown
	}
	for i := range s.Nodes {
		if depth[i] != unknown {
			continue
		}
		chain := []int{}
		seen := map[int]bool{}
		cur := i
		base := 0
		for {
			if depth[cur] != unknown {
				base = depth[cur] + 1
				break
			}
			if seen[cur] {
				break
			}
			seen[cur] = true
			chain = append(chain, cur)
			prev := s.Nodes[cur].PreviousID
			pi, ok := byID[prev]
			if prev == 0 || !ok || prev == s.Nodes[cur].ID {
				break
			}
			cur = pi
		}
		for j := len(chain) - 1; j >= 0; j-- {
			depth[chain[j]] = base
			base++
		}
	}
	return depth
}

func sameIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]uint64(nil), a...)
	y := append([]uint64(nil), b...)
	sort.Slice(x, func(i, j int) bool { return x[i] < x[j] })
	sort.Slice(y, func(i, j int) bool { return y[i] < y[j] })
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// MediaKind guesses whether a link points at a video or an image.
func MediaKind(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	switch strings.ToLower(path.Ext(link)) {
	case ".mp4", ".webm", ".mov", ".m4v":
		return "video"
	case ".png", ".jpg", ".jpeg", ".webp", ".gif":
		return "image"
	}
	return "video"
}
