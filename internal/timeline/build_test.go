package timeline

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	return Snapshot{Nodes: []Node{
		{ID: 1, Link: "ipfs://a.mp4", Plot: "opening", Canon: true},
		{ID: 2, Plot: "left", PreviousID: 1, Canon: true},
		{ID: 3, Plot: "right", PreviousID: 1},
		{ID: 4, Plot: "left again", PreviousID: 2, Canon: true},
		{ID: 5, Plot: "fork", PreviousID: 3},
	}}
}

func sceneEdges(g Graph) []FlowEdge {
	out := []FlowEdge{}
	for _, e := range g.Edges {
		if !e.Dashed {
			out = append(out, e)
		}
	}
	return out
}

func TestBuildEdgeCountMatchesNodesWithParent(t *testing.T) {
	s := sampleSnapshot()
	g := Build(s, DefaultOptions())

	withParent := 0
	for _, n := range s.Nodes {
		if n.PreviousID != 0 {
			withParent++
		}
	}
	assert.Len(t, sceneEdges(g), withParent)
	assert.Empty(t, g.Issues)
	assert.Contains(t, g.Edges, FlowEdge{ID: "e1-2", Source: "1", Target: "2", Canon: true})
	assert.Contains(t, g.Edges, FlowEdge{ID: "e1-3", Source: "1", Target: "3"})
}

func TestBuildDropsDanglingParentAndReportsIt(t *testing.T) {
	s := Snapshot{Nodes: []Node{
		{ID: 10, Plot: "root"},
		{ID: 11, Plot: "orphan", PreviousID: 99},
		{ID: 12, Plot: "child", PreviousID: 10},
	}}
	var g Graph
	require.NotPanics(t, func() { g = Build(s, Options{Layout: LayoutGrid}) })

	for _, e := range g.Edges {
		assert.NotEqual(t, "11", e.Target)
	}
	assert.Len(t, g.Edges, 1)
	require.Len(t, g.Issues, 1)
	assert.Equal(t, IssueDanglingParent, g.Issues[0].Kind)
	assert.Equal(t, uint64(11), g.Issues[0].NodeID)
	assert.ElementsMatch(t, []uint64{10, 11}, g.Roots())
}

func TestBuildIsDeterministic(t *testing.T) {
	for _, layout := range []Layout{LayoutGrid, LayoutSequential, LayoutTree} {
		a := Build(sampleSnapshot(), Options{Layout: layout, AddNode: true})
		b := Build(sampleSnapshot(), Options{Layout: layout, AddNode: true})
		require.Equal(t, len(a.Nodes), len(b.Nodes))
		for i := range a.Nodes {
			assert.Equal(t, a.Nodes[i].Position, b.Nodes[i].Position, "layout %s node %d", layout, i)
		}
	}
}

func TestGridLayoutFormula(t *testing.T) {
	g := Build(sampleSnapshot(), Options{Layout: LayoutGrid})
	assert.Equal(t, Position{X: 0, Y: 0}, g.Nodes[0].Position)
	assert.Equal(t, Position{X: 2 * GridSpacingX, Y: 0}, g.Nodes[2].Position)
	assert.Equal(t, Position{X: 0, Y: GridSpacingY}, g.Nodes[3].Position)
	assert.Equal(t, Position{X: GridSpacingX, Y: GridSpacingY}, g.Nodes[4].Position)
}

func TestSequentialAndTreeLayouts(t *testing.T) {
	seq := Build(sampleSnapshot(), Options{Layout: LayoutSequential})
	for i, n := range seq.Nodes {
		assert.Equal(t, Position{X: float64(i) * SeqSpacingX, Y: SeqY}, n.Position)
	}

	tree := Build(sampleSnapshot(), Options{Layout: LayoutTree})
	x := map[string]float64{}
	for _, n := range tree.Nodes {
		x[n.ID] = n.Position.X
	}
	assert.Equal(t, 0.0, x["1"])
	assert.Equal(t, TreeSpacingX, x["2"])
	assert.Equal(t, TreeSpacingX, x["3"])
	assert.Equal(t, 2*TreeSpacingX, x["4"])
}

func TestTreeLayoutSurvivesCycles(t *testing.T) {
	s := Snapshot{Nodes: []Node{
		{ID: 1, PreviousID: 2},
		{ID: 2, PreviousID: 1},
		{ID: 3, PreviousID: 3},
	}}
	require.NotPanics(t, func() { Build(s, Options{Layout: LayoutTree}) })
	g := Build(s, Options{Layout: LayoutTree})
	require.Len(t, g.Issues, 1)
	assert.Equal(t, IssueMalformedEntry, g.Issues[0].Kind)
	assert.NotEmpty(t, RenderTree(s, nil))
}

func TestSelfParentKeepsEdgeAndReportsIt(t *testing.T) {
	s := Snapshot{Nodes: []Node{
		{ID: 1, Plot: "root", Canon: true},
		{ID: 4, Plot: "loop", PreviousID: 4, Canon: true},
	}}
	g := Build(s, Options{})
	assert.Equal(t, []FlowEdge{{ID: "e4-4", Source: "4", Target: "4", Canon: true}}, g.Edges)
	require.Len(t, g.Issues, 1)
	assert.Equal(t, IssueMalformedEntry, g.Issues[0].Kind)
	assert.Equal(t, uint64(4), g.Issues[0].NodeID)
	assert.Equal(t, 1, g.Issues[0].Index)
}

func TestForwardReferenceIsAccepted(t *testing.T) {
	s := Snapshot{Nodes: []Node{
		{ID: 7, PreviousID: 9},
		{ID: 9},
	}}
	g := Build(s, Options{})
	assert.Equal(t, []FlowEdge{{ID: "e9-7", Source: "9", Target: "7"}}, g.Edges)
	assert.Empty(t, g.Issues)
}

func TestDuplicateIDsLastWriteWins(t *testing.T) {
	s := Snapshot{Nodes: []Node{
		{ID: 1, Plot: "first", Canon: false},
		{ID: 1, Plot: "second", Canon: true},
		{ID: 2, PreviousID: 1, Canon: true},
	}}
	g := Build(s, Options{})
	require.Len(t, g.Issues, 1)
	assert.Equal(t, IssueDuplicateID, g.Issues[0].Kind)
	assert.Equal(t, 1, g.Issues[0].Index)
	require.Len(t, g.Edges, 1)
	assert.True(t, g.Edges[0].Canon, "edge should resolve to the later, canonical duplicate")
}

func TestNextIDsMismatchIsReported(t *testing.T) {
	s := Snapshot{Nodes: []Node{
		{ID: 1, NextIDs: []uint64{2, 3}},
		{ID: 2, PreviousID: 1, NextIDs: []uint64{}},
	}}
	g := Build(s, Options{})
	require.Len(t, g.Issues, 1)
	assert.Equal(t, IssueNextIDsMismatch, g.Issues[0].Kind)
	assert.Equal(t, []uint64{2}, g.Nodes[0].Data.NextIDs)
}

func TestAddNodeFollowsLastNode(t *testing.T) {
	g := Build(sampleSnapshot(), DefaultOptions())
	add := g.Nodes[len(g.Nodes)-1]
	assert.Equal(t, NodeAdd, add.Type)
	assert.Equal(t, gridSlot(5), add.Position)

	last := g.Edges[len(g.Edges)-1]
	assert.True(t, last.Dashed)
	assert.Equal(t, "5", last.Source)
	assert.Equal(t, AddNodeID, last.Target)
}

func TestCanonStylingDoesNotChangeConnectivity(t *testing.T) {
	plain := sampleSnapshot()
	for i := range plain.Nodes {
		plain.Nodes[i].Canon = false
	}
	a := Build(sampleSnapshot(), Options{})
	b := Build(plain, Options{})
	require.Equal(t, len(a.Edges), len(b.Edges))
	for i := range a.Edges {
		assert.Equal(t, a.Edges[i].Source, b.Edges[i].Source)
		assert.Equal(t, a.Edges[i].Target, b.Edges[i].Target)
	}
	assert.Equal(t, CanonStyle, a.Nodes[0].Style)
	assert.Equal(t, BranchStyle, b.Nodes[0].Style)
	assert.Equal(t, []uint64{1, 2, 4}, a.CanonIDs())
}

func TestLeavesAndEmptyFallback(t *testing.T) {
	g := Build(sampleSnapshot(), DefaultOptions())
	assert.Equal(t, []uint64{4, 5}, g.Leaves())
	assert.False(t, g.Empty())

	empty := Build(Snapshot{}, DefaultOptions())
	assert.Empty(t, empty.Nodes)
	assert.Empty(t, empty.Edges)
	assert.True(t, empty.Empty())

	fallback, used := BuildOrPlaceholder(Snapshot{}, DefaultOptions())
	assert.True(t, used)
	assert.NotEmpty(t, fallback.Nodes)
	assert.Equal(t, NodePlaceholder, fallback.Nodes[0].Type)
	assert.Empty(t, fallback.Leaves())
}

func TestMediaKind(t *testing.T) {
	assert.Equal(t, "video", MediaKind("https://cdn/x.MP4?sig=1"))
	assert.Equal(t, "image", MediaKind("https://cdn/x.png"))
	assert.Equal(t, "", MediaKind(" "))
}

func TestRenderTree(t *testing.T) {
	out := RenderTree(sampleSnapshot(), nil)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "#1 opening *", lines[0])
	assert.Equal(t, "├── #2 left *", lines[1])
	assert.Equal(t, "│   └── #4 left again *", lines[2])
	assert.Equal(t, "└── #3 right", lines[3])
	assert.Equal(t, "    └── #5 fork", lines[4])
}

func TestDefaultLabelTruncatesOnRuneBoundary(t *testing.T) {
	plot := "a" + strings.Repeat("あ", 70)
	label := DefaultLabel(Node{ID: 2, Plot: plot})
	assert.True(t, utf8.ValidString(label))
	assert.True(t, strings.HasSuffix(label, "..."))
	assert.Equal(t, "#2 a"+strings.Repeat("あ", 56)+"...", label)

	short := "a" + strings.Repeat("あ", 30)
	assert.Equal(t, "#2 "+short, DefaultLabel(Node{ID: 2, Plot: short}))
}
