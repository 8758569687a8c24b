package timeline

// Placeholder is the demo graph shown while a universe has no nodes yet.
func Placeholder() Graph {
	g := Build(Snapshot{Nodes: []Node{
		{ID: 1, Plot: "Once upon a time...", Canon: true},
		{ID: 2, Plot: "The hero leaves home", PreviousID: 1, Canon: true},
		{ID: 3, Plot: "The hero stays behind", PreviousID: 1},
	}}, DefaultOptions())
	for i := range g.Nodes {
		if g.Nodes[i].Type == NodeScene {
			g.Nodes[i].Type = NodePlaceholder
		}
	}
	return g
}

// BuildOrPlaceholder falls back to Placeholder when s has no nodes.
func BuildOrPlaceholder(s Snapshot, opts Options) (Graph, bool) {
	if len(s.Nodes) == 0 {
		return Placeholder(), true
	}
	return Build(s, opts), false
}
