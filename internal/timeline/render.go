package timeline

import (
	"fmt"
	"strings"
)

// RenderTree draws the snapshot as an indented tree, roots first.
// Example:
// #1 Once upon a time
// ├── #2 The hero leaves home
// │   └── #4 A storm
// └── #3 The hero stays behind
func RenderTree(s Snapshot, label func(Node) string) string {
	if len(s.Nodes) == 0 {
		return ""
	}
	if label == nil {
		label = DefaultLabel
	}
	byID := make(map[uint64]int, len(s.Nodes))
	for i, n := range s.Nodes {
		byID[n.ID] = i
	}
	children := s.Children()

	var sb strings.Builder
	visited := make(map[uint64]bool, len(s.Nodes))
	for i, n := range s.Nodes {
		if _, ok := byID[n.PreviousID]; n.PreviousID != 0 && ok && n.PreviousID != n.ID {
			continue
		}
		if byID[n.ID] != i || visited[n.ID] {
			continue
		}
		visited[n.ID] = true
		sb.WriteString(label(n))
		sb.WriteString("\n")
		renderChildren(&sb, s, byID, children, n.ID, "", visited, label)
	}
	return strings.TrimSpace(sb.String())
}

func renderChildren(sb *strings.Builder, s Snapshot, byID map[uint64]int, children map[uint64][]uint64, id uint64, prefix string, visited map[uint64]bool, label func(Node) string) {
	kids := children[id]
	for i, kid := range kids {
		isLast := i == len(kids)-1
		sb.WriteString(prefix)
		if isLast {
			sb.WriteString("└── ")
		} else {
			sb.WriteString("├── ")
		}
		n := s.Nodes[byID[kid]]
		sb.WriteString(label(n))
		if visited[kid] {
			sb.WriteString(" (cycle)\n")
			continue
		}
		visited[kid] = true
		sb.WriteString("\n")

		newPrefix := prefix
		if isLast {
			newPrefix += "    "
		} else {
			newPrefix += "│   "
		}
		renderChildren(sb, s, byID, children, kid, newPrefix, visited, label)
	}
}

// DefaultLabel renders "#id plot", marking canonical nodes with a star.
func DefaultLabel(n Node) string {
	plot := strings.TrimSpace(n.Plot)
	if r := []rune(plot); len(r) > 60 {
		plot = string(r[:57]) + "..."
	}
	mark := ""
	if n.Canon {
		mark = " *"
	}
	return fmt.Sprintf("#%d %s%s", n.ID, plot, mark)
}
