// Package canvas holds the flow editor state as immutable values. Every edit is
// an Action reduced into a new State; the previous State is never modified.
package canvas

import (
	"errors"
	"fmt"

	"storyweave/internal/timeline"
)

var (
	ErrUnknownNode  = errors.New("canvas: unknown node")
	ErrUnknownEdge  = errors.New("canvas: unknown edge")
	ErrImmutable    = errors.New("canvas: chain nodes cannot be changed")
	ErrDuplicateID  = errors.New("canvas: node id already used")
	ErrHasParent    = errors.New("canvas: node already has a parent")
	ErrCycle        = errors.New("canvas: connection would create a cycle")
	ErrInvalidInput = errors.New("canvas: invalid input")
)

type State struct {
	Nodes    []timeline.FlowNode `json:"nodes"`
	Edges    []timeline.FlowEdge `json:"edges"`
	Selected string              `json:"selected,omitempty"`
}

// FromGraph seeds an editor state from a built graph.
func FromGraph(g timeline.Graph) State {
	return State{
		Nodes: cloneNodes(g.Nodes),
		Edges: append([]timeline.FlowEdge(nil), g.Edges...),
	}
}

func (s State) index(id string) int {
	idx := -1
	for i, n := range s.Nodes {
		if n.ID == id {
			idx = i
		}
	}
	return idx
}

// Node returns a copy of the node with id.
func (s State) Node(id string) (timeline.FlowNode, bool) {
	i := s.index(id)
	if i < 0 {
		return timeline.FlowNode{}, false
	}
	return cloneNode(s.Nodes[i]), true
}

func (s State) parentOf(id string) (string, bool) {
	for _, e := range s.Edges {
		if e.Target == id && !e.Dashed {
			return e.Source, true
		}
	}
	return "", false
}

func (s State) clone() State {
	return State{
		Nodes:    cloneNodes(s.Nodes),
		Edges:    append([]timeline.FlowEdge(nil), s.Edges...),
		Selected: s.Selected,
	}
}

// Submission is the node and edge state handed back to callers that persist
// or inspect the canvas.
type Submission struct {
	Nodes []timeline.FlowNode `json:"nodes"`
	Edges []timeline.FlowEdge `json:"edges"`
}

func (s State) Submission() Submission {
	return Submission{
		Nodes: cloneNodes(s.Nodes),
		Edges: append([]timeline.FlowEdge(nil), s.Edges...),
	}
}

// PendingWrite is one createNode call derived from a draft node.
type PendingWrite struct {
	DraftID string `json:"draftId"`
	Link    string `json:"link"`
	Plot    string `json:"plot"`
	// ParentNodeID is the chain id of the parent when it already exists.
	ParentNodeID uint64 `json:"parentNodeId,omitempty"`
	// ParentDraftID names a draft parent that must be written first.
	ParentDraftID string `json:"parentDraftId,omitempty"`
}

// PendingWrites orders draft nodes parents-first so that each write can refer
// to an id produced by an earlier one.
func (s State) PendingWrites() ([]PendingWrite, error) {
	drafts := map[string]timeline.FlowNode{}
	order := []string{}
	for _, n := range s.Nodes {
		if n.Type != timeline.NodeDraft {
			continue
		}
		if _, seen := drafts[n.ID]; !seen {
			order = append(order, n.ID)
		}
		drafts[n.ID] = n
	}

	out := make([]PendingWrite, 0, len(order))
	done := map[string]bool{}
	var visit func(id string, path map[string]bool) error
	visit = func(id string, path map[string]bool) error {
		if done[id] {
			return nil
		}
		if path[id] {
			return fmt.Errorf("%w at %s", ErrCycle, id)
		}
		path[id] = true
		n := drafts[id]
		w := PendingWrite{DraftID: id, Link: n.Data.Link, Plot: n.Data.Plot}
		if parent, ok := s.parentOf(id); ok {
			if _, isDraft := drafts[parent]; isDraft {
				if err := visit(parent, path); err != nil {
					return err
				}
				w.ParentDraftID = parent
			} else {
				p, ok := s.Node(parent)
				if !ok {
					return fmt.Errorf("%w: parent %s of %s", ErrUnknownNode, parent, id)
				}
				if p.Type != timeline.NodeScene {
					return fmt.Errorf("%w: parent %s of %s is not a scene", ErrInvalidInput, parent, id)
				}
				w.ParentNodeID = p.Data.NodeID
			}
		}
		done[id] = true
		out = append(out, w)
		return nil
	}
	for _, id := range order {
		if err := visit(id, map[string]bool{}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func cloneNodes(in []timeline.FlowNode) []timeline.FlowNode {
	out := make([]timeline.FlowNode, len(in))
	for i, n := range in {
		out[i] = cloneNode(n)
	}
	return out
}

func cloneNode(n timeline.FlowNode) timeline.FlowNode {
	n.Data.NextIDs = append([]uint64(nil), n.Data.NextIDs...)
	return n
}
