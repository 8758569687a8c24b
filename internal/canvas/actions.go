package canvas

import (
	"fmt"
	"strings"

	"storyweave/internal/timeline"
)

// Action is one editor intent.
type Action interface {
	apply(State) (State, error)
}

// Reduce returns the state after a. s is left untouched, also on error.
func Reduce(s State, a Action) (State, error) {
	if a == nil {
		return s, fmt.Errorf("%w: nil action", ErrInvalidInput)
	}
	return a.apply(s.clone())
}

// ReduceAll applies actions in order and stops at the first error.
func ReduceAll(s State, actions ...Action) (State, error) {
	cur := s
	for i, a := range actions {
		next, err := Reduce(cur, a)
		if err != nil {
			return s, fmt.Errorf("action %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}

type MoveNode struct {
	ID       string
	Position timeline.Position
}

func (a MoveNode) apply(s State) (State, error) {
	i := s.index(a.ID)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrUnknownNode, a.ID)
	}
	s.Nodes[i].Position = a.Position
	return s, nil
}

type SelectNode struct{ ID string }

func (a SelectNode) apply(s State) (State, error) {
	if s.index(a.ID) < 0 {
		return s, fmt.Errorf("%w: %s", ErrUnknownNode, a.ID)
	}
	s.Selected = a.ID
	return s, nil
}

type ClearSelection struct{}

func (ClearSelection) apply(s State) (State, error) {
	s.Selected = ""
	return s, nil
}

// AddDraft places a not-yet-written scene on the canvas.
type AddDraft struct {
	ID       string
	Plot     string
	Link     string
	Position timeline.Position
}

func (a AddDraft) apply(s State) (State, error) {
	id := strings.TrimSpace(a.ID)
	if id == "" {
		return s, fmt.Errorf("%w: draft id is required", ErrInvalidInput)
	}
	if s.index(id) >= 0 {
		return s, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	s.Nodes = append(s.Nodes, timeline.FlowNode{
		ID:       id,
		Type:     timeline.NodeDraft,
		Position: a.Position,
		Data: timeline.NodeData{
			Plot:  a.Plot,
			Link:  a.Link,
			Leaf:  true,
			Media: timeline.MediaKind(a.Link),
		},
		Style: timeline.BranchStyle,
	})
	return s, nil
}

// UpdateDraft replaces the plot and link of a draft. Empty fields are kept.
type UpdateDraft struct {
	ID   string
	Plot string
	Link string
}

func (a UpdateDraft) apply(s State) (State, error) {
	i := s.index(a.ID)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrUnknownNode, a.ID)
	}
	if s.Nodes[i].Type != timeline.NodeDraft {
		return s, fmt.Errorf("%w: %s", ErrImmutable, a.ID)
	}
	if a.Plot != "" {
		s.Nodes[i].Data.Plot = a.Plot
	}
	if a.Link != "" {
		s.Nodes[i].Data.Link = a.Link
		s.Nodes[i].Data.Media = timeline.MediaKind(a.Link)
	}
	return s, nil
}

// RemoveNode deletes a draft and every edge touching it.
type RemoveNode struct{ ID string }

func (a RemoveNode) apply(s State) (State, error) {
	i := s.index(a.ID)
	if i < 0 {
		return s, fmt.Errorf("%w: %s", ErrUnknownNode, a.ID)
	}
	if s.Nodes[i].Type == timeline.NodeScene {
		return s, fmt.Errorf("%w: %s", ErrImmutable, a.ID)
	}
	nodes := s.Nodes[:0]
	for _, n := range s.Nodes {
		if n.ID != a.ID {
			nodes = append(nodes, n)
		}
	}
	s.Nodes = nodes
	edges := s.Edges[:0]
	for _, e := range s.Edges {
		if e.Source != a.ID && e.Target != a.ID {
			edges = append(edges, e)
		}
	}
	s.Edges = edges
	if s.Selected == a.ID {
		s.Selected = ""
	}
	return s, nil
}

// Connect links source (parent) to target (child). Only drafts can gain a
// parent; chain nodes keep the parent recorded on chain.
type Connect struct {
	Source string
	Target string
}

func (a Connect) apply(s State) (State, error) {
	if a.Source == a.Target {
		return s, fmt.Errorf("%w: self loop on %s", ErrCycle, a.Source)
	}
	si, ti := s.index(a.Source), s.index(a.Target)
	if si < 0 {
		return s, fmt.Errorf("%w: %s", ErrUnknownNode, a.Source)
	}
	if ti < 0 {
		return s, fmt.Errorf("%w: %s", ErrUnknownNode, a.Target)
	}
	if t := s.Nodes[ti].Type; t != timeline.NodeDraft {
		return s, fmt.Errorf("%w: %s", ErrImmutable, a.Target)
	}
	if st := s.Nodes[si].Type; st != timeline.NodeScene && st != timeline.NodeDraft {
		return s, fmt.Errorf("%w: %s cannot be a parent", ErrInvalidInput, a.Source)
	}
	if _, ok := s.parentOf(a.Target); ok {
		return s, fmt.Errorf("%w: %s", ErrHasParent, a.Target)
	}
	seen := map[string]bool{}
	for cur, ok := a.Source, true; ok && !seen[cur]; cur, ok = s.parentOf(cur) {
		if cur == a.Target {
			return s, fmt.Errorf("%w: %s -> %s", ErrCycle, a.Source, a.Target)
		}
		seen[cur] = true
	}
	s.Edges = append(s.Edges, timeline.FlowEdge{
		ID:     timeline.EdgeID(a.Source, a.Target),
		Source: a.Source,
		Target: a.Target,
	})
	s.Nodes[si].Data.Leaf = false
	return s, nil
}

// Disconnect removes an edge that ends at a draft.
type Disconnect struct{ EdgeID string }

func (a Disconnect) apply(s State) (State, error) {
	idx := -1
	for i, e := range s.Edges {
		if e.ID == a.EdgeID {
			idx = i
		}
	}
	if idx < 0 {
		return s, fmt.Errorf("%w: %s", ErrUnknownEdge, a.EdgeID)
	}
	e := s.Edges[idx]
	if t := s.index(e.Target); t >= 0 && s.Nodes[t].Type == timeline.NodeScene {
		return s, fmt.Errorf("%w: %s", ErrImmutable, a.EdgeID)
	}
	s.Edges = append(s.Edges[:idx], s.Edges[idx+1:]...)
	return s, nil
}
