package segment

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIndex   = errors.New("segment: index out of range")
	ErrInvalid = errors.New("segment: invalid segment")
)

// Segment is one independently generated clip of the sequential editor.
type Segment struct {
	ID       string  `json:"id"`
	VideoURL string  `json:"videoUrl"`
	ImageURL string  `json:"imageUrl,omitempty"`
	Prompt   string  `json:"prompt,omitempty"`
	Seconds  float64 `json:"seconds"`
}

func (s Segment) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalid)
	}
	if strings.TrimSpace(s.VideoURL) == "" {
		return fmt.Errorf("%w: %s has no video", ErrInvalid, s.ID)
	}
	if s.Seconds < 0 {
		return fmt.Errorf("%w: %s has negative duration", ErrInvalid, s.ID)
	}
	return nil
}

// List is an ordered clip list. Operations return a new List.
type List []Segment

func (l List) check(i int) error {
	if i < 0 || i >= len(l) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndex, i, len(l))
	}
	return nil
}

// Move takes the clip at from and inserts it at to, shifting the clips between.
func (l List) Move(from, to int) (List, error) {
	if err := l.check(from); err != nil {
		return l, err
	}
	if err := l.check(to); err != nil {
		return l, err
	}
	out := make(List, 0, len(l))
	moved := l[from]
	for i, s := range l {
		if i != from {
			out = append(out, s)
		}
	}
	out = append(out[:to], append(List{moved}, out[to:]...)...)
	return out, nil
}

// Swap exchanges two clips, as a drag-and-drop onto another clip does.
func (l List) Swap(i, j int) (List, error) {
	if err := l.check(i); err != nil {
		return l, err
	}
	if err := l.check(j); err != nil {
		return l, err
	}
	out := append(List(nil), l...)
	out[i], out[j] = out[j], out[i]
	return out, nil
}

func (l List) Remove(i int) (List, error) {
	if err := l.check(i); err != nil {
		return l, err
	}
	out := make(List, 0, len(l)-1)
	out = append(out, l[:i]...)
	return append(out, l[i+1:]...), nil
}

func (l List) Append(s Segment) (List, error) {
	if err := s.Validate(); err != nil {
		return l, err
	}
	for _, cur := range l {
		if cur.ID == s.ID {
			return l, fmt.Errorf("%w: duplicate id %s", ErrInvalid, s.ID)
		}
	}
	return append(append(List(nil), l...), s), nil
}

func (l List) TotalSeconds() float64 {
	total := 0.0
	for _, s := range l {
		total += s.Seconds
	}
	return total
}

// StartOffset is the playback time at which clip i begins.
func (l List) StartOffset(i int) (float64, error) {
	if err := l.check(i); err != nil {
		return 0, err
	}
	return List(l[:i]).TotalSeconds(), nil
}
