package weavectl

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"storyweave/internal/segment"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func loadSegments(path string) (segment.List, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return segment.List{}, nil
	}
	if err != nil {
		return nil, err
	}
	var list segment.List
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return list, nil
}

func saveSegments(path string, list segment.List) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func intArgs(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%q is not an index", a)
		}
		out[i] = v
	}
	return out, nil
}

func segmentsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "segments",
		Aliases: []string{"seg"},
		Short:   "Edit the local clip list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSegments(cmd, e)
		},
	}

	// edit loads the list, applies fn and saves the result.
	edit := func(use, short string, nargs int, fn func(segment.List, []int) (segment.List, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(nargs),
			RunE: func(cmd *cobra.Command, args []string) error {
				idx, err := intArgs(args)
				if err != nil {
					return err
				}
				list, err := loadSegments(e.profile.Segments)
				if err != nil {
					return err
				}
				next, err := fn(list, idx)
				if err != nil {
					return err
				}
				if err := saveSegments(e.profile.Segments, next); err != nil {
					return err
				}
				return listSegments(cmd, e)
			},
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List clips with their start offsets",
			RunE: func(cmd *cobra.Command, args []string) error {
				return listSegments(cmd, e)
			},
		},
		segmentAddCmd(e),
		edit("move <from> <to>", "Move a clip to another position", 2, func(l segment.List, i []int) (segment.List, error) {
			return l.Move(i[0], i[1])
		}),
		edit("swap <i> <j>", "Swap two clips", 2, func(l segment.List, i []int) (segment.List, error) {
			return l.Swap(i[0], i[1])
		}),
		edit("rm <index>", "Remove a clip", 1, func(l segment.List, i []int) (segment.List, error) {
			return l.Remove(i[0])
		}),
		segmentPlayCmd(e),
	)
	return cmd
}

func listSegments(cmd *cobra.Command, e *env) error {
	list, err := loadSegments(e.profile.Segments)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(list))
	for i, s := range list {
		start, _ := list.StartOffset(i)
		rows = append(rows, []string{strconv.Itoa(i), s.ID, fmt.Sprintf("%.1fs", start), fmt.Sprintf("%.1fs", s.Seconds), s.VideoURL})
	}
	w := cmd.OutOrStdout()
	Table(w, []string{"#", "ID", "START", "LENGTH", "VIDEO"}, rows)
	fmt.Fprintf(w, "%s %.1fs\n", Subtle.Sprint("total"), list.TotalSeconds())
	return nil
}

func segmentAddCmd(e *env) *cobra.Command {
	var s segment.Segment
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a clip",
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.ID == "" {
				s.ID = uuid.NewString()
			}
			list, err := loadSegments(e.profile.Segments)
			if err != nil {
				return err
			}
			if list, err = list.Append(s); err != nil {
				return err
			}
			if err := saveSegments(e.profile.Segments, list); err != nil {
				return err
			}
			return listSegments(cmd, e)
		},
	}
	cmd.Flags().StringVar(&s.ID, "id", "", "Clip id (generated when empty)")
	cmd.Flags().StringVar(&s.VideoURL, "video", "", "Video URL")
	cmd.Flags().StringVar(&s.ImageURL, "image", "", "Still image URL")
	cmd.Flags().StringVar(&s.Prompt, "prompt", "", "Prompt the clip was made from")
	cmd.Flags().Float64Var(&s.Seconds, "seconds", 0, "Clip length in seconds")
	_ = cmd.MarkFlagRequired("video")
	return cmd
}

// segmentPlayCmd prints the order in which the player visits the clips.
func segmentPlayCmd(e *env) *cobra.Command {
	var from int
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Print the playback sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := loadSegments(e.profile.Segments)
			if err != nil {
				return err
			}
			p := segment.NewPlayer(list)
			if len(list) > 0 {
				if err := p.Seek(from); err != nil {
					return err
				}
			}
			p.Play()
			w := cmd.OutOrStdout()
			for {
				cur, ok := p.Current()
				if !ok {
					break
				}
				start, _ := list.StartOffset(p.Index())
				fmt.Fprintf(w, "%s %6.1fs  %s\n", Info.Sprint("▶"), start, cur.VideoURL)
				if !p.Ended() {
					break
				}
			}
			Subtle.Fprintf(w, "%s\n", p.State())
			return nil
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "Start at this clip")
	return cmd
}
