package weavectl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"storyweave/internal/api"
	"storyweave/internal/generation"

	"github.com/spf13/cobra"
)

type generateOptions struct {
	parent     uint64
	prompt     string
	characters []string
	aspect     string
	imageModel string
	motion     string
	model      string
	seconds    int
	plot       string
	export     bool
	timeout    time.Duration
}

func generateCmd(e *env) *cobra.Command {
	var o generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an image and a video, then add them as a scene",
		Long: "Runs the image step, then the video step, then commits the video as a node\n" +
			"under --parent (0 starts a new root). With --export the video is appended to\n" +
			"the local segment list instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			return runGenerate(ctx, e, o, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.Uint64Var(&o.parent, "parent", 0, "Parent node id (0 for a new root)")
	f.StringVar(&o.prompt, "prompt", "", "Image prompt")
	f.StringSliceVar(&o.characters, "character", nil, "Character image URL to composite (repeatable)")
	f.StringVar(&o.aspect, "aspect", "16:9", "Aspect ratio")
	f.StringVar(&o.imageModel, "image-model", "", "Image model (provider default when empty)")
	f.StringVar(&o.motion, "motion", "", "Motion prompt for the video")
	f.StringVar(&o.model, "model", "sora-2", "Video model (see `weavectl models`)")
	f.IntVar(&o.seconds, "seconds", 0, "Video duration; unsupported values use the model default")
	f.StringVar(&o.plot, "plot", "", "Plot text stored on the node")
	f.BoolVar(&o.export, "export", false, "Append to the local segment list instead of committing")
	f.DurationVar(&o.timeout, "timeout", 20*time.Minute, "Overall timeout")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func runGenerate(ctx context.Context, e *env, o generateOptions, w io.Writer) error {
	client := e.client()
	var universeID string
	if !o.export {
		id, err := e.universeID()
		if err != nil {
			return err
		}
		universeID = id
	} else {
		universeID = firstNonEmpty(e.universe, e.profile.Universe, "segments")
	}

	started, err := client.StartSession(ctx, &api.StartSessionRequest{UniverseID: universeID, ParentID: o.parent})
	if err != nil {
		return err
	}
	sessionID := started.Session.ID
	committed := false
	defer func() {
		if !committed {
			_, _ = client.CloseSession(context.WithoutCancel(ctx), &api.SessionRequest{SessionID: sessionID})
		}
	}()
	Subtle.Fprintf(w, "session %s\n", sessionID)

	if _, err := client.GenerateImage(ctx, &api.GenerateImageRequest{
		SessionID: sessionID,
		Image: generation.ImageInput{
			Prompt:      o.prompt,
			Characters:  o.characters,
			AspectRatio: o.aspect,
			Model:       o.imageModel,
		},
	}); err != nil {
		return err
	}
	snap, err := awaitStep(ctx, client, sessionID, w)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s image %s\n", StatusIcon(true), snap.ImageURL)

	if _, err := client.GenerateVideo(ctx, &api.GenerateVideoRequest{
		SessionID: sessionID,
		Video: generation.VideoInput{
			Prompt:      o.motion,
			Model:       o.model,
			Seconds:     o.seconds,
			AspectRatio: o.aspect,
		},
	}); err != nil {
		return err
	}
	snap, err = awaitStep(ctx, client, sessionID, w)
	if err != nil {
		return err
	}
	if o.seconds != 0 && snap.Video.Seconds != o.seconds {
		Info.Fprintf(w, "  duration %ds is not offered by %s, used %ds\n", o.seconds, snap.Video.Model, snap.Video.Seconds)
	}
	fmt.Fprintf(w, "%s video %s\n", StatusIcon(true), snap.VideoURL())

	if o.export {
		res, err := client.ExportSegment(ctx, &api.ExportSegmentRequest{SessionID: sessionID, Prompt: o.motion})
		if err != nil {
			return err
		}
		committed = true
		list, err := loadSegments(e.profile.Segments)
		if err != nil {
			return err
		}
		if list, err = list.Append(res.Segment); err != nil {
			return err
		}
		if err := saveSegments(e.profile.Segments, list); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s segment %s (%d clips)\n", StatusIcon(true), res.Segment.ID, len(list))
		return nil
	}

	res, err := client.Commit(ctx, &api.CommitRequest{SessionID: sessionID, Plot: o.plot})
	if err != nil {
		return err
	}
	committed = true
	fmt.Fprintf(w, "%s node %d %s\n", StatusIcon(true), res.NodeID, Subtle.Sprint(res.Link))
	return nil
}

// awaitStep waits for the running step and turns a failed session into an
// error carrying the provider's message.
func awaitStep(ctx context.Context, client *api.Client, sessionID string, w io.Writer) (generation.Snapshot, error) {
	lastProgress := -1
	for {
		res, err := client.WaitSession(ctx, &api.WaitSessionRequest{SessionID: sessionID, TimeoutMs: 30_000})
		if err != nil {
			return generation.Snapshot{}, err
		}
		snap := res.Session
		switch {
		case snap.Status == generation.StatusFailed:
			return snap, errors.New(snap.Error)
		case snap.Closed:
			return snap, errors.New("session closed")
		case !snap.Status.Busy():
			return snap, nil
		}
		if snap.Progress != lastProgress && snap.JobState != "" {
			Subtle.Fprintf(w, "  %s %s %d%%\n", snap.Status, snap.JobState, snap.Progress)
			lastProgress = snap.Progress
		}
		if err := ctx.Err(); err != nil {
			return snap, err
		}
	}
}
