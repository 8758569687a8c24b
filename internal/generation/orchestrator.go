package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"storyweave/internal/common/poll"
	"storyweave/internal/generation/provider"
	"storyweave/internal/segment"

	"github.com/google/uuid"
)

// MediaStore persists generated bytes and returns a public URL.
type MediaStore interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

// Fetcher loads the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// NodeWriter appends a node to a narrative graph and returns its id.
type NodeWriter interface {
	CreateNode(ctx context.Context, link, plot string, previousID uint64) (uint64, error)
}

// Orchestrator runs the image -> video -> publish -> createNode pipeline.
type Orchestrator struct {
	Images provider.ImageGenerator
	// Videos is keyed by VideoModel.Provider.
	Videos map[string]provider.VideoGenerator
	Media  MediaStore
	Fetch  Fetcher
	Poll   poll.Policy
	// Upload re-hosts finished videos in Media before they become links.
	Upload bool
}

type ImageInput struct {
	Prompt      string   `json:"prompt"`
	Characters  []string `json:"characters,omitempty"`
	AspectRatio string   `json:"aspectRatio,omitempty"`
	Model       string   `json:"model,omitempty"`
}

type VideoInput struct {
	ImageURL    string `json:"imageUrl"`
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	Seconds     int    `json:"seconds"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

// VideoResult is a finished video job.
type VideoResult struct {
	URL              string `json:"url,omitempty"`
	Provider         string `json:"provider,omitempty"`
	Model            string `json:"model,omitempty"`
	Seconds          int    `json:"seconds,omitempty"`
	RequestedSeconds int    `json:"requestedSeconds,omitempty"`
	JobID            string `json:"jobId,omitempty"`
}

// GenerateImage composites the selected characters when there are any and
// falls back to text-to-image otherwise.
func (o *Orchestrator) GenerateImage(ctx context.Context, in ImageInput) (string, error) {
	if strings.TrimSpace(in.Prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	}
	if o.Images == nil {
		return "", fmt.Errorf("%w: no image provider configured", ErrUnsupportedModel)
	}
	var (
		img provider.Image
		err error
	)
	if len(in.Characters) > 0 {
		refs, ferr := o.references(ctx, in.Characters)
		if ferr != nil {
			return "", ferr
		}
		img, err = o.Images.EditImage(ctx, provider.EditRequest{
			Model:       in.Model,
			Prompt:      in.Prompt,
			References:  refs,
			AspectRatio: in.AspectRatio,
		})
	} else {
		img, err = o.Images.GenerateImage(ctx, provider.ImageRequest{
			Model:       in.Model,
			Prompt:      in.Prompt,
			AspectRatio: in.AspectRatio,
		})
	}
	if err != nil {
		return "", err
	}
	if len(img.Bytes) == 0 {
		if img.URL == "" {
			return "", provider.ErrNoOutput
		}
		return img.URL, nil
	}
	if o.Media == nil {
		return "", errors.New("generation: no media store for inline image")
	}
	url, err := o.Media.Put(ctx, img.Bytes, img.MIMEType)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return url, nil
}

func (o *Orchestrator) references(ctx context.Context, urls []string) ([]provider.Reference, error) {
	refs := make([]provider.Reference, 0, len(urls))
	for _, u := range urls {
		ref := provider.Reference{URL: u}
		if o.Fetch != nil {
			data, mime, err := o.Fetch.Fetch(ctx, u)
			if err != nil {
				return nil, fmt.Errorf("fetch reference %s: %w", u, err)
			}
			ref.Bytes, ref.MIMEType = data, mime
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// GenerateVideo validates the request against the model catalog, submits
// the job and polls it until it is terminal. observe receives every decoded
// job status and may be nil.
func (o *Orchestrator) GenerateVideo(ctx context.Context, in VideoInput, observe func(provider.JobStatus)) (VideoResult, error) {
	m, err := LookupVideoModel(in.Model)
	if err != nil {
		return VideoResult{}, err
	}
	gen, ok := o.Videos[m.Provider]
	if !ok || gen == nil {
		return VideoResult{}, fmt.Errorf("%w: no %s provider configured for %s", ErrUnsupportedModel, m.Provider, m.ID)
	}
	seconds, changed, _ := NormalizeDuration(m.ID, in.Seconds)
	if changed {
		log.Printf("generation: model=%s duration %ds unsupported, using %ds", m.ID, in.Seconds, seconds)
	}
	aspect, err := ValidateAspectRatio(m.ID, in.AspectRatio)
	if err != nil {
		return VideoResult{}, err
	}
	if strings.TrimSpace(in.ImageURL) == "" {
		return VideoResult{}, fmt.Errorf("%w: image is required", ErrInvalidRequest)
	}
	refs, err := o.references(ctx, []string{in.ImageURL})
	if err != nil {
		return VideoResult{}, err
	}

	st, err := gen.SubmitVideo(ctx, provider.VideoRequest{
		Model:       m.ID,
		Prompt:      in.Prompt,
		Image:       &refs[0],
		Seconds:     seconds,
		AspectRatio: aspect,
	})
	if err != nil {
		return VideoResult{}, err
	}
	log.Printf("generation: submitted provider=%s model=%s job=%s seconds=%d", gen.Name(), m.ID, st.ID, seconds)
	if observe != nil {
		observe(st)
	}

	final := st
	if !st.Terminal() {
		final, err = poll.Until(ctx, o.Poll, func(ctx context.Context) (provider.JobStatus, bool, error) {
			cur, err := gen.VideoStatus(ctx, st.ID)
			if err != nil {
				if provider.IsPermanent(err) {
					return cur, false, poll.Stop(err)
				}
				log.Printf("generation: status job=%s: %v", st.ID, err)
				return cur, false, err
			}
			if observe != nil {
				observe(cur)
			}
			return cur, cur.Terminal(), nil
		}, func(s poll.State) {
			if s.Terminal() {
				log.Printf("generation: job=%s poll=%s", st.ID, s)
			}
		})
		if err != nil {
			return VideoResult{}, err
		}
	}
	if final.State == provider.JobFailed {
		return VideoResult{}, fmt.Errorf("%w: %s", ErrJobFailed, final.Message)
	}
	if final.VideoURL == "" {
		return VideoResult{}, fmt.Errorf("%w: job %s finished without a video", ErrJobFailed, final.ID)
	}
	return VideoResult{
		URL:              final.VideoURL,
		Provider:         m.Provider,
		Model:            m.ID,
		Seconds:          seconds,
		RequestedSeconds: in.Seconds,
		JobID:            final.ID,
	}, nil
}

// Publish turns a finished video into the link stored on chain. With Upload
// set the video is copied into Media and the content address is returned.
func (o *Orchestrator) Publish(ctx context.Context, res VideoResult) (string, error) {
	if res.URL == "" {
		return "", fmt.Errorf("%w: no video to publish", ErrInvalidRequest)
	}
	if !o.Upload || o.Media == nil {
		return res.URL, nil
	}
	data, mime, err := o.download(ctx, res)
	if err != nil {
		return "", fmt.Errorf("download video: %w", err)
	}
	if mime == "" {
		mime = "video/mp4"
	}
	link, err := o.Media.Put(ctx, data, mime)
	if err != nil {
		return "", fmt.Errorf("store video: %w", err)
	}
	return link, nil
}

func (o *Orchestrator) download(ctx context.Context, res VideoResult) ([]byte, string, error) {
	if gen, ok := o.Videos[res.Provider]; ok {
		if d, ok := gen.(provider.Downloader); ok {
			data, mime, err := d.Download(ctx, res.URL)
			if !errors.Is(err, provider.ErrUnsupported) {
				return data, mime, err
			}
		}
	}
	if o.Fetch == nil {
		return nil, "", errors.New("no fetcher configured")
	}
	return o.Fetch.Fetch(ctx, res.URL)
}

// Commit publishes the session's video and appends it under the session's
// parent. The session is closed once the node exists; only one commit per
// session can be in flight.
func (o *Orchestrator) Commit(ctx context.Context, sess *Session, nodes NodeWriter, plot string) (id uint64, link string, err error) {
	snap, err := sess.BeginCommit()
	if err != nil {
		return 0, "", err
	}
	defer func() { sess.EndCommit(err) }()

	link, err = o.Publish(ctx, snap.Video)
	if err != nil {
		return 0, "", err
	}
	id, err = nodes.CreateNode(ctx, link, plot, snap.ParentID)
	if err != nil {
		return 0, "", err
	}
	log.Printf("generation: session=%s committed node=%d parent=%d", snap.ID, id, snap.ParentID)
	return id, link, nil
}

// ExportSegment publishes the session's video as a segment of the sequential
// editor instead of a chain node, and closes the session.
func (o *Orchestrator) ExportSegment(ctx context.Context, sess *Session, prompt string) (seg segment.Segment, err error) {
	snap, err := sess.BeginCommit()
	if err != nil {
		return segment.Segment{}, err
	}
	defer func() { sess.EndCommit(err) }()

	link, err := o.Publish(ctx, snap.Video)
	if err != nil {
		return segment.Segment{}, err
	}
	seg = segment.Segment{
		ID:       uuid.NewString(),
		VideoURL: link,
		ImageURL: snap.ImageURL,
		Prompt:   prompt,
		Seconds:  float64(snap.Video.Seconds),
	}
	if err = seg.Validate(); err != nil {
		return segment.Segment{}, err
	}
	return seg, nil
}

// Request is a full pipeline run.
type Request struct {
	Image ImageInput `json:"image"`
	// Video.ImageURL is filled from the image step.
	Video VideoInput `json:"video"`
	Plot  string     `json:"plot"`
}

type Result struct {
	ImageURL string      `json:"imageUrl"`
	Video    VideoResult `json:"video"`
	Link     string      `json:"link"`
	NodeID   uint64      `json:"nodeId"`
}

// Run executes every step in order on sess and stops at the first failure.
// The session is left failed so the caller can restart from the image step.
func (o *Orchestrator) Run(ctx context.Context, sess *Session, nodes NodeWriter, req Request) (Result, error) {
	var res Result
	if err := sess.Begin(StepImage); err != nil {
		return res, err
	}
	imageURL, err := o.GenerateImage(ctx, req.Image)
	sess.FinishImage(imageURL, err)
	if err != nil {
		return res, err
	}
	res.ImageURL = imageURL

	if err := sess.Begin(StepVideo); err != nil {
		return res, err
	}
	in := req.Video
	in.ImageURL = imageURL
	video, err := o.GenerateVideo(ctx, in, sess.ObserveJob)
	sess.FinishVideo(video, err)
	if err != nil {
		return res, err
	}
	res.Video = video

	res.NodeID, res.Link, err = o.Commit(ctx, sess, nodes, req.Plot)
	return res, err
}
