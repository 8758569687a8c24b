package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	genai "google.golang.org/genai"
)

const (
	DefaultGeminiImageModel = "imagen-4.0-generate-001"
	DefaultGeminiEditModel  = "gemini-2.5-flash-image"
	DefaultGeminiJobTTL     = 30 * time.Minute

	maxGeminiJobs = 512
)

// GeminiProvider serves Imagen stills, Gemini image edits and Veo videos
// from one genai client.
type GeminiProvider struct {
	cli        *genai.Client
	apiKey     string
	imageModel string
	editModel  string
	httpClient *http.Client

	// running Veo operations by name; jobs nobody polls to completion age out
	ops *expirable.LRU[string, *genai.GenerateVideosOperation]
}

type GeminiConfig struct {
	APIKey     string
	ImageModel string
	EditModel  string
	HTTPClient *http.Client
	// JobTTL bounds how long an unfinished video operation is remembered.
	JobTTL time.Duration
}

func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	p := &GeminiProvider{
		cli:        cli,
		apiKey:     cfg.APIKey,
		imageModel: strings.TrimSpace(cfg.ImageModel),
		editModel:  strings.TrimSpace(cfg.EditModel),
		httpClient: cfg.HTTPClient,
		ops:        newVideoOps(cfg.JobTTL),
	}
	if p.imageModel == "" {
		p.imageModel = DefaultGeminiImageModel
	}
	if p.editModel == "" {
		p.editModel = DefaultGeminiEditModel
	}
	if p.httpClient == nil {
		p.httpClient = http.DefaultClient
	}
	return p, nil
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) GenerateImage(ctx context.Context, req ImageRequest) (Image, error) {
	model := firstNonEmpty(req.Model, g.imageModel)
	resp, err := g.cli.Models.GenerateImages(ctx, model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages:   1,
		AspectRatio:      req.AspectRatio,
		IncludeRAIReason: true,
	})
	if err != nil {
		return Image{}, err
	}
	return imageFromGenerated(resp)
}

// EditImage asks a Gemini image model to composite the references into one
// scene. The first inline image part of the first candidate is the result.
func (g *GeminiProvider) EditImage(ctx context.Context, req EditRequest) (Image, error) {
	model := firstNonEmpty(req.Model, g.editModel)
	prompt := req.Prompt
	if req.AspectRatio != "" {
		prompt += "\nAspect ratio: " + req.AspectRatio
	}
	parts := []*genai.Part{{Text: prompt}}
	for i, ref := range req.References {
		if len(ref.Bytes) == 0 {
			return Image{}, NewPermanentError(fmt.Errorf("reference %d has no image data", i))
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: ref.Bytes, MIMEType: mimeOr(ref.MIMEType, "image/png")}})
	}
	resp, err := g.cli.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		&genai.GenerateContentConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	)
	if err != nil {
		return Image{}, err
	}
	return imageFromContent(resp)
}

func (g *GeminiProvider) SubmitVideo(ctx context.Context, req VideoRequest) (JobStatus, error) {
	var img *genai.Image
	if req.Image != nil && len(req.Image.Bytes) > 0 {
		img = &genai.Image{ImageBytes: req.Image.Bytes, MIMEType: mimeOr(req.Image.MIMEType, "image/png")}
	}
	cfg := &genai.GenerateVideosConfig{NumberOfVideos: 1, AspectRatio: req.AspectRatio}
	if req.Seconds > 0 {
		d := int32(req.Seconds)
		cfg.DurationSeconds = &d
	}
	op, err := g.cli.Models.GenerateVideos(ctx, req.Model, req.Prompt, img, cfg)
	if err != nil {
		return JobStatus{}, err
	}
	if op.Name == "" {
		return JobStatus{}, NewPermanentError(errors.New("video operation has no name"))
	}
	g.track(op)
	return statusFromOperation(op), nil
}

func (g *GeminiProvider) VideoStatus(ctx context.Context, jobID string) (JobStatus, error) {
	op, ok := g.ops.Get(jobID)
	if !ok {
		return JobStatus{}, NewPermanentError(fmt.Errorf("%w: %s", ErrUnknownJob, jobID))
	}
	next, err := g.cli.Operations.GetVideosOperation(ctx, op, nil)
	if err != nil {
		return JobStatus{}, err
	}
	g.track(next)
	return statusFromOperation(next), nil
}

func newVideoOps(ttl time.Duration) *expirable.LRU[string, *genai.GenerateVideosOperation] {
	if ttl <= 0 {
		ttl = DefaultGeminiJobTTL
	}
	return expirable.NewLRU[string, *genai.GenerateVideosOperation](maxGeminiJobs, nil, ttl)
}

// track remembers op while it is running and forgets it once done.
func (g *GeminiProvider) track(op *genai.GenerateVideosOperation) {
	if op == nil || op.Name == "" {
		return
	}
	if op.Done {
		g.ops.Remove(op.Name)
		return
	}
	g.ops.Add(op.Name, op)
}

// Download fetches a Veo result URI, which requires the API key.
func (g *GeminiProvider) Download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("x-goog-api-key", g.apiKey)
	return doDownload(g.httpClient, req)
}

func imageFromGenerated(resp *genai.GenerateImagesResponse) (Image, error) {
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return Image{}, NewPermanentError(ErrNoOutput)
	}
	gen := resp.GeneratedImages[0]
	if gen == nil || gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
		if gen != nil && gen.RAIFilteredReason != "" {
			return Image{}, NewPermanentError(fmt.Errorf("%w: %s", ErrNoOutput, gen.RAIFilteredReason))
		}
		return Image{}, NewPermanentError(ErrNoOutput)
	}
	return Image{Bytes: gen.Image.ImageBytes, MIMEType: mimeOr(gen.Image.MIMEType, "image/png")}, nil
}

func imageFromContent(resp *genai.GenerateContentResponse) (Image, error) {
	if resp == nil {
		return Image{}, NewPermanentError(ErrNoOutput)
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if mt := part.InlineData.MIMEType; mt != "" && !strings.HasPrefix(mt, "image/") {
				continue
			}
			return Image{Bytes: part.InlineData.Data, MIMEType: mimeOr(part.InlineData.MIMEType, "image/png")}, nil
		}
	}
	return Image{}, NewPermanentError(ErrNoOutput)
}

func statusFromOperation(op *genai.GenerateVideosOperation) JobStatus {
	st := JobStatus{ID: op.Name, State: JobRunning}
	if !op.Done {
		return st
	}
	if op.Error != nil {
		st.State = JobFailed
		st.Message = operationMessage(op.Error)
		return st
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 ||
		op.Response.GeneratedVideos[0] == nil || op.Response.GeneratedVideos[0].Video == nil ||
		op.Response.GeneratedVideos[0].Video.URI == "" {
		st.State = JobFailed
		st.Message = "no video returned"
		if op.Response != nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
			st.Message = strings.Join(op.Response.RAIMediaFilteredReasons, "; ")
		}
		return st
	}
	st.State = JobSucceeded
	st.Progress = 100
	st.VideoURL = op.Response.GeneratedVideos[0].Video.URI
	return st
}

func operationMessage(e map[string]any) string {
	if msg, ok := e["message"].(string); ok && msg != "" {
		return msg
	}
	return fmt.Sprintf("%v", e)
}

func doDownload(c *http.Client, req *http.Request) ([]byte, string, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("download %s: status %d: %s", req.URL, resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode/100 == 4 {
			return nil, "", NewPermanentError(err)
		}
		return nil, "", err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func mimeOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
