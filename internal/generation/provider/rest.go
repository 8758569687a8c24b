package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RESTVideoProvider talks to job-style video APIs that expose
// POST {base}/videos and GET {base}/videos/{id}.
type RESTVideoProvider struct {
	name    string
	baseURL string
	apiKey  string
	http    *http.Client
}

type RESTConfig struct {
	Name       string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewRESTVideoProvider(cfg RESTConfig) (*RESTVideoProvider, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("rest provider: base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("rest provider: %w", err)
	}
	c := cfg.HTTPClient
	if c == nil {
		c = &http.Client{Timeout: 60 * time.Second}
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "rest"
	}
	return &RESTVideoProvider{name: name, baseURL: base, apiKey: cfg.APIKey, http: c}, nil
}

func (p *RESTVideoProvider) Name() string { return p.name }

type restCreateRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Seconds        string `json:"seconds,omitempty"`
	Size           string `json:"size,omitempty"`
	AspectRatio    string `json:"aspect_ratio,omitempty"`
	InputReference string `json:"input_reference,omitempty"`
}

type restJob struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *RESTVideoProvider) SubmitVideo(ctx context.Context, req VideoRequest) (JobStatus, error) {
	body := restCreateRequest{
		Model:       req.Model,
		Prompt:      req.Prompt,
		Size:        sizeFor(req.AspectRatio),
		AspectRatio: req.AspectRatio,
	}
	if req.Seconds > 0 {
		body.Seconds = strconv.Itoa(req.Seconds)
	}
	if req.Image != nil {
		body.InputReference = req.Image.URL
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return JobStatus{}, err
	}
	var job restJob
	if err := p.do(ctx, http.MethodPost, p.baseURL+"/videos", raw, &job); err != nil {
		return JobStatus{}, err
	}
	return p.decode(job)
}

func (p *RESTVideoProvider) VideoStatus(ctx context.Context, jobID string) (JobStatus, error) {
	if strings.TrimSpace(jobID) == "" {
		return JobStatus{}, NewPermanentError(fmt.Errorf("%w: empty id", ErrUnknownJob))
	}
	var job restJob
	if err := p.do(ctx, http.MethodGet, p.baseURL+"/videos/"+url.PathEscape(jobID), nil, &job); err != nil {
		return JobStatus{}, err
	}
	if job.ID == "" {
		job.ID = jobID
	}
	return p.decode(job)
}

func (p *RESTVideoProvider) Download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	if p.apiKey != "" && strings.HasPrefix(rawURL, p.baseURL) {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	return doDownload(p.http, req)
}

func (p *RESTVideoProvider) decode(job restJob) (JobStatus, error) {
	st := JobStatus{ID: job.ID, Progress: job.Progress}
	switch strings.ToLower(strings.TrimSpace(job.Status)) {
	case "queued", "pending", "submitted":
		st.State = JobQueued
	case "in_progress", "processing", "running":
		st.State = JobRunning
	case "completed", "succeeded", "succeed":
		st.State = JobSucceeded
		st.Progress = 100
		st.VideoURL = p.baseURL + "/videos/" + url.PathEscape(job.ID) + "/content"
	case "failed", "cancelled", "canceled":
		st.State = JobFailed
		if job.Error != nil {
			st.Message = strings.TrimSpace(job.Error.Code + " " + job.Error.Message)
		}
	default:
		return JobStatus{}, NewPermanentError(fmt.Errorf("%s: unknown job status %q", p.name, job.Status))
	}
	if st.ID == "" {
		return JobStatus{}, NewPermanentError(fmt.Errorf("%s: job without id", p.name))
	}
	return st, nil
}

func (p *RESTVideoProvider) do(ctx context.Context, method, u string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		err := fmt.Errorf("%s %s: status %d: %s", method, u, resp.StatusCode, apiMessage(data))
		if resp.StatusCode/100 == 4 && resp.StatusCode != http.StatusTooManyRequests {
			return NewPermanentError(err)
		}
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return NewPermanentError(fmt.Errorf("%s: decode response: %w", p.name, err))
	}
	return nil
}

func apiMessage(body []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func sizeFor(aspect string) string {
	switch aspect {
	case "16:9":
		return "1280x720"
	case "9:16":
		return "720x1280"
	case "1:1":
		return "1024x1024"
	default:
		return ""
	}
}
