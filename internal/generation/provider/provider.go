// Package provider adapts third-party image and video generation APIs. Every
// provider decodes its own wire format at this boundary into Image and
// JobStatus; callers never see provider-specific shapes.
package provider

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoOutput    = errors.New("provider: response carried no media")
	ErrUnknownJob  = errors.New("provider: unknown job")
	ErrUnsupported = errors.New("provider: operation not supported")
)

// PermanentError indicates an error that will not resolve by asking again.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}

// Image is a generated still. Bytes is set when the provider returns inline
// data, URL when it returns a hosted location.
type Image struct {
	Bytes    []byte
	MIMEType string
	URL      string
}

// Reference is an input image. Providers use Bytes when present and fall
// back to URL.
type Reference struct {
	URL      string
	Bytes    []byte
	MIMEType string
}

type ImageRequest struct {
	Model       string
	Prompt      string
	AspectRatio string
}

// EditRequest composites the references into a new scene described by Prompt.
type EditRequest struct {
	Model       string
	Prompt      string
	References  []Reference
	AspectRatio string
}

type VideoRequest struct {
	Model       string
	Prompt      string
	Image       *Reference
	Seconds     int
	AspectRatio string
}

type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
)

// JobStatus is the decoded state of an asynchronous video job.
type JobStatus struct {
	ID       string
	State    JobState
	VideoURL string
	Progress int
	Message  string
}

func (s JobStatus) Terminal() bool {
	return s.State == JobSucceeded || s.State == JobFailed
}

// Err returns the failure of a failed job.
func (s JobStatus) Err() error {
	if s.State != JobFailed {
		return nil
	}
	msg := s.Message
	if msg == "" {
		msg = "video generation failed"
	}
	return fmt.Errorf("job %s: %s", s.ID, msg)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (Image, error)
	EditImage(ctx context.Context, req EditRequest) (Image, error)
}

type VideoGenerator interface {
	Name() string
	SubmitVideo(ctx context.Context, req VideoRequest) (JobStatus, error)
	VideoStatus(ctx context.Context, jobID string) (JobStatus, error)
}

// Downloader is implemented by providers whose result URLs need credentials.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, string, error)
}
