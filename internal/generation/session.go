package generation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storyweave/internal/generation/provider"
)

type Status string

const (
	StatusIdle            Status = "idle"
	StatusGeneratingImage Status = "generating-image"
	StatusImageReady      Status = "image-ready"
	StatusGeneratingVideo Status = "generating-video"
	StatusVideoReady      Status = "video-ready"
	StatusCommitting      Status = "committing"
	StatusFailed          Status = "failed"
)

// Busy reports whether a provider call or a commit is in flight.
func (s Status) Busy() bool {
	return s == StatusGeneratingImage || s == StatusGeneratingVideo || s == StatusCommitting
}

type Step string

const (
	StepImage Step = "image"
	StepVideo Step = "video"
)

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID        string      `json:"id"`
	Universe  string      `json:"universe,omitempty"`
	ParentID  uint64      `json:"parentId"`
	Status    Status      `json:"status"`
	ImageURL  string      `json:"imageUrl,omitempty"`
	Video     VideoResult `json:"video"`
	Error     string      `json:"error,omitempty"`
	JobState  string      `json:"jobState,omitempty"`
	Progress  int         `json:"progress,omitempty"`
	Closed    bool        `json:"closed"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func (s Snapshot) VideoURL() string { return s.Video.URL }

// Session tracks one "add scene" flow. Steps are serialized: a new step is
// rejected while another is running, and a failed session only accepts a
// restart from the image step.
type Session struct {
	mu        sync.Mutex
	id        string
	universe  string
	parentID  uint64
	status    Status
	imageURL  string
	video     VideoResult
	errMsg    string
	jobState  string
	progress  int
	closed    bool
	changed   chan struct{}
	updatedAt time.Time
}

func NewSession(id, universe string, parentID uint64) *Session {
	return &Session{
		id:        id,
		universe:  universe,
		parentID:  parentID,
		status:    StatusIdle,
		changed:   make(chan struct{}),
		updatedAt: time.Now(),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:        s.id,
		Universe:  s.universe,
		ParentID:  s.parentID,
		Status:    s.status,
		ImageURL:  s.imageURL,
		Video:     s.video,
		Error:     s.errMsg,
		JobState:  s.jobState,
		Progress:  s.progress,
		Closed:    s.closed,
		UpdatedAt: s.updatedAt,
	}
}

// Begin marks step as in flight. Starting the image step clears every
// earlier result; starting the video step clears only the previous video.
func (s *Session) Begin(step Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.status.Busy() {
		return fmt.Errorf("%w: %s", ErrBusy, s.status)
	}
	switch step {
	case StepImage:
		s.imageURL = ""
		s.video = VideoResult{}
		s.status = StatusGeneratingImage
	case StepVideo:
		if s.status != StatusImageReady && s.status != StatusVideoReady {
			return fmt.Errorf("%w: video from %s", ErrInvalidTransition, s.status)
		}
		s.video = VideoResult{}
		s.jobState, s.progress = "", 0
		s.status = StatusGeneratingVideo
	default:
		return fmt.Errorf("%w: unknown step %q", ErrInvalidTransition, step)
	}
	s.errMsg = ""
	s.notifyLocked()
	return nil
}

// FinishImage records the outcome of the image step. It returns false when
// the session was closed meanwhile and the result was discarded.
func (s *Session) FinishImage(url string, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != StatusGeneratingImage {
		return false
	}
	if err != nil {
		s.failLocked(err)
		return true
	}
	s.imageURL = url
	s.status = StatusImageReady
	s.notifyLocked()
	return true
}

// FinishVideo records the outcome of the video step, see FinishImage.
func (s *Session) FinishVideo(res VideoResult, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != StatusGeneratingVideo {
		return false
	}
	if err != nil {
		s.failLocked(err)
		return true
	}
	s.video = res
	s.status = StatusVideoReady
	s.notifyLocked()
	return true
}

// ObserveJob records the provider job state of the running video step.
func (s *Session) ObserveJob(st provider.JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.status != StatusGeneratingVideo {
		return
	}
	if s.jobState == string(st.State) && s.progress == st.Progress {
		return
	}
	s.jobState, s.progress = string(st.State), st.Progress
	s.notifyLocked()
}

func (s *Session) failLocked(err error) {
	s.status = StatusFailed
	s.errMsg = err.Error()
	s.notifyLocked()
}

// BeginCommit claims the finished video for a single commit or export.
// Until EndCommit, every other step and claim fails with ErrBusy.
func (s *Session) BeginCommit() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrClosed
	}
	if s.status.Busy() {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrBusy, s.status)
	}
	if s.status != StatusVideoReady {
		return Snapshot{}, fmt.Errorf("%w: commit from %s", ErrInvalidTransition, s.status)
	}
	s.status = StatusCommitting
	s.notifyLocked()
	return s.snapshotLocked(), nil
}

// EndCommit releases the claim. A successful commit closes the session, a
// failed one hands the video back so the commit can be retried.
func (s *Session) EndCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusCommitting {
		return
	}
	if err != nil {
		s.status = StatusVideoReady
		s.errMsg = err.Error()
		s.notifyLocked()
		return
	}
	s.status = StatusVideoReady
	s.errMsg = ""
	s.closed = true
	s.notifyLocked()
}

// Close ends the session. In-flight results arriving later are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.notifyLocked()
}

func (s *Session) notifyLocked() {
	s.updatedAt = time.Now()
	close(s.changed)
	s.changed = make(chan struct{})
}

// Subscribe emits a snapshot now and after every change until ctx is done
// or the session closes. A slow reader only sees the latest snapshot.
func (s *Session) Subscribe(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 4)
	go func() {
		defer close(out)
		for {
			s.mu.Lock()
			snap := s.snapshotLocked()
			ch := s.changed
			s.mu.Unlock()

			pushSnapshot(out, snap)
			if snap.Closed {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ch:
			}
		}
	}()
	return out
}

func pushSnapshot(out chan Snapshot, snap Snapshot) {
	select {
	case out <- snap:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- snap:
	default:
	}
}
