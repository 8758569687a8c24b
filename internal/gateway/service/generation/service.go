// Package generation keeps the gateway's generation sessions and runs their
// steps in the background.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	gen "storyweave/internal/generation"
	"storyweave/internal/segment"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

var ErrNotFound = errors.New("generation: session not found")

// Writers returns the node writer for a universe.
type Writers func(universeID string) gen.NodeWriter

type Config struct {
	SessionTTL  time.Duration
	MaxSessions int
	// StepTimeout bounds one background step, video polling included.
	StepTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		SessionTTL:  30 * time.Minute,
		MaxSessions: 1024,
		StepTimeout: 15 * time.Minute,
	}
}

type Service struct {
	orch     *gen.Orchestrator
	writers  Writers
	cfg      Config
	sessions *expirable.LRU[string, *gen.Session]
	steps    sync.WaitGroup
}

func New(orch *gen.Orchestrator, writers Writers, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = def.StepTimeout
	}
	s := &Service{orch: orch, writers: writers, cfg: cfg}
	s.sessions = expirable.NewLRU[string, *gen.Session](cfg.MaxSessions, func(id string, sess *gen.Session) {
		sess.Close()
		log.Printf("generation: session=%s released", id)
	}, cfg.SessionTTL)
	return s
}

// Start opens a session that will append under parentID (0 for a new root).
func (s *Service) Start(universeID string, parentID uint64) gen.Snapshot {
	sess := gen.NewSession(uuid.NewString(), strings.TrimSpace(universeID), parentID)
	s.sessions.Add(sess.ID(), sess)
	log.Printf("generation: session=%s universe=%s parent=%d opened", sess.ID(), universeID, parentID)
	return sess.Snapshot()
}

func (s *Service) session(id string) (*gen.Session, error) {
	sess, ok := s.sessions.Get(strings.TrimSpace(id))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// touch extends the session's lifetime after user activity.
func (s *Service) touch(sess *gen.Session) {
	s.sessions.Add(sess.ID(), sess)
}

func (s *Service) Snapshot(id string) (gen.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return gen.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// GenerateImage starts the image step and returns immediately. The outcome
// is published through the session's snapshots.
func (s *Service) GenerateImage(ctx context.Context, id string, in gen.ImageInput) (gen.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return gen.Snapshot{}, err
	}
	if err := sess.Begin(gen.StepImage); err != nil {
		return sess.Snapshot(), err
	}
	s.touch(sess)
	s.background(ctx, sess, "image", func(ctx context.Context) error {
		url, err := s.orch.GenerateImage(ctx, in)
		if !sess.FinishImage(url, err) {
			log.Printf("generation: session=%s image result discarded", sess.ID())
		}
		return err
	})
	return sess.Snapshot(), nil
}

// GenerateVideo starts the video step from the session's image unless the
// input names another one.
func (s *Service) GenerateVideo(ctx context.Context, id string, in gen.VideoInput) (gen.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return gen.Snapshot{}, err
	}
	if strings.TrimSpace(in.ImageURL) == "" {
		in.ImageURL = sess.Snapshot().ImageURL
	}
	if err := sess.Begin(gen.StepVideo); err != nil {
		return sess.Snapshot(), err
	}
	s.touch(sess)
	s.background(ctx, sess, "video", func(ctx context.Context) error {
		res, err := s.orch.GenerateVideo(ctx, in, sess.ObserveJob)
		if !sess.FinishVideo(res, err) {
			log.Printf("generation: session=%s video result discarded", sess.ID())
		}
		return err
	})
	return sess.Snapshot(), nil
}

// background runs one step detached from the request that started it.
// Closing the session does not cancel the step.
func (s *Service) background(ctx context.Context, sess *gen.Session, step string, run func(context.Context) error) {
	s.steps.Add(1)
	go func() {
		defer s.steps.Done()
		stepCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StepTimeout)
		defer cancel()
		started := time.Now()
		if err := run(stepCtx); err != nil {
			log.Printf("generation: session=%s step=%s failed after %s: %v", sess.ID(), step, time.Since(started).Round(time.Millisecond), err)
			return
		}
		log.Printf("generation: session=%s step=%s done in %s", sess.ID(), step, time.Since(started).Round(time.Millisecond))
	}()
}

// Commit publishes the session's video as a node of its universe and
// releases the session.
func (s *Service) Commit(ctx context.Context, id, plot string) (uint64, string, error) {
	sess, err := s.session(id)
	if err != nil {
		return 0, "", err
	}
	if s.writers == nil {
		return 0, "", errors.New("generation: no node writer configured")
	}
	nodeID, link, err := s.orch.Commit(ctx, sess, s.writers(sess.Snapshot().Universe), plot)
	if err != nil {
		return 0, "", err
	}
	s.sessions.Remove(sess.ID())
	return nodeID, link, nil
}

// Export turns the session's video into a segment and releases the session.
func (s *Service) Export(ctx context.Context, id, prompt string) (segment.Segment, error) {
	sess, err := s.session(id)
	if err != nil {
		return segment.Segment{}, err
	}
	seg, err := s.orch.ExportSegment(ctx, sess, prompt)
	if err != nil {
		return segment.Segment{}, err
	}
	s.sessions.Remove(sess.ID())
	return seg, nil
}

// Close discards the session. A running step keeps going and its result is
// dropped.
func (s *Service) Close(id string) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}
	s.sessions.Remove(sess.ID())
	sess.Close()
	return nil
}

// Subscribe streams the session's snapshots until ctx ends or the session
// is closed.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan gen.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return sess.Subscribe(ctx), nil
}

// Await blocks until the session has no step running or timeout elapses and
// returns the latest snapshot either way.
func (s *Service) Await(ctx context.Context, id string, timeout time.Duration) (gen.Snapshot, error) {
	sess, err := s.session(id)
	if err != nil {
		return gen.Snapshot{}, err
	}
	var (
		waitCtx context.Context
		cancel  context.CancelFunc
	)
	if timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		waitCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	last := sess.Snapshot()
	for snap := range sess.Subscribe(waitCtx) {
		last = snap
		if snap.Closed || !snap.Status.Busy() {
			break
		}
	}
	return last, nil
}

func (s *Service) Models() []gen.VideoModel {
	return gen.VideoModels()
}

func (s *Service) Len() int {
	return s.sessions.Len()
}

// Wait blocks until every background step has returned.
func (s *Service) Wait() {
	s.steps.Wait()
}

// Shutdown closes every session and waits for running steps.
func (s *Service) Shutdown(ctx context.Context) error {
	s.sessions.Purge()
	done := make(chan struct{})
	go func() {
		s.steps.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
