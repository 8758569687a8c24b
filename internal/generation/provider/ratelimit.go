package provider

import (
	"context"
	"time"
)

// Limiter is a token bucket allowing at most rps submissions per second with
// a burst capacity. A nil *Limiter never blocks.
type Limiter struct {
	tokens chan struct{}
	stopCh chan struct{}
}

// NewLimiter returns nil when rps <= 0.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	l := &Limiter{
		tokens: make(chan struct{}, burst),
		stopCh: make(chan struct{}),
	}
	for i := 0; i < burst; i++ {
		l.tokens <- struct{}{}
	}
	period := time.Duration(float64(time.Second) / rps)
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case l.tokens <- struct{}{}:
				default:
				}
			case <-l.stopCh:
				return
			}
		}
	}()
	return l
}

// Acquire blocks until a token is available or the context is canceled.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopCh:
		return context.Canceled
	case <-l.tokens:
		return nil
	}
}

func (l *Limiter) Stop() {
	if l == nil {
		return
	}
	close(l.stopCh)
}

// LimitImages throttles image calls through l.
func LimitImages(next ImageGenerator, l *Limiter) ImageGenerator {
	if l == nil {
		return next
	}
	return &limitedImages{next: next, rl: l}
}

type limitedImages struct {
	next ImageGenerator
	rl   *Limiter
}

func (c *limitedImages) GenerateImage(ctx context.Context, req ImageRequest) (Image, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return Image{}, err
	}
	return c.next.GenerateImage(ctx, req)
}

func (c *limitedImages) EditImage(ctx context.Context, req EditRequest) (Image, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return Image{}, err
	}
	return c.next.EditImage(ctx, req)
}

// LimitVideos throttles job submissions through l. Status lookups are not
// throttled; the poll interval already spaces them.
func LimitVideos(next VideoGenerator, l *Limiter) VideoGenerator {
	if l == nil {
		return next
	}
	return &limitedVideos{next: next, rl: l}
}

type limitedVideos struct {
	next VideoGenerator
	rl   *Limiter
}

func (c *limitedVideos) Name() string { return c.next.Name() }

func (c *limitedVideos) SubmitVideo(ctx context.Context, req VideoRequest) (JobStatus, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return JobStatus{}, err
	}
	return c.next.SubmitVideo(ctx, req)
}

func (c *limitedVideos) VideoStatus(ctx context.Context, jobID string) (JobStatus, error) {
	return c.next.VideoStatus(ctx, jobID)
}

// Download forwards to the wrapped provider when it needs credentials.
func (c *limitedVideos) Download(ctx context.Context, url string) ([]byte, string, error) {
	if d, ok := c.next.(Downloader); ok {
		return d.Download(ctx, url)
	}
	return nil, "", ErrUnsupported
}
