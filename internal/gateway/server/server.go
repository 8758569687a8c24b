package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Options tune the listener. Zero fields take the defaults below.
type Options struct {
	ReadHeaderTimeout    time.Duration
	IdleTimeout          time.Duration
	MaxConcurrentStreams uint32
	// ShutdownGrace caps Shutdown when the caller's context has no deadline.
	ShutdownGrace time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReadHeaderTimeout <= 0 {
		o.ReadHeaderTimeout = 10 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 2 * time.Minute
	}
	if o.MaxConcurrentStreams == 0 {
		o.MaxConcurrentStreams = 250
	}
	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = 30 * time.Second
	}
	return o
}

// Server serves connect-go over HTTP/1.1 and cleartext HTTP/2, so server
// streams work without TLS in front.
type Server struct {
	httpServer *http.Server
	grace      time.Duration
}

func New(addr string, handler http.Handler, opts Options) *Server {
	opts = opts.withDefaults()
	h2 := &http2.Server{
		MaxConcurrentStreams: opts.MaxConcurrentStreams,
		IdleTimeout:          opts.IdleTimeout,
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           h2c.NewHandler(handler, h2),
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
			IdleTimeout:       opts.IdleTimeout,
		},
		grace: opts.ShutdownGrace,
	}
}

func (s *Server) Addr() string { return s.httpServer.Addr }

// Grace is the shutdown budget the server was configured with.
func (s *Server) Grace() time.Duration { return s.grace }

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	log.Printf("server: listening addr=%s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains open requests. Without a deadline on ctx it waits at most
// the configured grace.
func (s *Server) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.grace)
		defer cancel()
	}
	return s.httpServer.Shutdown(ctx)
}
