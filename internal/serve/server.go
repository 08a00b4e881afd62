package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/sitepipe/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepipe/internal/logfields"
)

// State is the server lifecycle: Idle → Serving → Stopped.
type State int

const (
	StateIdle State = iota
	StateServing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateServing:
		return "serving"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Options configures the HTTP server.
type Options struct {
	Addr string
	// Dir is the directory served at "/".
	Dir        string
	LiveReload bool
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// Server serves the output directory with optional live reload.
type Server struct {
	opts Options
	hub  *Hub

	mu    sync.Mutex
	state State
	srv   *http.Server
	addr  string
	errCh chan error
}

// NewServer creates an idle server. hub may be nil when live reload is off.
func NewServer(opts Options, hub *Hub) *Server {
	return &Server{opts: opts, hub: hub, errCh: make(chan error, 1)}
}

// Handler returns the server's routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	files := http.FileServer(http.Dir(s.opts.Dir))
	if s.opts.LiveReload && s.hub != nil {
		mux.Handle("/", injectLiveReload(files))
		mux.Handle("/livereload", s.hub)
		mux.HandleFunc("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			if _, err := w.Write([]byte(LiveReloadScript)); err != nil {
				slog.Error("failed to write livereload script", logfields.Error(err))
			}
		})
	} else {
		mux.Handle("/", files)
	}
	if s.opts.Metrics != nil {
		mux.Handle("/metrics", s.opts.Metrics)
	}
	return mux
}

// Start binds the listener and begins serving in the background. A bind
// failure (for example, the port is already in use) is returned immediately;
// there is no fallback port.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return ferrors.ServeError("server already started").WithContext("state", s.state.String()).Build()
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryServe, "failed to bind server address").
			WithSeverity(ferrors.SeverityFatal).
			WithContext("addr", s.opts.Addr).
			Build()
	}
	s.addr = ln.Addr().String()

	// No write timeout: live reload streams stay open.
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}
	s.state = StateServing
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", logfields.Error(err))
			s.errCh <- err
		}
	}()

	slog.Info("Serving output directory", logfields.Addr(s.addr), "dir", s.opts.Dir, "live_reload", s.opts.LiveReload)
	return nil
}

// Errors delivers errors that stop the server after Start succeeded.
func (s *Server) Errors() <-chan error { return s.errCh }

// Addr returns the bound address once serving.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// URL returns the http URL of the bound address.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s", s.Addr())
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop closes live reload clients and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateServing {
		s.state = StateStopped
		return nil
	}
	s.state = StateStopped
	if s.hub != nil {
		s.hub.Shutdown()
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("Server stopped", logfields.Addr(s.addr))
	return nil
}
