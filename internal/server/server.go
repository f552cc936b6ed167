// Package server hosts the visualization: the canvas page, the websocket
// stream and read-only JSON and SVG snapshots of the running engine.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/conneroisu/techviz/internal/config"
	"github.com/conneroisu/techviz/internal/engine"
	vizerrors "github.com/conneroisu/techviz/internal/errors"
	"github.com/conneroisu/techviz/internal/logging"
	"github.com/conneroisu/techviz/internal/middleware"
	"github.com/conneroisu/techviz/internal/topology"
	"github.com/conneroisu/techviz/internal/watcher"
	"github.com/conneroisu/techviz/internal/websocket"
)

// Server wires the engine to the websocket hub and HTTP routes.
type Server struct {
	config  *config.Config
	engine  *engine.Engine
	hub     *websocket.Hub
	watcher *watcher.LayoutWatcher
	logger  logging.Logger
	handler http.Handler
	started time.Time

	serverMutex sync.RWMutex
	httpServer  *http.Server
	isShutdown  bool

	shutdownOnce sync.Once
}

// Option customises a Server.
type Option func(*serverOptions)

type serverOptions struct {
	tracer        trace.Tracer
	engineOptions []engine.Option
}

// WithTracer sets the tracer used for frame spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *serverOptions) { o.tracer = tracer }
}

// WithEngineOptions passes extra options to the engine, e.g. a test ticker.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *serverOptions) { o.engineOptions = append(o.engineOptions, opts...) }
}

// New builds the hub, engine and routes for cfg. The layout comes from
// cfg.Layout.Path, or the built-in layout when the path is empty.
func New(cfg *config.Config, logger logging.Logger, options ...Option) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	var so serverOptions
	for _, opt := range options {
		opt(&so)
	}

	layout, err := cfg.LoadLayout()
	if err != nil {
		return nil, fmt.Errorf("load layout: %w", err)
	}

	hub := websocket.NewHub(websocket.AllowList{
		Origins:       cfg.Server.AllowedOrigins,
		AllowLoopback: true,
	}, websocket.DefaultOptions(), logger)

	engineOpts := []engine.Option{
		engine.WithInputSource(hub),
		engine.WithSink(hub),
		engine.WithLogger(logger),
	}
	if so.tracer != nil {
		engineOpts = append(engineOpts, engine.WithTracer(so.tracer))
	}
	engineOpts = append(engineOpts, so.engineOptions...)

	eng, err := engine.New(layout, cfg.EngineOptions(), engineOpts...)
	if err != nil {
		_ = hub.Shutdown(context.Background())
		return nil, fmt.Errorf("create engine: %w", err)
	}

	s := &Server{
		config:  cfg,
		engine:  eng,
		hub:     hub,
		logger:  logger.WithComponent("server"),
		started: time.Now(),
	}

	if cfg.Layout.Watch && cfg.Layout.Path != "" {
		lw, err := watcher.NewLayoutWatcher(cfg.Layout.Path, cfg.Layout.Debounce, s.reloadLayout, logger)
		if err != nil {
			_ = hub.Shutdown(context.Background())
			return nil, fmt.Errorf("create layout watcher: %w", err)
		}
		s.watcher = lw
	}

	s.handler = s.routes()
	return s, nil
}

// Engine returns the engine behind the server.
func (s *Server) Engine() *engine.Engine {
	return s.engine
}

// Hub returns the websocket hub.
func (s *Server) Hub() *websocket.Hub {
	return s.hub
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/frame", s.handleFrame)
	mux.HandleFunc("/api/topology", s.handleTopology)
	mux.HandleFunc("/snapshot.svg", s.handleSnapshot)

	return middleware.Standard(s.logger).Then(mux)
}

func (s *Server) reloadLayout(layout topology.Layout) error {
	return s.engine.Reset(layout)
}

// Start starts the engine and the layout watcher, then serves on the
// configured address until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return vizerrors.NewNetworkError("ERR_LISTEN", "failed to listen", err).
			WithContext("addr", s.config.Addr())
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.serverMutex.Lock()
	if s.isShutdown {
		s.serverMutex.Unlock()
		_ = ln.Close()
		return http.ErrServerClosed
	}
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	if err := s.engine.Start(ctx); err != nil {
		return err
	}
	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			s.logger.Warn(ctx, err, "Layout watcher disabled", "path", s.config.Layout.Path)
		}
	}

	s.logger.Info(ctx, "Serving techviz", "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, closes websocket clients, stops the
// watcher and the engine. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.serverMutex.Lock()
		s.isShutdown = true
		server := s.httpServer
		s.serverMutex.Unlock()

		// Hijacked websocket connections are not tracked by http.Server, so
		// the hub closes them first.
		if err := s.hub.Shutdown(ctx); err != nil {
			shutdownErr = err
		}
		if server != nil {
			if err := server.Shutdown(ctx); err != nil && shutdownErr == nil {
				shutdownErr = err
			}
		}
		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil && shutdownErr == nil {
				shutdownErr = err
			}
		}
		s.engine.Stop()
	})
	return shutdownErr
}
