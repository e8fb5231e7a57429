package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sanonone/kektorsnb/pkg/engine"
	"github.com/sanonone/kektorsnb/pkg/ops"
)

// Server holds the HTTP interface, the operation dispatcher and the
// underlying engine.
type Server struct {
	Engine     *engine.Engine
	Dispatcher *ops.Dispatcher

	httpServer *http.Server
	handler    http.Handler

	taskManager   *TaskManager
	authToken     string
	loaderBatch   int
	driverWorkers int
}

// Options configures the optional parts of the server.
type Options struct {
	// AuthToken enables bearer token authentication when set.
	AuthToken string
	// Tuning is passed to the dispatcher.
	Tuning ops.Tuning
	// LoaderBatchSize and DriverWorkers are defaults for bulk loads and
	// workload runs started over HTTP.
	LoaderBatchSize int
	DriverWorkers   int
	// EnablePprof mounts the net/http/pprof handlers under /debug/pprof/.
	EnablePprof bool
}

// NewServer initializes the HTTP server using an existing Engine.
// Note: The Engine must be initialized (Open) before passing it here.
func NewServer(eng *engine.Engine, httpAddr string, opts Options) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("server requires an engine")
	}

	s := &Server{
		Engine:        eng,
		Dispatcher:    ops.NewDispatcher(eng, opts.Tuning),
		taskManager:   NewTaskManager(),
		authToken:     opts.AuthToken,
		loaderBatch:   opts.LoaderBatchSize,
		driverWorkers: opts.DriverWorkers,
	}

	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux, opts.EnablePprof)

	// Chain middlewares: Recovery -> Logging -> Auth -> Mux
	// Recovery must be outer-most to catch everything.
	var handler http.Handler = mux
	handler = s.authMiddleware(handler)
	handler = s.LoggingMiddleware(handler)
	handler = s.RecoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("/", handler)

	s.handler = requestIDMiddleware(rootMux)
	s.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the complete handler chain, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Run() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr, "auth", s.authToken != "")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and cancels background tasks.
// It does NOT close the Engine (main.go handles that for proper lifecycle management).
func (s *Server) Shutdown() {
	slog.Info("Starting graceful shutdown of HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}
	s.taskManager.Stop()
}
