package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/blueprint-parser/internal/config"
	"github.com/ironsheep/blueprint-parser/internal/queue"
	"github.com/ironsheep/blueprint-parser/internal/storage"
)

// Server is the HTTP front end of the parser.
type Server struct {
	queue *queue.Queue
	store *storage.Store
	cfg   atomic.Pointer[config.Config]
	log   zerolog.Logger
	mux   *http.ServeMux
}

// New creates a Server that submits work to q. A nil store disables the
// /blueprints routes and upload persistence.
func New(q *queue.Queue, store *storage.Store, cfg *config.Config, logger zerolog.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		queue: q,
		store: store,
		log:   logger.With().Str("component", "http").Logger(),
		mux:   http.NewServeMux(),
	}
	s.cfg.Store(cfg)

	s.mux.HandleFunc("POST /parseBlueprint", s.parseBlueprint)
	s.mux.HandleFunc("GET /status", s.status)
	s.mux.HandleFunc("GET /stats", s.stats)
	s.mux.HandleFunc("GET /blueprints/{id}", s.getUpload)
	s.mux.HandleFunc("GET /blueprints/{id}/color", s.getColor)
	s.mux.HandleFunc("POST /blueprints/{id}/parse", s.reparse)
	s.mux.HandleFunc("DELETE /blueprints/{id}", s.deleteUpload)
	s.mux.HandleFunc("/", notFound)

	return s
}

// Config returns the configuration currently applied to requests.
func (s *Server) Config() *config.Config {
	return s.cfg.Load()
}

// SetConfig replaces the configuration used for request defaults and body
// limits. Requests already in flight keep the configuration they started
// with. Listen address and timeouts only take effect on the next Serve.
func (s *Server) SetConfig(cfg *config.Config) {
	if cfg != nil {
		s.cfg.Store(cfg)
	}
}

// ServeHTTP wraps the routes with the access log.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	begin := time.Now()
	s.mux.ServeHTTP(rec, r)

	ev := s.log.Info()
	if rec.status >= http.StatusInternalServerError {
		ev = s.log.Warn()
	}
	ev.Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", rec.status).
		Int64("bytes", rec.written).
		Dur("elapsed", time.Since(begin)).
		Msg("request")
}

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully within the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Config().Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	cfg := s.Config().Server
	srv := &http.Server{
		Handler:      s,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(p)
	r.written += int64(n)
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
