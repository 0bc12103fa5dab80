// Package server exposes validation over HTTP.
//
// Clients upload a workbook or CSV file and receive the validation report as
// JSON. The rule dictionary is loaded at startup and can be reloaded when the
// rule file changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapcheck/internal/engine"
	"github.com/leapstack-labs/leapcheck/internal/source"
	"github.com/leapstack-labs/leapcheck/internal/state"
	"github.com/leapstack-labs/leapcheck/internal/watch"
	"github.com/leapstack-labs/leapcheck/pkg/core"
)

// DefaultMaxUploadBytes bounds an uploaded file when Config leaves it unset.
const DefaultMaxUploadBytes = 32 << 20

// Config holds configuration for the server.
type Config struct {
	Addr string

	// RulesPath is the rule source loaded at startup and on Reload.
	RulesPath string
	// Sentinel is the required-without-enumeration marker.
	Sentinel string

	GroupKey      string
	GroupFields   []string
	Workers       int
	KeepBlankRows bool

	// Source supplies defaults for uploads (sheet, header row, encoding).
	Source source.Config

	Policy core.SeverityPolicy
	FailOn core.Severity

	MaxUploadBytes int64

	// Store records run history (optional). The caller owns it.
	Store state.Store
	// Watch reloads the rules when RulesPath changes.
	Watch bool

	Logger *slog.Logger
}

// Server validates uploaded files.
type Server struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	session *engine.Session
}

// New creates a server and loads the rules.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Policy == nil {
		cfg.Policy = core.DefaultSeverityPolicy()
	}

	s := &Server{cfg: cfg, logger: cfg.Logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the rules and swaps in a new session. In-flight requests
// finish with the session they started with.
func (s *Server) Reload() error {
	dict, err := engine.LoadDictionary(s.cfg.RulesPath, s.cfg.Sentinel, s.logger)
	if err != nil {
		return err
	}

	session, err := engine.New(engine.Config{
		Dictionary:    dict,
		GroupKey:      s.cfg.GroupKey,
		GroupFields:   s.cfg.GroupFields,
		Workers:       s.cfg.Workers,
		KeepBlankRows: s.cfg.KeepBlankRows,
		Store:         s.cfg.Store,
		Rules:         s.cfg.RulesPath,
		Logger:        s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	s.logger.Info("rules loaded", slog.String("path", s.cfg.RulesPath), slog.Int("fields", dict.Len()))
	return nil
}

// Fields returns the number of governed fields in the loaded rules.
func (s *Server) Fields() int {
	return s.currentSession().Dictionary().Len()
}

func (s *Server) currentSession() *engine.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		requestLogger(s.logger),
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/rules", s.handleRules)
		r.Post("/validate", s.handleValidate)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting server", slog.String("addr", s.cfg.Addr))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch {
		w, err := watch.New([]string{s.cfg.RulesPath}, 0, s.logger)
		if err != nil {
			return fmt.Errorf("failed to watch rules: %w", err)
		}
		eg.Go(func() error {
			return w.Run(egctx, func(string) {
				if err := s.Reload(); err != nil {
					s.logger.Error("failed to reload rules", slog.String("error", err.Error()))
				}
			})
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// requestLogger logs each request at info level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
