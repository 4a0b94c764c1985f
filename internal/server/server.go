package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/KaramelBytes/gwastrend/internal/gwas"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// Config holds server configuration.
type Config struct {
	Addr         string
	Source       gwas.Source
	Defaults     Defaults
	Model        gwas.ModelOptions
	DatesAsYears bool
}

// Defaults pre-fill the form.
type Defaults struct {
	Trait     string
	Ancestry  string
	Direction gwas.Direction
}

// Server serves the prediction form and its API over a cached dataset.
type Server struct {
	cfg       Config
	router    *chi.Mux
	cache     *gwas.Cache
	metrics   *Metrics
	templates *template.Template
	logger    *slog.Logger
}

// New creates a server. The dataset is loaded lazily through cache.
func New(cfg Config, cache *gwas.Cache, logger *slog.Logger) (*Server, error) {
	if cfg.Source == nil {
		return nil, errors.New("server: no data source configured")
	}
	if cache == nil {
		return nil, errors.New("server: nil dataset cache")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Defaults.Direction == "" {
		cfg.Defaults.Direction = gwas.DirectionAssociations
	}
	funcMap := template.FuncMap{
		"fmtYear": func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
		"fmtMean": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s := &Server{
		cfg:       cfg,
		router:    chi.NewRouter(),
		cache:     cache,
		metrics:   NewMetrics(cache),
		templates: tmpl,
		logger:    logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.countRequests)
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/api/predict", s.handlePredict)
	s.router.Get("/api/trend.csv", s.handleTrendCSV)
	s.router.Get("/api/trend.png", s.handleTrendPNG)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

// dataset loads (or reuses) the cleaned records.
func (s *Server) dataset(ctx context.Context) (*gwas.Dataset, error) {
	return s.cache.Get(ctx, s.cfg.Source)
}

func (s *Server) run(ctx context.Context, p gwas.Params) (*gwas.Result, error) {
	ds, err := s.dataset(ctx)
	if err != nil {
		s.metrics.ObserveRun(nil, err)
		return nil, err
	}
	pl := &gwas.Pipeline{Logger: s.logger, OnStage: s.metrics.ObserveStage}
	res, err := pl.Run(ctx, ds.Records, p)
	s.metrics.ObserveRun(res, err)
	return res, err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps pipeline and loader errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gwas.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
