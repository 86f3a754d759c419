// Package ui serves the plant health web interface and its JSON API.
package ui

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/crimson-sun/leaf/internal/engine/artifact"
	"github.com/crimson-sun/leaf/internal/model"
	"github.com/crimson-sun/leaf/internal/output"
)

//go:embed templates/*.html
var templateFS embed.FS

// Engine is the part of the engine the UI calls.
type Engine interface {
	Diagnose(v model.FeatureVector) (model.Diagnosis, error)
	Rank() (model.Ranking, error)
	Current() (artifact.Info, bool)
}

// Config holds UI options.
type Config struct {
	// StrictRanges rejects readings outside field bounds with 400.
	StrictRanges bool

	// Output receives a record for every served prediction. Optional.
	Output output.Output

	// Metrics serves GET /metrics when set.
	Metrics http.Handler

	// Logger for request and error logs. Default: slog.Default().
	Logger *slog.Logger

	// Version is shown in the page footer.
	Version string
}

// App is the HTTP application.
type App struct {
	router    *chi.Mux
	engine    Engine
	cfg       Config
	logger    *slog.Logger
	templates *template.Template
	now       func() time.Time
}

// NewApp parses the embedded templates and builds the router.
func NewApp(eng Engine, cfg Config) (*App, error) {
	funcMap := template.FuncMap{
		"pct2":   func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) },
		"pct1":   func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"weight": func(v float64) string { return fmt.Sprintf("%.4f", v) },
		"step":   func(f model.Field) float64 { return (f.Max - f.Min) / 100 },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("ui: parse templates: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		engine:    eng,
		cfg:       cfg,
		logger:    cfg.Logger,
		templates: templates,
		now:       time.Now,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}

	a.setupMiddleware()
	a.setupRoutes()
	return a, nil
}

// Handler returns the root http.Handler.
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(a.requestLogger)
	a.router.Use(middleware.Recoverer)
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)

	a.router.Route("/api", func(r chi.Router) {
		r.Post("/predict", a.handlePredict)
		r.Get("/importance", a.handleImportance)
		r.Get("/fields", a.handleFields)
	})

	a.router.Get("/healthz", a.handleHealth)
	if a.cfg.Metrics != nil {
		a.router.Handle("/metrics", a.cfg.Metrics)
	}
}

// requestLogger logs one line per request through slog.
func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
