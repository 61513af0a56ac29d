package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"epinet/domain/core"
	"epinet/domain/sim"
	"epinet/internal/report"
	"epinet/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Pinger is satisfied by *sqlx.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// App is the admin server: health, profiling and rendered batch reports
type App struct {
	router    *chi.Mux
	summaries ports.SummaryRepository
	db        Pinger
	profiling bool
	started   time.Time
}

// Config holds admin server configuration
type Config struct {
	Port      string
	Profiling bool
}

// NewApp creates the admin application. summaries and db may be nil.
func NewApp(config Config, summaries ports.SummaryRepository, db Pinger) *App {
	app := &App{
		router:    chi.NewRouter(),
		summaries: summaries,
		db:        db,
		profiling: config.Profiling,
		started:   time.Now(),
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)
	a.router.Get("/reports/{id}", a.handleReport)
	a.router.Get("/reports/{id}/markdown", a.handleReportMarkdown)

	if a.profiling {
		a.router.Mount("/debug", middleware.Profiler())
	}
}

// ServeHTTP implements http.Handler
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(a.started).Round(time.Second).String(),
	}
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.PingContext(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = err.Error()
		} else {
			body["database"] = "ok"
		}
	}
	writeJSON(w, status, body)
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	batchID, summaries, ok := a.loadBatch(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(report.HTML(batchID, summaries))
}

func (a *App) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	batchID, summaries, ok := a.loadBatch(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(report.Markdown(batchID, summaries)))
}

func (a *App) loadBatch(w http.ResponseWriter, r *http.Request) (core.BatchID, []*sim.Summary, bool) {
	if a.summaries == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "summary storage is not configured"})
		return "", nil, false
	}
	batchID, err := core.ParseBatchID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return "", nil, false
	}
	summaries, err := a.summaries.ListBatch(r.Context(), batchID)
	if err != nil {
		status := http.StatusInternalServerError
		if core.IsNotFoundError(err) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return "", nil, false
	}
	return batchID, summaries, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
