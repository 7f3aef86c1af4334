// Package ui serves stored analysis runs over HTTP: JSON endpoints for
// programmatic access plus an HTML report view rendered from Markdown.
package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"multiomics/adapters/report"
	"multiomics/domain/compare"
	"multiomics/domain/core"
	"multiomics/internal/analysis"
	"multiomics/internal/logging"
)

// RunStore is the persistence surface the server needs.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]compare.RunManifest, error)
	GetRun(ctx context.Context, runID core.RunID) (*compare.RunManifest, error)
	GetResults(ctx context.Context, runID core.RunID) ([]compare.FeatureTestResult, error)
}

// App is the HTTP application.
type App struct {
	router *chi.Mux
	runs   RunStore
	log    *logging.Logger
}

// NewApp wires routes and middleware around a run store.
func NewApp(runs RunStore, log *logging.Logger) *App {
	app := &App{
		router: chi.NewRouter(),
		runs:   runs,
		log:    log,
	}

	app.router.Use(middleware.Logger)
	app.router.Use(middleware.Recoverer)
	app.router.Use(middleware.Compress(5))

	app.router.Get("/healthz", app.handleHealth)
	app.router.Get("/api/runs", app.handleListRuns)
	app.router.Get("/api/runs/{id}", app.handleGetRun)
	app.router.Get("/api/runs/{id}/results", app.handleGetResults)
	app.router.Get("/runs/{id}/report", app.handleReport)

	return app
}

// Router exposes the configured handler for serving and tests.
func (a *App) Router() http.Handler {
	return a.router
}

// Serve blocks on ListenAndServe.
func (a *App) Serve(port string) error {
	a.log.Info("listening on :%s", port)
	return http.ListenAndServe(":"+port, a.router)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	manifests, err := a.runs.ListRuns(r.Context(), limit)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, manifests)
}

func (a *App) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		a.respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	manifest, err := a.runs.GetRun(r.Context(), runID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, manifest)
}

func (a *App) handleGetResults(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		a.respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	results, err := a.runs.GetResults(r.Context(), runID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, results)
}

// handleReport renders a stored run as an HTML page from its Markdown report.
func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		a.respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	manifest, err := a.runs.GetRun(r.Context(), runID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	results, err := a.runs.GetResults(r.Context(), runID)
	if err != nil {
		a.respondError(w, err)
		return
	}

	md := report.Markdown(&analysis.Result{Manifest: manifest, Results: results})

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	body := markdown.ToHTML([]byte(md), p, renderer)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>Run %s</title></head><body>%s</body></html>", manifest.RunID, body)
}

func (a *App) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.log.Error("encode response: %v", err)
	}
}

func (a *App) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if core.IsNotFoundError(err) {
		status = http.StatusNotFound
	} else {
		a.log.Error("request failed: %v", err)
	}
	a.respondJSON(w, status, map[string]string{"error": err.Error()})
}
