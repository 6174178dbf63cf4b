// Package httpapi exposes engine stats and read-only queries over HTTP.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/udisondev/geozone/internal/engine"
	"github.com/udisondev/geozone/internal/stats"
)

// NewHandler returns the mux serving:
//
//	GET /metrics          Prometheus exposition
//	GET /stats            stats.Metrics as JSON
//	GET /report           text report
//	GET /zones            registered zone ids
//	GET /zones/{id}       zone definition
//	GET /query?x=..&y=..  ids of zones containing the point
func NewHandler(e *engine.Engine, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(stats.NewPromCollector(e.Metrics))

	h := &handler{engine: e, logger: logger}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /stats", h.stats)
	mux.HandleFunc("GET /report", h.report)
	mux.HandleFunc("GET /zones", h.zones)
	mux.HandleFunc("GET /zones/{id}", h.zone)
	mux.HandleFunc("GET /query", h.query)
	return mux
}

type handler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func (h *handler) stats(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Metrics())
}

func (h *handler) report(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(h.engine.Report()))
}

func (h *handler) zones(w http.ResponseWriter, _ *http.Request) {
	ids := h.engine.Zones()
	if ids == nil {
		ids = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"zones": ids})
}

func (h *handler) zone(w http.ResponseWriter, r *http.Request) {
	d, ok := h.engine.Zone(r.PathValue("id"))
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "zone not found"})
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

func (h *handler) query(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if errX != nil || errY != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "x and y must be numbers"})
		return
	}

	ids := h.engine.Query(x, y)
	if ids == nil {
		ids = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"x": x, "y": y, "zones": ids})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("writing response", "err", err)
	}
}
