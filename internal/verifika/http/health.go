package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bluesystem/verifika/internal/verifika/service"
	"github.com/bluesystem/verifika/pkg/httpx"
)

// HealthHandler serves the checks under /health. Bodies other than metrics
// are plain JSON, not the API envelope.
type HealthHandler struct {
	Health *service.HealthService
}

// Summary godoc
//
//	@Summary		Service summary
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	service.HealthSummary
//	@Router			/health [get].
func (h *HealthHandler) Summary(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.Health.Summary())
}

// Detailed answers 503 when the database or the cache does not respond.
//
//	@Summary		Dependency report
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	service.HealthReport
//	@Failure		503	{object}	service.HealthReport	"A dependency is down"
//	@Router			/health/detailed [get].
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	report := h.Health.Detailed(r.Context())
	status := http.StatusOK
	if !report.Ready() {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, report)
}

// Live always answers 200 while the process is serving.
//
//	@Summary		Liveness check
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health/live [get].
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Ready godoc
//
//	@Summary		Readiness check
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		503	{object}	map[string]string	"A dependency is down"
//	@Router			/health/ready [get].
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	report := h.Health.Detailed(r.Context())
	if !report.Ready() {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   "not_ready",
			"database": report.Database.Status,
			"redis":    report.Redis.Status,
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Database godoc
//
//	@Summary		Database check
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	service.Check
//	@Failure		503	{object}	service.Check	"A dependency is down"
//	@Router			/health/database [get].
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	writeCheck(w, h.Health.Database(r.Context()))
}

// Redis godoc
//
//	@Summary		Cache check
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	service.Check
//	@Failure		503	{object}	service.Check	"A dependency is down"
//	@Router			/health/redis [get].
func (h *HealthHandler) Redis(w http.ResponseWriter, r *http.Request) {
	writeCheck(w, h.Health.Redis(r.Context()))
}

func writeCheck(w http.ResponseWriter, c service.Check) {
	status := http.StatusOK
	if !c.OK() {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, c)
}

// Metrics answers with process counters. Callers accepting text/plain get
// one "verifika_<name> <value>" line per counter instead of the envelope.
//
//	@Summary		Process metrics
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	service.Metrics
//	@Router			/health/metrics [get].
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	m := h.Health.Metrics()
	if !strings.Contains(r.Header.Get("Accept"), "text/plain") {
		httpx.WriteData(w, http.StatusOK, m, "Métricas obtenidas")
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, s := range m.Samples() {
		fmt.Fprintf(w, "verifika_%s %s\n", s.Name, strconv.FormatFloat(s.Value, 'f', -1, 64))
	}
}
