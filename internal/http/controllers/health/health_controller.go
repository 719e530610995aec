// Package health contiene el controller para health checks.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/http/helpers"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// Pinger es cualquier dependencia que pueda chequearse (store, cache).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Component es el estado de una dependencia.
type Component struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok | down
	Error  string `json:"error,omitempty"`
}

// Response es el body de /readyz.
type Response struct {
	Status     string      `json:"status"` // ready | unavailable
	Version    string      `json:"version,omitempty"`
	Components []Component `json:"components"`
}

// HealthController maneja /healthz y /readyz.
type HealthController struct {
	checks  map[string]Pinger
	version string
	timeout time.Duration
}

// NewHealthController crea el controller. checks se identifica por nombre.
func NewHealthController(version string, checks map[string]Pinger) *HealthController {
	return &HealthController{checks: checks, version: version, timeout: 2 * time.Second}
}

// Healthz maneja GET /healthz (liveness, sin dependencias).
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz maneja GET /readyz
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := Response{Status: "ready", Version: c.version, Components: make([]Component, 0, len(names))}
	for _, name := range names {
		comp := Component{Name: name, Status: "ok"}
		if err := c.checks[name].Ping(ctx); err != nil {
			comp.Status = "down"
			comp.Error = err.Error()
			resp.Status = "unavailable"
			log.Warn("dependency down", logger.String("component", name), logger.Err(err))
		}
		resp.Components = append(resp.Components, comp)
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	helpers.WriteJSON(w, status, resp)
}
