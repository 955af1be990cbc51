// Package http provides meta endpoints
package http

import (
	stdctx "context"
	"net/http"
	"time"

	"jagapadi/internal/core/version"
	"jagapadi/internal/modkit/httpkit"
	"jagapadi/internal/modkit/module"
)

// Check probes one dependency. A nil error is ok; Soft checks only degrade
type Check struct {
	Name  string
	Soft  bool
	Probe func(stdctx.Context) error
}

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Checks      []Check
}

type handlers struct {
	deps Deps
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
}

// HealthResponse is the health payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Started string `json:"started"`
	Now     string `json:"now"`
}

// ReadyCheck describes a single dependency check
type ReadyCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok fail degraded
	Error  string `json:"error,omitempty"`
}

// ReadyResponse summarizes readiness
type ReadyResponse struct {
	Status string       `json:"status"` // ok degraded fail
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"`
}

// ServiceResponse describes service info
type ServiceResponse struct {
	Name    string            `json:"name"`
	Started string            `json:"started"`
	Uptime  int64             `json:"uptime"`
	Modules []string          `json:"modules"`
	Build   version.BuildInfo `json:"build"`
}

// GET /meta/health
func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// GET /meta/ready
// a failing hard check answers 503 so supervisors can restart the shell
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := stdctx.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	overall := "ok"
	checks := make([]ReadyCheck, 0, len(h.deps.Checks))
	for _, c := range h.deps.Checks {
		rc := ReadyCheck{Name: c.Name, Status: "ok"}
		if err := c.Probe(ctx); err != nil {
			rc.Error = err.Error()
			switch {
			case c.Soft:
				rc.Status = "degraded"
				if overall == "ok" {
					overall = "degraded"
				}
			default:
				rc.Status = "fail"
				overall = "fail"
			}
		}
		checks = append(checks, rc)
	}

	resp := ReadyResponse{Status: overall, Checks: checks, Now: time.Now().UTC().Format(time.RFC3339)}
	if overall == "fail" {
		return httpkit.Response{Status: http.StatusServiceUnavailable, Body: resp}, nil
	}
	return resp, nil
}

// GET /meta/version
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(), nil
}

// GET /meta/service
func (h *handlers) service(_ *http.Request) (any, error) {
	uptime := time.Since(h.deps.StartedAt)
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(uptime / time.Second),
		Modules: module.Names(),
		Build:   version.Info(),
	}, nil
}
