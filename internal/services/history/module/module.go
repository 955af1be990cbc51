// Package module wires the history store
package module

import (
	"net/http"

	"jagapadi/internal/modkit"
	"jagapadi/internal/modkit/httpkit"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/metrics"
	dom "jagapadi/internal/services/history/domain"
	"jagapadi/internal/services/history/repo"
	"jagapadi/internal/services/history/service"
)

// Ports exposed by the history module
type Ports struct {
	History dom.Port
}

// Module implements modkit.Module
type Module struct {
	ports Ports
	svc   *service.Service
}

// New constructs the history store over deps.KV
func New(deps modkit.Deps, o Options) *Module {
	if deps.KV == nil {
		panic("history module: deps.KV is required")
	}
	log := *logger.Named("history")
	var hm *metrics.History
	if deps.Metrics != nil {
		hm = deps.Metrics.History
	}
	svc := service.New(
		service.Config{Cap: o.Cap, Location: o.Location, Seed: o.Seed},
		repo.New(deps.KV, o.Location, log),
		log,
		hm,
		deps.Clock,
	)
	return &Module{svc: svc, ports: Ports{History: svc}}
}

// Service returns the concrete store for shutdown handling
func (m *Module) Service() *service.Service { return m.svc }

// Name satisfies modkit.Module
func (m *Module) Name() string { return "history" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Prefix satisfies modkit.Module
func (m *Module) Prefix() string { return "" }

// Middlewares satisfies modkit.Module
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return nil }

// MountRoutes satisfies modkit.Module; the history routes live in the api module
func (m *Module) MountRoutes(_ httpkit.Router) {}
