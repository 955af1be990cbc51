// Package module wires the host bridge and mounts its websocket endpoint
package module

import (
	"net/http"

	"jagapadi/internal/modkit"
	"jagapadi/internal/modkit/httpkit"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/metrics"
	"jagapadi/internal/platform/net/middleware"
	dom "jagapadi/internal/services/bridge/domain"
	"jagapadi/internal/services/bridge/service"
)

// Ports exposed by the bridge module
type Ports struct {
	Bridge dom.Port
}

// Module implements modkit.Module
type Module struct {
	opts  Options
	hub   *service.Hub
	ports Ports
}

// New constructs the hub. Inbound calls run on deps.Sched behind deps.Gate
func New(deps modkit.Deps, o Options) *Module {
	if deps.Sched == nil || deps.Gate == nil {
		panic("bridge module: deps.Sched and deps.Gate are required")
	}
	var bm *metrics.Bridge
	if deps.Metrics != nil {
		bm = deps.Metrics.Bridge
	}
	if o.Path == "" {
		o.Path = "/bridge"
	}
	hub := service.New(
		service.Config{ReadLimit: o.ReadLimit, WriteWait: o.WriteWait, PongWait: o.PongWait},
		deps.Gate,
		deps.Sched,
		*logger.Named("bridge"),
		bm,
	)
	return &Module{opts: o, hub: hub, ports: Ports{Bridge: hub}}
}

// Hub returns the concrete hub for shutdown handling
func (m *Module) Hub() *service.Hub { return m.hub }

// Name satisfies modkit.Module
func (m *Module) Name() string { return "bridge" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Prefix satisfies modkit.Module
func (m *Module) Prefix() string { return "" }

// Middlewares satisfies modkit.Module
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return nil }

// MountRoutes mounts the websocket behind the bridge token
func (m *Module) MountRoutes(r httpkit.Router) {
	httpkit.Protected(r, middleware.BearerToken{Secret: m.opts.Token}, func(pr httpkit.Router) {
		pr.Handle(m.opts.Path, m.hub)
	})
}
