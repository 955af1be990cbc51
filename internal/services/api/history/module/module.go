// Package module wires the history read api
package module

import (
	"net/http"
	"time"

	"jagapadi/internal/modkit"
	"jagapadi/internal/modkit/httpkit"
	str "jagapadi/internal/platform/strings"
	ptime "jagapadi/internal/platform/time"
	historyhttp "jagapadi/internal/services/api/history/http"
	histdom "jagapadi/internal/services/history/domain"
)

// Module implements modkit.Module
type Module struct {
	built modkit.Built
}

// New mounts history under /history
func New(deps modkit.Deps, history histdom.ReaderPort, loc *time.Location, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("api.history"),
		modkit.WithPrefix("/history"),
		modkit.WithPorts(history),
	}, opts...)...)

	external := b.Register
	clock := ptime.Or(deps.Clock)
	b.Register = func(r httpkit.Router) {
		historyhttp.Register(r, historyhttp.Deps{History: history, Location: loc, Now: clock.Now})
		external(r)
	}
	return &Module{built: b}
}

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(r httpkit.Router) { m.built.Mount(r) }

// Name satisfies modkit.Module
func (m *Module) Name() string { return str.MustString(m.built.Name, "api.history") }

// Prefix returns the mount prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.built.Prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.built.Mw }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.built.Ports }
