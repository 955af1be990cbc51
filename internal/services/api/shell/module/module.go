// Package module wires the shell's REST endpoints and view stream
package module

import (
	"net/http"

	"jagapadi/internal/modkit"
	"jagapadi/internal/modkit/httpkit"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/services/api/shell/domain"
	shellhttp "jagapadi/internal/services/api/shell/http"
)

// Module implements modkit.Module
type Module struct {
	built modkit.Built
	opts  Options
	view  *shellhttp.View
}

// New mounts the shell endpoints at the api root. The view stream is served
// separately by MountView because the api stack breaks websocket upgrades
func New(_ modkit.Deps, s domain.Shell, o Options, opts ...modkit.Option) *Module {
	if s == nil {
		panic("api shell module: shell is required")
	}
	if o.ViewPath == "" {
		o.ViewPath = "/view"
	}
	b := modkit.Build(append([]modkit.Option{modkit.WithName("api.shell")}, opts...)...)
	external := b.Register
	b.Register = func(r httpkit.Router) {
		shellhttp.Register(r, shellhttp.Deps{Shell: s, UploadLimit: o.UploadLimit})
		external(r)
	}
	view := shellhttp.NewView(shellhttp.ViewConfig{
		WriteWait: o.WriteWait,
		PongWait:  o.PongWait,
		Origins:   o.ViewOrigins,
	}, s, *logger.Named("view"))
	return &Module{built: b, opts: o, view: view}
}

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(r httpkit.Router) { m.built.Mount(r) }

// MountView serves the frame stream on r, outside the JSON stack
func (m *Module) MountView(r httpkit.Router) { r.Handle(m.opts.ViewPath, m.view) }

// View returns the stream handler
func (m *Module) View() *shellhttp.View { return m.view }

// Name satisfies modkit.Module
func (m *Module) Name() string { return m.built.Name }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.built.Mw }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.built.Ports }
