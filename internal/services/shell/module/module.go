// Package module assembles the shell from the bridge, history and config
package module

import (
	"time"

	"jagapadi/internal/core/advisory"
	"jagapadi/internal/modkit"
	"jagapadi/internal/modkit/httpkit"
	"jagapadi/internal/platform/config"
	"jagapadi/internal/platform/logger"
	"jagapadi/internal/platform/metrics"
	ptime "jagapadi/internal/platform/time"
	bridge "jagapadi/internal/services/bridge/domain"
	detmod "jagapadi/internal/services/detection/module"
	histdom "jagapadi/internal/services/history/domain"
	linkmod "jagapadi/internal/services/link/module"
	mediamod "jagapadi/internal/services/media/module"
	notifymod "jagapadi/internal/services/notify/module"
	notify "jagapadi/internal/services/notify/service"
	dom "jagapadi/internal/services/shell/domain"
	"jagapadi/internal/services/shell/service"
)

// Ports exposed by the shell module
type Ports struct {
	App *service.App
}

// Module implements modkit.Module
type Module struct {
	app   *service.App
	ports Ports
}

// FromConfig reads CORE_SHELL_* plus the fallback delay owned by media
func FromConfig(cfg config.Conf, loc *time.Location) dom.Config {
	c := cfg.Prefix("CORE_SHELL_")
	return dom.Config{
		FallbackDelay: mediamod.FromConfig(cfg).FallbackDelay,
		BootTimeout:   c.MayDuration("BOOT_TIMEOUT", 10*time.Second),
		Location:      loc,
	}
}

// New builds link, media, notify and the detection orchestrator around the
// bridge and history ports, then the App that owns them
func New(deps modkit.Deps, br bridge.Port, history histdom.Port, loc *time.Location) *Module {
	if !deps.Ready() {
		panic("shell module: deps.KV, deps.Sched and deps.Gate are required")
	}
	if br == nil || history == nil {
		panic("shell module: bridge and history ports are required")
	}
	clock := ptime.Or(deps.Clock)
	var nm *metrics.Notify
	if deps.Metrics != nil {
		nm = deps.Metrics.Notify
	}

	app := service.New(FromConfig(deps.Cfg, loc), service.Parts{
		Gate:      deps.Gate,
		Sched:     deps.Sched,
		KV:        deps.KV,
		Bridge:    br,
		History:   history,
		Link:      linkmod.New(deps.Cfg, br),
		Media:     mediamod.New(mediamod.FromConfig(deps.Cfg), br, clock.Now),
		Notify:    notify.New(notifymod.FromConfig(deps.Cfg), *logger.Named("notify"), nm, clock),
		Detection: detmod.FromConfig(deps.Cfg),
		Catalog:   advisory.MustLoad(),
		Metrics:   deps.Metrics,
		Log:       *logger.Named("shell"),
		Now:       clock.Now,
	})
	return &Module{app: app, ports: Ports{App: app}}
}

// App returns the shell for boot and shutdown
func (m *Module) App() *service.App { return m.app }

// Name satisfies modkit.Module
func (m *Module) Name() string { return "shell" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module; the shell's routes live in the api module
func (m *Module) MountRoutes(_ httpkit.Router) {}
