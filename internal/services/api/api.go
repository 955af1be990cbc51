// Package api provides the HTTP API for the application
package api

import (
	"time"

	"jagapadi/internal/core/version"
	"jagapadi/internal/modkit"
	"jagapadi/internal/modkit/httpkit"
	"jagapadi/internal/modkit/module"
	"jagapadi/internal/modkit/swaggerkit"
	"jagapadi/internal/platform/metrics"
	phttp "jagapadi/internal/platform/net/http"
	"jagapadi/internal/platform/net/middleware"

	historyapi "jagapadi/internal/services/api/history/module"
	metamod "jagapadi/internal/services/api/meta/module"
	shelldom "jagapadi/internal/services/api/shell/domain"
	shellapi "jagapadi/internal/services/api/shell/module"
	histdom "jagapadi/internal/services/history/domain"
)

// Options are the API options
type Options struct {
	Deps     modkit.Deps
	Shell    shelldom.Shell
	History  histdom.ReaderPort
	Location *time.Location

	// Bridge mounts the host websocket; it stays outside the JSON stack
	Bridge modkit.Module
	// Checks are reported on /api/v1/meta/ready
	Checks []metamod.Check

	SessionID      string
	EnableProfiler bool
	// EnableDocs serves the OpenAPI document and swagger UI under /api/docs
	EnableDocs bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) *shellapi.Module {
	deps := opt.Deps
	c := deps.Cfg.Prefix("CORE_API_")

	shellAPI := shellapi.New(deps, opt.Shell, shellapi.FromConfig(deps.Cfg))
	mods := []modkit.Module{
		metamod.New(deps, opt.Checks),
		shellAPI,
		historyapi.New(deps, opt.History, opt.Location),
	}

	// websocket endpoints; Timeout and Compress in the api stack break upgrades
	if opt.Bridge != nil {
		module.Register(opt.Bridge.Name(), opt.Bridge.Ports())
		opt.Bridge.MountRoutes(r)
	}
	shellAPI.MountView(r)

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)
	swaggerkit.Mount(r, swaggerkit.Options{Enabled: opt.EnableDocs, Version: version.Info().Version})

	var hm *metrics.HTTP
	if deps.Metrics != nil {
		hm = deps.Metrics.HTTP
	}
	stack := httpkit.CommonStack(httpkit.StackOptions{
		SessionID: opt.SessionID,
		Slow:      c.MayDuration("SLOW_REQUEST", 500*time.Millisecond),
		Metrics:   hm,
		CORS:      middleware.CORSOptions{AllowedOrigins: c.MayCSV("CORS_ORIGINS", nil)},
	})

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
	return shellAPI
}
