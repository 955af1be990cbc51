package http

import (
	stdhttp "net/http"

	mw "github.com/go-chi/chi/v5/middleware"
)

// MountProfiler serves pprof and expvar under prefix, e.g. /debug/pprof/.
// The bare prefix redirects to the pprof index
func MountProfiler(r Router, prefix string, enabled bool) {
	if !enabled {
		return
	}
	prof := stdhttp.StripPrefix(prefix, mw.Profiler())
	r.Handle(prefix+"/*", prof)
	r.Get(prefix, func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		stdhttp.Redirect(w, req, prefix+"/pprof/", stdhttp.StatusFound)
	})
}
