package modkit

import (
	"net/http"

	"jagapadi/internal/modkit/httpkit"
)

// Built is a plain struct with the fields modules care about
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any

	// Register attaches the module's endpoints; Mount calls it
	Register func(httpkit.Router)
}

// Build applies Option funcs to an internal buildCfg and returns a plain struct
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	if c.register == nil {
		c.register = func(httpkit.Router) {}
	}
	return Built{
		Name:     c.name,
		Prefix:   c.prefix,
		Mw:       append([]func(http.Handler) http.Handler(nil), c.mw...),
		Ports:    c.ports,
		Register: c.register,
	}
}

// Mount attaches a built module under its prefix with its middleware
// modules without a prefix register straight onto r
func (b Built) Mount(r httpkit.Router) {
	if b.Prefix == "" {
		if len(b.Mw) == 0 {
			b.Register(r)
			return
		}
		r.Group(func(g httpkit.Router) {
			g.Use(b.Mw...)
			b.Register(g)
		})
		return
	}
	r.Route(b.Prefix, func(sub httpkit.Router) {
		if len(b.Mw) > 0 {
			sub.Use(b.Mw...)
		}
		b.Register(sub)
	})
}
