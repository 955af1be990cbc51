// Package swaggerkit serves the api's OpenAPI document and the swagger UI
package swaggerkit

import (
	"net/http"
	"strings"

	httpSwagger "github.com/swaggo/http-swagger"

	phttp "jagapadi/internal/platform/net/http"
	"jagapadi/internal/services/api/docs"
)

// SpecMutator adjusts the parsed document before it is served
type SpecMutator func(spec map[string]any)

// Options control where the docs live and what is patched into them
type Options struct {
	Enabled  bool
	Base     string // UI mount point, /api/docs when empty
	Server   string // api base url written into servers, /api/v1 when empty
	Version  string // replaces info.version when set
	Mutators []SpecMutator
}

// reader is swapped in tests
var reader = func() string { return docs.SwaggerInfo.ReadDoc() }

// Mount serves <base>/doc.json and the UI under <base>/
func Mount(r phttp.Router, o Options) {
	if !o.Enabled {
		return
	}
	base := strings.TrimSuffix(o.Base, "/")
	if base == "" {
		base = "/api/docs"
	}
	if o.Server == "" {
		o.Server = "/api/v1"
	}

	r.Get(base, func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, base+"/", http.StatusPermanentRedirect)
	})
	r.Get(base+"/doc.json", serveDoc(o))
	r.Handle(base+"/*", httpSwagger.Handler(
		httpSwagger.URL(base+"/doc.json"),
		httpSwagger.DeepLinking(true),
	))
}
