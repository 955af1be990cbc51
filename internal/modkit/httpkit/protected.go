package httpkit

import "jagapadi/internal/platform/net/middleware"

// Protected groups routes under bearer auth; the bridge endpoints use this
func Protected(r Router, p middleware.AuthPort, fn func(Router)) {
	r.Group(func(gr Router) {
		gr.Use(Auth(p))
		fn(gr)
	})
}
