package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	phttp "jagapadi/internal/platform/net/http"
)

func tag(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Mw", name)
			next.ServeHTTP(w, r)
		})
	}
}

func body(s string) phttp.Handler {
	return func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(s)) }
}

func serve(t *testing.T, r phttp.Router, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestAdaptChi_VerbsGroupsAndRoutes(t *testing.T) {
	r := phttp.AdaptChi(chi.NewRouter())
	r.Use(tag("root"))

	r.Get("/state", body("state"))
	r.Post("/image", body("image"))
	r.Delete("/link", body("link"))
	r.Handle("/raw", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) }))

	r.Group(func(g phttp.Router) {
		g.Use(tag("group"))
		g.Get("/grouped", body("grouped"))
	})
	r.Route("/api", func(api phttp.Router) {
		api.Use(tag("api"))
		api.Route("/v1", func(v1 phttp.Router) {
			v1.Get("/ping", body("pong"))
		})
	})

	cases := []struct {
		method, path string
		code         int
		body         string
		mw           []string
	}{
		{"GET", "/state", 200, "state", []string{"root"}},
		{"POST", "/image", 200, "image", []string{"root"}},
		{"DELETE", "/link", 200, "link", []string{"root"}},
		{"GET", "/raw", http.StatusTeapot, "", []string{"root"}},
		{"GET", "/grouped", 200, "grouped", []string{"root", "group"}},
		{"GET", "/api/v1/ping", 200, "pong", []string{"root", "api"}},
		{"POST", "/state", http.StatusMethodNotAllowed, "", nil},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := serve(t, r, tc.method, tc.path)
			if rec.Code != tc.code {
				t.Fatalf("code %d want %d", rec.Code, tc.code)
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("body %q want %q", rec.Body.String(), tc.body)
			}
			if tc.mw == nil {
				return
			}
			got := rec.Header().Values("X-Mw")
			if len(got) != len(tc.mw) {
				t.Fatalf("middleware %v want %v", got, tc.mw)
			}
			for i := range got {
				if got[i] != tc.mw[i] {
					t.Fatalf("middleware %v want %v", got, tc.mw)
				}
			}
		})
	}
}

func TestAdaptChi_GroupMiddlewareStaysInGroup(t *testing.T) {
	r := phttp.AdaptChi(chi.NewRouter())
	r.Group(func(g phttp.Router) {
		g.Use(tag("inner"))
		g.Get("/in", body("in"))
	})
	r.Get("/out", body("out"))

	if got := serve(t, r, "GET", "/out").Header().Get("X-Mw"); got != "" {
		t.Fatalf("group middleware leaked onto /out: %q", got)
	}
	if got := serve(t, r, "GET", "/in").Header().Get("X-Mw"); got != "inner" {
		t.Fatalf("group middleware missing on /in: %q", got)
	}
}
