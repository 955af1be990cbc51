package swaggerkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	phttp "jagapadi/internal/platform/net/http"
	"jagapadi/internal/platform/testkit"
)

func mounted(t *testing.T, o Options) phttp.Router {
	t.Helper()
	r := phttp.AdaptChi(chi.NewRouter())
	Mount(r, o)
	return r
}

func get(r phttp.Router, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func doc(t *testing.T, r phttp.Router) map[string]any {
	t.Helper()
	rec := get(r, "/api/docs/doc.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("doc.json status=%d", rec.Code)
	}
	var spec map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("doc.json not json: %v", err)
	}
	return spec
}

func TestMountDisabled(t *testing.T) {
	r := mounted(t, Options{})
	if rec := get(r, "/api/docs/doc.json"); rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestMountServesDocAndUI(t *testing.T) {
	testkit.Serial(t)
	r := mounted(t, Options{Enabled: true, Version: "v1.2.3"})

	if rec := get(r, "/api/docs"); rec.Code != http.StatusPermanentRedirect || rec.Header().Get("Location") != "/api/docs/" {
		t.Fatalf("redirect status=%d location=%q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := get(r, "/api/docs/index.html"); rec.Code != http.StatusOK {
		t.Fatalf("ui status=%d", rec.Code)
	}

	spec := doc(t, r)
	info := spec["info"].(map[string]any)
	if info["title"] != "JAGAPADI Shell API" || info["version"] != "v1.2.3" {
		t.Fatalf("info=%v", info)
	}
	servers := spec["servers"].([]any)
	if servers[0].(map[string]any)["url"] != "/api/v1" {
		t.Fatalf("servers=%v", servers)
	}
	schemas := spec["components"].(map[string]any)["schemas"].(map[string]any)
	if _, ok := schemas["ErrorResponse"]; !ok {
		t.Fatal("ErrorResponse schema missing")
	}

	paths := spec["paths"].(map[string]any)
	for _, p := range []string{"/state", "/detect", "/link", "/history", "/history/{id}", "/meta/ready"} {
		if _, ok := paths[p]; !ok {
			t.Fatalf("path %s missing", p)
		}
	}
	resps := paths["/detect"].(map[string]any)["post"].(map[string]any)["responses"].(map[string]any)
	for _, code := range []string{"202", "400", "422", "500"} {
		if _, ok := resps[code]; !ok {
			t.Fatalf("/detect lacks %s: %v", code, resps)
		}
	}
}

func TestMountMutatorsAndBase(t *testing.T) {
	testkit.Serial(t)
	r := phttp.AdaptChi(chi.NewRouter())
	Mount(r, Options{
		Enabled: true,
		Base:    "/docs/",
		Server:  "http://127.0.0.1:8765/api/v1",
		Mutators: []SpecMutator{func(spec map[string]any) {
			spec["x-shell"] = "jagapadi"
		}},
	})

	rec := get(r, "/docs/doc.json")
	var spec map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("status=%d err=%v", rec.Code, err)
	}
	if spec["x-shell"] != "jagapadi" {
		t.Fatal("mutator not applied")
	}
	if url := spec["servers"].([]any)[0].(map[string]any)["url"]; url != "http://127.0.0.1:8765/api/v1" {
		t.Fatalf("server=%v", url)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatal("doc must not be cached")
	}
}

func TestUnreadableDoc(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &reader, func() string { return "{not json" })

	r := mounted(t, Options{Enabled: true})
	if rec := get(r, "/api/docs/doc.json"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
}
