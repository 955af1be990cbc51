package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jagapadi/internal/platform/config"
	perr "jagapadi/internal/platform/errors"
	pnet "jagapadi/internal/platform/net"
	phttp "jagapadi/internal/platform/net/http"
	kit "jagapadi/internal/platform/testkit"

	"github.com/go-chi/chi/v5"
)

func decodeEnv(t *testing.T, rec *httptest.ResponseRecorder) phttp.Envelope {
	t.Helper()
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, rec.Body.String())
	}
	return env
}

func TestServer_RunAndShutdown(t *testing.T) {
	t.Setenv("CORE_HTTP_ADDR", "127.0.0.1:0")

	optCalled := false
	srv := phttp.NewServer(config.New().Prefix("CORE_HTTP_"), func(*chi.Mux) { optCalled = true })
	if !optCalled {
		t.Fatalf("expected NewServer option to be called")
	}
	srv.Router().Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	kit.Eventually(t, 2*time.Second, func() bool { return srv.BoundAddr() != "" }, "server bound")

	resp, err := http.Get("http://" + srv.BoundAddr() + "/ping")
	if err != nil {
		t.Fatalf("GET /ping: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "pong" {
		t.Fatalf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestServer_DefaultAddr(t *testing.T) {
	t.Setenv("CORE_HTTP_ADDR", "")
	srv := phttp.NewServer(config.New().Prefix("CORE_HTTP_"))
	if srv.Addr() != "127.0.0.1:8765" {
		t.Fatalf("Addr = %q", srv.Addr())
	}
}

func TestRespondHelpers(t *testing.T) {
	req := httptest.NewRequest("GET", "/x", nil)
	req = req.WithContext(pnet.WithRequest(req.Context(), "rid-1", ""))

	rec := httptest.NewRecorder()
	phttp.RespondOK(rec, req, map[string]string{"state": "initial"})
	env := decodeEnv(t, rec)
	if rec.Code != http.StatusOK || env.RequestID != "rid-1" || env.Data == nil {
		t.Fatalf("RespondOK envelope: %+v", env)
	}

	rec = httptest.NewRecorder()
	phttp.RespondError(rec, req, perr.WithField(perr.Validationf("Tidak ada gambar"), "image"))
	env = decodeEnv(t, rec)
	if rec.Code != http.StatusBadRequest || env.Kind != "validation" || env.Field != "image" || env.Error != "Tidak ada gambar" {
		t.Fatalf("RespondError envelope: %d %+v", rec.Code, env)
	}
}

func TestHandle_ResponseVariants(t *testing.T) {
	cases := []struct {
		name   string
		resp   phttp.Response
		status int
	}{
		{"ok", phttp.OK("x"), http.StatusOK},
		{"accepted", phttp.Accepted("queued"), http.StatusAccepted},
		{"no content", phttp.NoContent(), http.StatusNoContent},
		{"zero status", phttp.Response{Body: "x"}, http.StatusOK},
		{"link error", phttp.Error(perr.Linkf("Password salah")), http.StatusBadGateway},
		{"foreign error", phttp.Error(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			phttp.Handle(func(*http.Request) phttp.Response { return c.resp })(rec, httptest.NewRequest("GET", "/", nil))
			if rec.Code != c.status {
				t.Fatalf("status = %d want %d", rec.Code, c.status)
			}
			if c.status == http.StatusNoContent && rec.Body.Len() != 0 {
				t.Fatalf("204 must not write a body")
			}
		})
	}
}

func TestHandle_Attachment(t *testing.T) {
	rec := httptest.NewRecorder()
	h := phttp.Handle(func(*http.Request) phttp.Response {
		return phttp.Attachment("riwayat.csv", "text/csv; charset=utf-8", []byte("a,b\n"))
	})
	h(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "a,b\n" {
		t.Fatalf("attachment: %d %q", rec.Code, rec.Body.String())
	}
	kit.MustContain(t, rec.Header().Get("Content-Disposition"), `filename="riwayat.csv"`)
	if rec.Header().Get("Content-Type") != "text/csv; charset=utf-8" {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestJSONHandlers_AndSugar(t *testing.T) {
	type in struct {
		Password string `json:"password" validate:"required"`
	}
	r := phttp.AdaptChi(chi.NewRouter())
	phttp.PostJSON(r, "/link", func(_ *http.Request, p in) (any, error) {
		if p.Password == "salah" {
			return nil, perr.Linkf("Password salah")
		}
		return phttp.Accepted(map[string]string{"state": "connecting"}), nil
	})
	phttp.GetJSON(r, "/state", func(*http.Request) (any, error) { return "initial", nil })
	phttp.DeleteJSON(r, "/link", func(*http.Request) (any, error) { return phttp.NoContent(), nil })
	phttp.PostNoBody(r, "/detect", func(*http.Request) (any, error) { return nil, perr.Validationf("no image") })

	cases := []struct {
		method, path, body string
		status             int
	}{
		{"POST", "/link", `{"password":"rahasia"}`, http.StatusAccepted},
		{"POST", "/link", `{"password":"salah"}`, http.StatusBadGateway},
		{"POST", "/link", `{}`, http.StatusBadRequest},
		{"GET", "/state", ``, http.StatusOK},
		{"DELETE", "/link", ``, http.StatusNoContent},
		{"POST", "/detect", ``, http.StatusBadRequest},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest(c.method, c.path, strings.NewReader(c.body)))
		if rec.Code != c.status {
			t.Fatalf("%s %s -> %d want %d (%s)", c.method, c.path, rec.Code, c.status, rec.Body.String())
		}
	}
}
