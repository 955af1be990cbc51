package bind

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "jagapadi/internal/platform/errors"
	kit "jagapadi/internal/platform/testkit"
)

type linkPayload struct {
	Password string `json:"password" validate:"required,min=2"`
}

type recordPayload struct {
	ID     string `json:"id" validate:"required"`
	Source string `json:"source" validate:"provenance"`
}

type datePayload struct {
	Date string `json:"date" validate:"calendar_date"`
}

func TestParseJSON_Success(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"password":"rahasia"}`))
	got, err := ParseJSON[linkPayload](req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Password != "rahasia" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseJSON_EmptyBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", http.NoBody)
	_, err := ParseJSON[linkPayload](req)
	kit.MustCode(t, err, perr.ErrorCodeJSON)

	// safe methods tolerate an empty body
	req = httptest.NewRequest("DELETE", "/", http.NoBody)
	if _, err := ParseJSON[linkPayload](req); err != nil {
		t.Fatalf("DELETE with empty body: %v", err)
	}

	req = httptest.NewRequest("POST", "/", http.NoBody)
	if _, err := ParseJSON[struct{}](req, JSONOptions{AllowEmptyBody: true}); err != nil {
		t.Fatalf("AllowEmptyBody: %v", err)
	}
}

func TestParseJSON_Rejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		code perr.ErrorCode
	}{
		{"invalid json", `{`, perr.ErrorCodeJSON},
		{"unknown field", `{"password":"xx","extra":1}`, perr.ErrorCodeJSON},
		{"trailing data", `{"password":"xx"} {}`, perr.ErrorCodeJSON},
		{"validation", `{"password":"x"}`, perr.ErrorCodeValidation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(c.body))
			_, err := ParseJSON[linkPayload](req)
			kit.MustCode(t, err, c.code)
		})
	}
}

func TestParseJSON_MaxBytes(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"password":"a-very-long-secret"}`))
	_, err := ParseJSON[linkPayload](req, JSONOptions{MaxBytes: 10, DisallowUnknown: true})
	kit.MustCode(t, err, perr.ErrorCodeJSON)
}

func TestValidationMessageUsesJSONNames(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"password":"x"}`))
	_, err := ParseJSON[linkPayload](req)
	e, ok := perr.As(err)
	if !ok {
		t.Fatalf("expected project error, got %T", err)
	}
	if e.Field() != "password" {
		t.Fatalf("field = %q", e.Field())
	}
	kit.MustContain(t, e.Message(), "password must be at least 2")
}

func TestDecode_Bridge(t *testing.T) {
	got, err := Decode[recordPayload]([]byte(` {"id":"det_1","source":"local_only"} `))
	if err != nil || got.ID != "det_1" {
		t.Fatalf("Decode: %+v %v", got, err)
	}

	_, err = Decode[recordPayload]([]byte(`{"id":"det_1","source":"cloud"}`))
	kit.MustCode(t, err, perr.ErrorCodeValidation)

	_, err = Decode[recordPayload]([]byte(`null`))
	kit.MustCode(t, err, perr.ErrorCodeJSON)

	if _, err := Decode[recordPayload](nil, JSONOptions{AllowEmptyBody: true}); err != nil {
		t.Fatalf("empty allowed: %v", err)
	}

	_, err = Decode[recordPayload]([]byte(`{"id":"x"}`), JSONOptions{MaxBytes: 4})
	kit.MustCode(t, err, perr.ErrorCodeJSON)
}

func TestDecode_SliceValidatesEachElement(t *testing.T) {
	raw, _ := json.Marshal([]recordPayload{{ID: "a"}, {ID: ""}})
	_, err := Decode[[]recordPayload](raw)
	kit.MustCode(t, err, perr.ErrorCodeValidation)

	raw, _ = json.Marshal([]recordPayload{{ID: "a"}, {ID: "b", Source: "server"}})
	got, err := Decode[[]recordPayload](raw)
	if err != nil || len(got) != 2 {
		t.Fatalf("slice decode: %v %v", got, err)
	}
}

func TestCalendarDateTag(t *testing.T) {
	if err := Validate(datePayload{Date: "2025-03-01"}); err != nil {
		t.Fatalf("valid date: %v", err)
	}
	if err := Validate(datePayload{}); err != nil {
		t.Fatalf("empty date allowed: %v", err)
	}
	kit.MustCode(t, Validate(datePayload{Date: "01/03/2025"}), perr.ErrorCodeValidation)
	if err := Validate((*datePayload)(nil)); err != nil {
		t.Fatalf("nil pointer: %v", err)
	}
	if err := Validate(42); err != nil {
		t.Fatalf("scalar: %v", err)
	}
}

func TestTrailingDataSeam(t *testing.T) {
	kit.Swap(t, &jsonMore, func(*json.Decoder) bool { return true })
	_, err := Decode[linkPayload]([]byte(`{"password":"xx"}`))
	kit.MustCode(t, err, perr.ErrorCodeJSON)
}
