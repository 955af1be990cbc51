package swaggerkit

import (
	"encoding/json"
	"net/http"
)

func serveDoc(o Options) http.HandlerFunc {
	mutators := append([]SpecMutator{
		withServer(o.Server),
		withVersion(o.Version),
		withErrorSchema,
		withDefaultResponses,
	}, o.Mutators...)

	return func(w http.ResponseWriter, _ *http.Request) {
		var spec map[string]any
		if err := json.Unmarshal([]byte(reader()), &spec); err != nil {
			http.Error(w, "api document unreadable", http.StatusInternalServerError)
			return
		}
		for _, m := range mutators {
			m(spec)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

func withServer(url string) SpecMutator {
	return func(spec map[string]any) {
		if _, ok := spec["servers"]; !ok {
			spec["servers"] = []any{map[string]any{"url": url}}
		}
	}
}

func withVersion(v string) SpecMutator {
	return func(spec map[string]any) {
		if v == "" {
			return
		}
		if info, ok := spec["info"].(map[string]any); ok {
			info["version"] = v
		}
	}
}

// withErrorSchema describes the error envelope every failure uses
func withErrorSchema(spec map[string]any) {
	schemas := child(child(spec, "components"), "schemas")
	if _, ok := schemas["ErrorResponse"]; ok {
		return
	}
	str := map[string]any{"type": "string"}
	schemas["ErrorResponse"] = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status_code": map[string]any{"type": "integer", "format": "int32"},
			"status":      str,
			"code":        map[string]any{"type": "integer", "format": "int32"},
			"kind":        str,
			"error":       str,
			"field":       str,
			"request_id":  str,
		},
		"required": []any{"status_code", "status"},
	}
}

// withDefaultResponses adds 400 and 500 to operations that do not name them
func withDefaultResponses(spec map[string]any) {
	paths, ok := spec["paths"].(map[string]any)
	if !ok {
		return
	}
	defaults := map[string]map[string]any{
		"400": errorResponse("Bad Request", 400, "json", "invalid JSON: unexpected EOF"),
		"500": errorResponse("Internal Server Error", 500, "panic", "panic recovered"),
	}
	for _, p := range paths {
		item, ok := p.(map[string]any)
		if !ok {
			continue
		}
		for _, o := range item {
			op, ok := o.(map[string]any)
			if !ok {
				continue
			}
			resps := child(op, "responses")
			for code, r := range defaults {
				if _, exists := resps[code]; !exists {
					resps[code] = r
				}
			}
		}
	}
}

func errorResponse(status string, code int, kind, msg string) map[string]any {
	return map[string]any{
		"description": status,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
				"example": map[string]any{
					"status_code": code,
					"status":      status,
					"kind":        kind,
					"error":       msg,
				},
			},
		},
	}
}

func child(m map[string]any, key string) map[string]any {
	c, ok := m[key].(map[string]any)
	if !ok {
		c = map[string]any{}
		m[key] = c
	}
	return c
}
