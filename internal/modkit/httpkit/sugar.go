package httpkit

import (
	"net/http"

	"jagapadi/internal/platform/net/http/bind"
)

// Get registers a no-body handler and uses the envelope adapter
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, Call(h))
}

// Post registers a no-body handler and uses the envelope adapter
func Post(r Router, path string, h func(*http.Request) (any, error)) {
	r.Post(path, Call(h))
}

// Delete registers a no-body handler under DELETE
func Delete(r Router, path string, h func(*http.Request) (any, error)) {
	r.Delete(path, Call(h))
}

// PostJSON mounts a bound and validated JSON handler under POST
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error), opts ...bind.JSONOptions) {
	r.Post(path, JSON(h, opts...))
}

// GetFile mounts a GET handler whose result is written as a file attachment
func GetFile(r Router, path string, h func(*http.Request) (Download, error)) {
	r.Get(path, Handle(func(req *http.Request) Response {
		d, err := h(req)
		if err != nil {
			return Error(err)
		}
		return Attachment(d.Filename, d.ContentType, d.Body)
	}))
}
