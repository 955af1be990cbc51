// Package http provides http transport for the interactive shell
package http

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	stdhttp "net/http"
	"strings"

	"jagapadi/internal/core/chrome"
	"jagapadi/internal/core/record"
	"jagapadi/internal/core/uistate"
	"jagapadi/internal/modkit/httpkit"
	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/net/http/bind"
	"jagapadi/internal/services/api/shell/domain"
	histdom "jagapadi/internal/services/history/domain"
)

// Deps are the handler dependencies
type Deps struct {
	Shell domain.Shell
	// UploadLimit caps the bytes read from an upload; the shell applies its own
	// size rule with a friendlier message, so this only guards memory
	UploadLimit int64
}

type handlers struct{ d Deps }

// Register mounts the shell endpoints
func Register(r httpkit.Router, d Deps) {
	if d.UploadLimit <= 0 {
		d.UploadLimit = 32 << 20
	}
	h := &handlers{d: d}

	httpkit.Get(r, "/state", h.state)

	// detection flow
	r.Post("/image", httpkit.Handle(h.image))
	httpkit.Post(r, "/detect", h.detect)
	httpkit.Post(r, "/reset", h.reset)
	httpkit.PostJSON(r, "/details", h.details, bind.JSONOptions{MaxBytes: 4 << 10, DisallowUnknown: true, AllowEmptyBody: true})

	// camera
	r.Route("/camera", func(cr httpkit.Router) {
		httpkit.Post(cr, "/open", h.cameraOpen)
		httpkit.Post(cr, "/capture", h.cameraCapture)
		httpkit.Post(cr, "/close", h.cameraClose)
	})

	// backend link
	r.Route("/link", func(lr httpkit.Router) {
		httpkit.Get(lr, "/", h.linkState)
		httpkit.PostJSON(lr, "/", h.connect)
		httpkit.Delete(lr, "/", h.disconnect)
	})

	// sidebar, theme, modals and shortcuts
	r.Route("/chrome", func(cr httpkit.Router) {
		httpkit.Post(cr, "/sidebar", h.sidebar)
		httpkit.PostJSON(cr, "/theme", h.theme)
		httpkit.PostJSON(cr, "/key", h.key)
		httpkit.Post(cr, "/auth", h.auth)
		httpkit.PostJSON(cr, "/modal/dismiss", h.dismiss)
	})

	// toasts
	httpkit.Get(r, "/notifications", h.notifications)
	httpkit.Delete(r, "/notifications/{id}", h.dismissNotification)
}

// GET /state
func (h *handlers) state(_ *stdhttp.Request) (any, error) {
	return h.d.Shell.Snapshot(), nil
}

// POST /image
// multipart form field "file", or a raw image body with ?filename=
func (h *handlers) image(r *stdhttp.Request) httpkit.Response {
	name, data, err := h.readUpload(r)
	if err != nil {
		return httpkit.Error(err)
	}
	s, err := h.d.Shell.SelectFile(r.Context(), name, data)
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.OK(domain.SurfaceResponse{Surface: s})
}

// POST /detect
// answers 202 while the backend works; the result arrives on the view stream
func (h *handlers) detect(r *stdhttp.Request) (any, error) {
	s, err := h.d.Shell.Detect(r.Context())
	if err != nil {
		return nil, err
	}
	if s.State == uistate.Processing {
		return httpkit.Accepted(domain.SurfaceResponse{Surface: s}), nil
	}
	return domain.SurfaceResponse{Surface: s}, nil
}

// POST /reset
func (h *handlers) reset(r *stdhttp.Request) (any, error) {
	s, err := h.d.Shell.NewDetection(r.Context())
	if err != nil {
		return nil, err
	}
	return domain.SurfaceResponse{Surface: s}, nil
}

// POST /details
func (h *handlers) details(r *stdhttp.Request, in domain.DetailsInput) (any, error) {
	rec, err := h.d.Shell.ViewDetails(r.Context(), in.ID)
	if err != nil {
		return nil, err
	}
	return detailsOf(rec), nil
}

// POST /camera/open
func (h *handlers) cameraOpen(r *stdhttp.Request) (any, error) {
	if err := h.d.Shell.OpenCamera(r.Context()); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// POST /camera/capture
func (h *handlers) cameraCapture(r *stdhttp.Request) (any, error) {
	s, err := h.d.Shell.Capture(r.Context())
	if err != nil {
		return nil, err
	}
	return domain.SurfaceResponse{Surface: s}, nil
}

// POST /camera/close
func (h *handlers) cameraClose(r *stdhttp.Request) (any, error) {
	if err := h.d.Shell.CloseCamera(r.Context()); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// GET /link
func (h *handlers) linkState(_ *stdhttp.Request) (any, error) {
	st := h.d.Shell.LinkState()
	return domain.LinkResponse{State: st, Text: st.Text()}, nil
}

// POST /link
func (h *handlers) connect(r *stdhttp.Request, in domain.ConnectInput) (any, error) {
	msg, err := h.d.Shell.Connect(r.Context(), in.Password)
	if err != nil {
		return nil, err
	}
	st := h.d.Shell.LinkState()
	return domain.LinkResponse{State: st, Text: st.Text(), Message: msg}, nil
}

// DELETE /link
func (h *handlers) disconnect(r *stdhttp.Request) (any, error) {
	msg := h.d.Shell.Disconnect(r.Context())
	st := h.d.Shell.LinkState()
	return domain.LinkResponse{State: st, Text: st.Text(), Message: msg}, nil
}

// POST /chrome/sidebar
func (h *handlers) sidebar(r *stdhttp.Request) (any, error) {
	open, err := h.d.Shell.ToggleSidebar(r.Context())
	if err != nil {
		return nil, err
	}
	return domain.SidebarResponse{Open: open}, nil
}

// POST /chrome/theme
func (h *handlers) theme(r *stdhttp.Request, in domain.ThemeInput) (any, error) {
	t, err := h.d.Shell.SetTheme(r.Context(), in.Theme)
	if err != nil {
		return nil, err
	}
	return domain.ThemeResponse{Theme: t}, nil
}

// POST /chrome/key
func (h *handlers) key(r *stdhttp.Request, in chrome.Key) (any, error) {
	intent, err := h.d.Shell.Key(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return domain.KeyResponse{Intent: intent}, nil
}

// POST /chrome/auth
func (h *handlers) auth(r *stdhttp.Request) (any, error) {
	if err := h.d.Shell.OpenAuth(r.Context()); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// POST /chrome/modal/dismiss
func (h *handlers) dismiss(r *stdhttp.Request, in domain.DismissInput) (any, error) {
	m, closed, err := h.d.Shell.DismissModal(r.Context(), in.How)
	if err != nil {
		return nil, err
	}
	out := domain.DismissResponse{Closed: closed}
	if closed {
		out.Modal = &m
	}
	return out, nil
}

// GET /notifications
func (h *handlers) notifications(_ *stdhttp.Request) (any, error) {
	return h.d.Shell.Notifications(), nil
}

// DELETE /notifications/{id}
func (h *handlers) dismissNotification(r *stdhttp.Request) (any, error) {
	id := httpkit.Param(r, "id")
	if !h.d.Shell.DismissNotification(id) {
		return nil, perr.NotFoundf("notifikasi %q tidak ditemukan", id)
	}
	return httpkit.NoContent(), nil
}

func (h *handlers) readUpload(r *stdhttp.Request) (string, []byte, error) {
	defer r.Body.Close()
	body := io.LimitReader(r.Body, h.d.UploadLimit+1)

	ct, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "multipart/form-data" {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "upload not readable")
		}
		return httpkit.Query(r, "filename"), data, nil
	}

	mr := multipart.NewReader(body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil, perr.WithField(perr.Validationf("Tidak ada gambar yang dipilih"), "file")
		}
		if err != nil {
			return "", nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "malformed multipart body")
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return "", nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "upload not readable")
		}
		return strings.TrimSpace(part.FileName()), data, nil
	}
}

func detailsOf(r record.Record) domain.DetailsResponse {
	return domain.DetailsResponse{Record: r.ToWire(), SourceLabel: histdom.SourceLabel(r.Provenance)}
}
