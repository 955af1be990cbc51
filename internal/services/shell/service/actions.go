package service

import (
	"context"
	"io"
	"strings"

	"jagapadi/internal/core/chrome"
	"jagapadi/internal/core/record"
	"jagapadi/internal/core/uistate"
	"jagapadi/internal/modkit/repokit"
	perr "jagapadi/internal/platform/errors"
	linkdom "jagapadi/internal/services/link/domain"
	media "jagapadi/internal/services/media/service"
	notifydom "jagapadi/internal/services/notify/domain"
)

// Action messages
const (
	MsgNeedsLink = "Hubungkan ke server terlebih dahulu"
	MsgNoResult  = "Belum ada hasil deteksi"
)

// SelectFile validates a picked file and shows it
func (a *App) SelectFile(ctx context.Context, filename string, data []byte) (uistate.Surface, error) {
	if !a.link.Connected() {
		return a.machine.Snapshot(), a.refuse(MsgNeedsLink)
	}
	img, err := a.media.Intake(filename, data)
	if err != nil {
		a.notify.Push(notifydom.Error, perr.UserMessage(err, media.MsgNotImage))
		return a.machine.Snapshot(), err
	}
	err = a.do(ctx, func() error {
		a.stopFallback()
		a.setPrompt(chrome.IntentNone)
		if err := a.machine.LoadImage(img); err != nil {
			a.notify.Push(notifydom.Warning, perr.UserMessage(err, ""))
			return err
		}
		return nil
	})
	return a.machine.Snapshot(), err
}

// OpenCamera borrows the host's camera. On failure the file picker is offered
// after the fallback delay
func (a *App) OpenCamera(ctx context.Context) error {
	if !a.link.Connected() {
		return a.refuse(media.MsgCameraNeedsLink)
	}
	if err := a.media.Open(a.lifetime()); err != nil {
		a.notify.Push(notifydom.Error, perr.UserMessage(err, "Gagal mengakses kamera"))
		_ = a.do(ctx, func() error {
			a.scheduleFallback()
			return nil
		})
		return err
	}
	return a.do(ctx, func() error {
		a.stopFallback()
		a.chrome.Open(chrome.Modal{Kind: chrome.ModalCamera})
		a.syncChrome()
		return nil
	})
}

// Capture takes one frame, closes the camera and shows the frame
func (a *App) Capture(ctx context.Context) (uistate.Surface, error) {
	img, cerr := a.media.Capture(ctx)
	err := a.do(ctx, func() error {
		if a.chrome.Close(chrome.ModalCamera) {
			a.syncChrome()
		}
		if cerr != nil {
			a.notify.Push(notifydom.Error, perr.UserMessage(cerr, media.MsgCaptureFailed))
			return cerr
		}
		if err := a.machine.LoadImage(img); err != nil {
			a.notify.Push(notifydom.Warning, perr.UserMessage(err, ""))
			return err
		}
		a.notify.Push(notifydom.Success, media.MsgCaptured)
		return nil
	})
	return a.machine.Snapshot(), err
}

// CloseCamera releases the camera without capturing
func (a *App) CloseCamera(ctx context.Context) error {
	a.media.Close()
	return a.do(ctx, func() error {
		if a.chrome.Close(chrome.ModalCamera) {
			a.syncChrome()
		}
		return nil
	})
}

// Detect starts a detection for the current image
func (a *App) Detect(ctx context.Context) (uistate.Surface, error) {
	err := a.do(ctx, func() error { return a.detect.StartDetection(ctx) })
	return a.machine.Snapshot(), err
}

// NewDetection clears the image and result
func (a *App) NewDetection(ctx context.Context) (uistate.Surface, error) {
	err := a.do(ctx, a.detect.NewDetection)
	return a.machine.Snapshot(), err
}

// ViewDetails opens the detail modal for id, or for the active result when id is empty
func (a *App) ViewDetails(ctx context.Context, id string) (record.Record, error) {
	var out record.Record
	err := a.do(ctx, func() error {
		active, hasActive := a.machine.Result()
		id := strings.TrimSpace(id)
		if id == "" {
			if !hasActive {
				return perr.Validationf(MsgNoResult)
			}
			id = active.ID
		}
		r, err := a.history.Get(id)
		switch {
		case err == nil:
			out = r
		case hasActive && active.ID == id:
			out = active
		default:
			return err
		}
		a.chrome.Open(chrome.Modal{Kind: chrome.ModalDetail, Ref: id})
		a.syncChrome()
		return nil
	})
	return out, err
}

// OpenAuth shows the password dialog
func (a *App) OpenAuth(ctx context.Context) error {
	return a.do(ctx, func() error {
		a.chrome.Open(chrome.Modal{Kind: chrome.ModalAuth})
		a.syncChrome()
		return nil
	})
}

// Connect establishes the backend link. The dialog stays open on failure
func (a *App) Connect(ctx context.Context, password string) (string, error) {
	msg, err := a.link.Establish(ctx, password)
	if err != nil {
		sev := notifydom.Error
		if perr.IsCode(err, perr.ErrorCodeValidation) || perr.IsCode(err, perr.ErrorCodeTooManyRequests) {
			sev = notifydom.Warning
		}
		a.notify.Push(sev, perr.UserMessage(err, "Gagal terhubung ke server"))
		return "", err
	}
	err = a.do(ctx, func() error {
		if a.chrome.Close(chrome.ModalAuth) {
			a.syncChrome()
		}
		a.notify.Push(notifydom.Success, msg)
		return nil
	})
	return msg, err
}

// Disconnect severs the backend link; it always ends disconnected
func (a *App) Disconnect(ctx context.Context) string {
	msg := a.link.Sever(ctx)
	a.notify.Push(notifydom.Info, msg)
	return msg
}

// LinkState reports the link
func (a *App) LinkState() linkdom.State { return a.link.State() }

// ToggleSidebar flips the sidebar
func (a *App) ToggleSidebar(ctx context.Context) (bool, error) {
	var open bool
	err := a.do(ctx, func() error {
		open = a.chrome.ToggleSidebar()
		a.syncChrome()
		return nil
	})
	return open, err
}

// SetTheme switches and persists the theme
func (a *App) SetTheme(ctx context.Context, raw string) (chrome.Theme, error) {
	t, err := chrome.ParseTheme(raw)
	if err != nil {
		return "", perr.WithField(err, "theme")
	}
	var changed bool
	if err := a.do(ctx, func() error {
		changed = a.chrome.SetTheme(t)
		a.syncChrome()
		return nil
	}); err != nil {
		return "", err
	}
	if changed {
		a.persistTheme(ctx, t)
	}
	return t, nil
}

// DismissModal closes the top modal the way the user did
func (a *App) DismissModal(ctx context.Context, how string) (chrome.Modal, bool, error) {
	d, err := chrome.ParseDismissal(how)
	if err != nil {
		return chrome.Modal{}, false, perr.WithField(err, "how")
	}
	var (
		m      chrome.Modal
		closed bool
	)
	err = a.do(ctx, func() error {
		m, closed = a.chrome.Dismiss(d)
		if closed {
			a.syncChrome()
		}
		return nil
	})
	if err == nil && closed && m.Kind == chrome.ModalCamera {
		a.media.Close()
	}
	return m, closed, err
}

// Key applies a shortcut and runs whatever part of the flow it asks for
func (a *App) Key(ctx context.Context, k chrome.Key) (chrome.Intent, error) {
	var (
		intent chrome.Intent
		before chrome.Theme
		after  chrome.Theme
	)
	err := a.do(ctx, func() error {
		before = a.chrome.Theme()
		intent = a.chrome.HandleKey(k, chrome.Context{State: a.machine.Current(), Linked: a.link.Connected()})
		after = a.chrome.Theme()
		a.syncChrome()
		return nil
	})
	if err != nil {
		return chrome.IntentNone, err
	}
	if before != after {
		a.persistTheme(ctx, after)
	}

	switch intent {
	case chrome.IntentCamera:
		err = a.OpenCamera(ctx)
	case chrome.IntentCapture:
		_, err = a.Capture(ctx)
	case chrome.IntentCloseCamera:
		a.media.Close()
	case chrome.IntentDetect:
		_, err = a.Detect(ctx)
	case chrome.IntentFile:
		a.setPrompt(chrome.IntentFile)
	}
	return intent, err
}

// DismissNotification removes a toast early
func (a *App) DismissNotification(id string) bool { return a.notify.Dismiss(id) }

// Notifications lists active toasts, oldest first
func (a *App) Notifications() []notifydom.Notification { return a.notify.Active() }

// Search filters history by filename or pest label
func (a *App) Search(q string) []record.Record { return a.history.Search(q) }

// Export writes history as csv or json
func (a *App) Export(w io.Writer, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		return a.history.ExportCSV(w)
	case "json":
		return a.history.ExportJSON(w)
	}
	return perr.WithField(perr.InvalidArgf("unknown export format %q", format), "format")
}

func (a *App) persistTheme(ctx context.Context, t chrome.Theme) {
	if err := repokit.PutString(context.WithoutCancel(ctx), a.kv, chrome.ThemeKey, string(t)); err != nil {
		a.log.Warn().Err(err).Str("theme", string(t)).Msg("theme not saved")
		return
	}
	a.log.Debug().Str("theme", string(t)).Msg("theme saved")
}

func (a *App) refuse(msg string) error {
	a.notify.Push(notifydom.Warning, msg)
	return perr.Validationf("%s", msg)
}

func (a *App) scheduleFallback() {
	a.stopFallback()
	a.fallback = a.sched.After(a.cfg.FallbackDelay, func() {
		a.fallback = nil
		a.notify.Push(notifydom.Info, media.MsgFallback)
		a.setPrompt(chrome.IntentFile)
	})
}

func (a *App) stopFallback() {
	if a.fallback != nil {
		a.fallback.Stop()
		a.fallback = nil
	}
}
