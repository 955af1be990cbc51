package chrome

import "jagapadi/internal/core/uistate"

// Key is one key press as reported by the view
type Key struct {
	Key    string `json:"key" validate:"required"`
	Ctrl   bool   `json:"ctrl"`
	Meta   bool   `json:"meta"`
	Typing bool   `json:"typing"` // focus was in an input
	OnBody bool   `json:"onBody"` // focus was on the page itself
}

// Context is what shortcuts need to know about the rest of the shell
type Context struct {
	State  uistate.State
	Linked bool
}

// HandleKey applies chrome shortcuts and returns any Intent for the caller.
// Escape closes the top modal first and the sidebar second
func (c *Chrome) HandleKey(k Key, ctx Context) Intent {
	if k.Typing {
		return IntentNone
	}

	if top, ok := c.Top(); ok && top.Kind == ModalCamera {
		switch k.Key {
		case "Escape":
			c.Dismiss(DismissEscape)
			return IntentCloseCamera
		case " ", "Enter":
			return IntentCapture
		}
		return IntentNone
	}

	modifier := k.Ctrl || k.Meta
	switch k.Key {
	case "Escape":
		if _, ok := c.Dismiss(DismissEscape); ok {
			return IntentNone
		}
		c.sidebar = false
	case " ":
		if !k.OnBody {
			return IntentNone
		}
		switch {
		case ctx.State == uistate.Initial && ctx.Linked:
			return IntentCamera
		case ctx.State == uistate.ImageReady:
			return IntentDetect
		}
	case "Enter":
		if k.OnBody && ctx.State == uistate.ImageReady {
			return IntentDetect
		}
	case "f":
		if !modifier && ctx.Linked {
			return IntentFile
		}
	case "c":
		if !modifier && ctx.Linked {
			return IntentCamera
		}
	case "d":
		if ctx.State == uistate.ImageReady {
			return IntentDetect
		}
	case "s":
		if !modifier {
			c.ToggleSidebar()
		}
	case "t":
		if !modifier {
			c.ToggleTheme()
		}
	}
	return IntentNone
}
