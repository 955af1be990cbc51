// Package chrome tracks everything around the detection surface: the sidebar,
// the colour theme, the modal stack and keyboard shortcuts. It never touches
// application state; shortcuts that need the detection flow come back as
// Intents for the caller to run.
package chrome

import (
	"slices"
	"strings"

	perr "jagapadi/internal/platform/errors"
)

// ThemeKey is the local store key the theme is persisted under
const ThemeKey = "jagapadi_theme"

// Theme is the colour scheme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts light/dark and the legacy boolean dark-mode flag
func ParseTheme(s string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light", "false":
		return ThemeLight, nil
	case "dark", "true":
		return ThemeDark, nil
	}
	return "", perr.InvalidArgf("unknown theme %q", s)
}

// ModalKind names a modal
type ModalKind string

const (
	ModalAuth   ModalKind = "auth"
	ModalDetail ModalKind = "detail"
	ModalCamera ModalKind = "camera"
)

// Modal is one open dialog; Ref carries the record id for detail modals
type Modal struct {
	Kind ModalKind `json:"kind"`
	Ref  string    `json:"ref,omitempty"`
}

// Dismissal is how the user closed a modal
type Dismissal string

const (
	DismissAction     Dismissal = "action"
	DismissBackground Dismissal = "background"
	DismissEscape     Dismissal = "escape"
)

// ParseDismissal rejects anything but the three ways a modal can close
func ParseDismissal(s string) (Dismissal, error) {
	switch d := Dismissal(strings.ToLower(strings.TrimSpace(s))); d {
	case DismissAction, DismissBackground, DismissEscape:
		return d, nil
	}
	return "", perr.InvalidArgf("unknown dismissal %q", s)
}

// Intent asks the caller to run part of the detection flow
type Intent string

const (
	IntentNone        Intent = ""
	IntentCamera      Intent = "camera"
	IntentFile        Intent = "file"
	IntentDetect      Intent = "detect"
	IntentCloseCamera Intent = "closeCamera"
	IntentCapture     Intent = "capture"
)

// View is the chrome snapshot sent to the view
type View struct {
	SidebarOpen bool    `json:"sidebarOpen"`
	Theme       Theme   `json:"theme"`
	Modals      []Modal `json:"modals"`
}

// Chrome is not safe for concurrent use; drive it from the loop
type Chrome struct {
	sidebar bool
	theme   Theme
	modals  []Modal
}

// New returns closed chrome in the light theme
func New() *Chrome { return &Chrome{theme: ThemeLight} }

// Snapshot copies the current chrome
func (c *Chrome) Snapshot() View {
	return View{SidebarOpen: c.sidebar, Theme: c.theme, Modals: slices.Clone(c.modals)}
}

// ToggleSidebar flips the sidebar and returns the new state
func (c *Chrome) ToggleSidebar() bool {
	c.sidebar = !c.sidebar
	return c.sidebar
}

// SetSidebar opens or closes the sidebar
func (c *Chrome) SetSidebar(open bool) { c.sidebar = open }

// Theme returns the active theme
func (c *Chrome) Theme() Theme { return c.theme }

// SetTheme reports whether the theme changed
func (c *Chrome) SetTheme(t Theme) bool {
	if t != ThemeLight && t != ThemeDark {
		return false
	}
	changed := c.theme != t
	c.theme = t
	return changed
}

// ToggleTheme switches light and dark and returns the new theme
func (c *Chrome) ToggleTheme() Theme {
	if c.theme == ThemeDark {
		c.theme = ThemeLight
	} else {
		c.theme = ThemeDark
	}
	return c.theme
}

// Open pushes a modal. Opening one that is already on top is a no-op
func (c *Chrome) Open(m Modal) {
	if top, ok := c.Top(); ok && top == m {
		return
	}
	c.modals = append(c.modals, m)
}

// Top returns the front modal
func (c *Chrome) Top() (Modal, bool) {
	if len(c.modals) == 0 {
		return Modal{}, false
	}
	return c.modals[len(c.modals)-1], true
}

// IsOpen reports whether a modal of kind k is anywhere on the stack
func (c *Chrome) IsOpen(k ModalKind) bool {
	return slices.ContainsFunc(c.modals, func(m Modal) bool { return m.Kind == k })
}

// Dismiss closes the top modal and returns it. Only the three Dismissal
// kinds close modals; nothing else in the shell does
func (c *Chrome) Dismiss(how Dismissal) (Modal, bool) {
	if _, err := ParseDismissal(string(how)); err != nil {
		return Modal{}, false
	}
	top, ok := c.Top()
	if !ok {
		return Modal{}, false
	}
	c.modals = c.modals[:len(c.modals)-1]
	return top, true
}

// Close removes every modal of kind k; used when the owning action finishes
func (c *Chrome) Close(k ModalKind) bool {
	n := len(c.modals)
	c.modals = slices.DeleteFunc(c.modals, func(m Modal) bool { return m.Kind == k })
	return len(c.modals) != n
}
