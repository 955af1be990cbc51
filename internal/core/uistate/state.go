// Package uistate holds the shell's four screen states and the surface each
// one renders. Every entry routine rebuilds the surface from scratch so a
// state never inherits leftovers from the one before it.
package uistate

import (
	"strings"

	"jagapadi/internal/core/record"
	perr "jagapadi/internal/platform/errors"
)

// State is one of the four screens
type State uint8

const (
	// Initial shows the capture controls and nothing else
	Initial State = iota
	// ImageReady shows the chosen image and the detect controls
	ImageReady
	// Processing shows the progress overlay while the backend works
	Processing
	// Results shows the detection outcome
	Results
)

var stateNames = [...]string{
	Initial:    "initial",
	ImageReady: "imageReady",
	Processing: "processing",
	Results:    "results",
}

// String returns the wire name
func (s State) String() string {
	if s.Valid() {
		return stateNames[s]
	}
	return "unknown"
}

// Valid reports whether s names a known state
func (s State) Valid() bool { return int(s) < len(stateNames) }

// MarshalText keeps states readable in JSON
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, perr.InvalidStatef("unknown state %d", uint8(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText accepts anything Parse does
func (s *State) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Parse resolves a state name. Dashes and case are ignored so "image-ready"
// and "imageReady" both work
func Parse(name string) (State, error) {
	k := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", ""))
	for i, n := range stateNames {
		if strings.ToLower(n) == k {
			return State(i), nil
		}
	}
	return 0, perr.InvalidStatef("unknown state %q", name)
}

// Group is the affordance cluster visible in a state
type Group string

const (
	GroupCapture    Group = "capture"
	GroupImage      Group = "image"
	GroupProcessing Group = "processing"
	GroupResults    Group = "results"
)

// Action is a user facing control
type Action string

const (
	ActionCapture      Action = "capture"
	ActionSelectFile   Action = "selectFile"
	ActionChangeImage  Action = "changeImage"
	ActionDetect       Action = "detect"
	ActionNewDetection Action = "newDetection"
	ActionViewDetails  Action = "viewDetails"
	ActionConnect      Action = "connect"
	ActionDisconnect   Action = "disconnect"
)

// Overlay names what covers the preview
type Overlay string

const (
	OverlayNone     Overlay = ""
	OverlayProgress Overlay = "progress"
	OverlayResults  Overlay = "results"
)

// Image is the picture the user picked or captured
type Image struct {
	Filename string
	MIME     string
	Data     []byte
}

// ImageInfo is what the surface exposes about the current image
type ImageInfo struct {
	Filename string `json:"filename"`
	MIME     string `json:"mime"`
	Size     int    `json:"size"`
}

// Progress is one animation frame
type Progress struct {
	Active  bool   `json:"active"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// Surface is everything the view needs to draw one frame
type Surface struct {
	State    State              `json:"state"`
	Previous State              `json:"previous"`
	Group    Group              `json:"group"`
	Actions  map[Action]bool    `json:"actions"`
	Overlay  Overlay            `json:"overlay,omitempty"`
	Image    *ImageInfo         `json:"image,omitempty"`
	Result   *record.WireRecord `json:"result,omitempty"`
	Linked   bool               `json:"linked"`
	Pending  bool               `json:"pending"`
	Progress Progress           `json:"progress"`
	Status   string             `json:"status"`
}

// Enabled reports whether a is shown and clickable
func (s Surface) Enabled(a Action) bool { return s.Actions[a] }

// DefaultStatus is the status bar text a state falls back to
func DefaultStatus(s State) string {
	switch s {
	case Initial:
		return "Siap untuk deteksi"
	case ImageReady:
		return "Gambar siap untuk dianalisis"
	case Processing:
		return "Menganalisis gambar..."
	case Results:
		return "Deteksi selesai"
	default:
		return "JAGAPADI - AI Deteksi Hama Padi"
	}
}
