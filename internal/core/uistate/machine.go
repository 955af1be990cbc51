package uistate

import (
	"maps"
	"sync/atomic"
	"time"

	"jagapadi/internal/core/record"
	perr "jagapadi/internal/platform/errors"
	"jagapadi/internal/platform/logger"
)

const maxTransitions = 20

// View receives every rendered surface
type View interface {
	Render(Surface)
}

// ViewFunc adapts a func to View
type ViewFunc func(Surface)

// Render calls f
func (f ViewFunc) Render(s Surface) { f(s) }

// Animator drives the processing overlay. Start replaces any running
// animation; Stop is safe to call when idle
type Animator interface {
	Start(frame func(Progress))
	Stop()
}

// Transition is one entry in the recent state history
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// Machine owns application state. It is not safe for concurrent use and is
// meant to be driven from the loop; only Snapshot may be called elsewhere
type Machine struct {
	log  logger.Logger
	view View
	anim Animator
	now  func() time.Time

	current  State
	previous State
	image    *Image
	result   *record.Record
	pending  bool
	linked   bool
	status   string
	progress Progress

	transitions []Transition
	last        atomic.Pointer[Surface]
}

// Option configures a Machine
type Option func(*Machine)

// WithLogger sets the logger, default logger.Named("uistate")
func WithLogger(l logger.Logger) Option { return func(m *Machine) { m.log = l } }

// WithView sets the render target
func WithView(v View) Option { return func(m *Machine) { m.view = v } }

// WithAnimator sets the processing animator
func WithAnimator(a Animator) Option { return func(m *Machine) { m.anim = a } }

// WithClock overrides time.Now for transition stamps
func WithClock(now func() time.Time) Option { return func(m *Machine) { m.now = now } }

// New returns a machine already rendered in Initial
func New(opts ...Option) *Machine {
	m := &Machine{log: *logger.Named("uistate"), now: time.Now}
	for _, o := range opts {
		o(m)
	}
	m.enterInitial()
	m.render()
	return m
}

// SetState moves to target and runs its entry routine. Moving to the
// current state is a no-op unless force is set
func (m *Machine) SetState(target State, force bool) error {
	if !target.Valid() {
		return perr.InvalidStatef("unknown state %d", uint8(target))
	}
	if target == m.current && !force {
		return nil
	}
	switch {
	case (target == ImageReady || target == Processing) && m.image == nil:
		return perr.InvalidStatef("%s needs an image", target)
	case target == Results && m.result == nil:
		return perr.InvalidStatef("%s needs a result", target)
	}

	if m.current == Processing {
		m.stopAnimation()
	}
	from := m.current
	m.previous, m.current = m.current, target
	m.status = ""
	m.remember(from, target)

	switch target {
	case Initial:
		m.enterInitial()
	case ImageReady:
		m.enterImageReady()
	case Processing:
		m.enterProcessing()
	case Results:
		m.enterResults()
	}
	m.log.Debug().Stringer("from", from).Stringer("to", target).Bool("force", force).Msg("state changed")
	m.render()
	return nil
}

// SetStateName is SetState for names coming off the wire
func (m *Machine) SetStateName(name string, force bool) error {
	s, err := Parse(name)
	if err != nil {
		return err
	}
	return m.SetState(s, force)
}

func (m *Machine) enterInitial() {
	m.image = nil
	m.result = nil
	m.pending = false
	m.progress = Progress{}
}

func (m *Machine) enterImageReady() {
	m.result = nil
	m.pending = false
	m.progress = Progress{}
}

func (m *Machine) enterProcessing() {
	m.result = nil
	m.progress = Progress{Active: true, Message: ProgressMessages[0]}
	if m.anim == nil {
		return
	}
	m.anim.Start(func(p Progress) {
		if m.current != Processing {
			return
		}
		m.progress = p
		m.render()
	})
}

func (m *Machine) enterResults() {
	m.pending = false
	m.progress = Progress{Percent: 100}
}

func (m *Machine) stopAnimation() {
	if m.anim != nil {
		m.anim.Stop()
	}
}

// LoadImage makes img current and shows it. It is refused while a detection
// is in flight
func (m *Machine) LoadImage(img Image) error {
	if m.pending {
		return perr.Validationf("Deteksi sedang berlangsung, harap tunggu")
	}
	if len(img.Data) == 0 {
		return perr.Validationf("Tidak ada gambar untuk dianalisis")
	}
	img.Data = append([]byte(nil), img.Data...)
	m.image = &img
	return m.SetState(ImageReady, true)
}

// SetResult stores the detection to show on entering Results
func (m *Machine) SetResult(r record.Record) {
	c := r.Clone()
	m.result = &c
	if m.current == Results {
		m.render()
	}
}

// SetPending marks a detection in flight
func (m *Machine) SetPending(p bool) {
	if m.pending == p {
		return
	}
	m.pending = p
	m.render()
}

// SetLinked records the backend link state and re-renders the current
// state without re-entering it
func (m *Machine) SetLinked(linked bool) {
	if m.linked == linked {
		return
	}
	m.linked = linked
	m.render()
}

// SetStatus overrides the status bar text until the next transition
func (m *Machine) SetStatus(msg string) {
	m.status = msg
	m.render()
}

// Refresh re-renders without running an entry routine
func (m *Machine) Refresh() { m.render() }

// Current returns the active state
func (m *Machine) Current() State { return m.current }

// Previous returns the state before the last transition
func (m *Machine) Previous() State { return m.previous }

// Pending reports whether a detection is in flight
func (m *Machine) Pending() bool { return m.pending }

// Linked reports the last link state seen
func (m *Machine) Linked() bool { return m.linked }

// Image returns a copy of the current image
func (m *Machine) Image() (Image, bool) {
	if m.image == nil {
		return Image{}, false
	}
	c := *m.image
	c.Data = append([]byte(nil), c.Data...)
	return c, true
}

// Result returns a copy of the active result
func (m *Machine) Result() (record.Record, bool) {
	if m.result == nil {
		return record.Record{}, false
	}
	return m.result.Clone(), true
}

// Transitions returns recent transitions, newest first
func (m *Machine) Transitions() []Transition {
	return append([]Transition(nil), m.transitions...)
}

// Snapshot returns the last rendered surface. Safe from any goroutine
func (m *Machine) Snapshot() Surface {
	s := *m.last.Load()
	s.Actions = maps.Clone(s.Actions)
	return s
}

func (m *Machine) remember(from, to State) {
	m.transitions = append([]Transition{{From: from, To: to, At: m.now()}}, m.transitions...)
	if len(m.transitions) > maxTransitions {
		m.transitions = m.transitions[:maxTransitions]
	}
}

func (m *Machine) render() {
	s := m.compose()
	m.last.Store(&s)
	if m.view != nil {
		m.view.Render(s)
	}
}

// compose derives the whole surface from current state
func (m *Machine) compose() Surface {
	s := Surface{
		State:    m.current,
		Previous: m.previous,
		Linked:   m.linked,
		Pending:  m.pending,
		Progress: m.progress,
		Status:   m.status,
		Actions:  map[Action]bool{},
	}
	if s.Status == "" {
		s.Status = DefaultStatus(m.current)
	}
	if m.image != nil {
		s.Image = &ImageInfo{Filename: m.image.Filename, MIME: m.image.MIME, Size: len(m.image.Data)}
	}

	switch m.current {
	case Initial:
		s.Group = GroupCapture
		s.Actions[ActionCapture] = m.linked
		s.Actions[ActionSelectFile] = m.linked
	case ImageReady:
		s.Group = GroupImage
		s.Actions[ActionChangeImage] = m.linked
		s.Actions[ActionDetect] = m.linked && !m.pending
	case Processing:
		s.Group = GroupProcessing
		s.Overlay = OverlayProgress
		s.Actions[ActionChangeImage] = false
		s.Actions[ActionDetect] = false
	case Results:
		s.Group = GroupResults
		s.Overlay = OverlayResults
		s.Actions[ActionNewDetection] = true
		s.Actions[ActionViewDetails] = true
		if m.result != nil {
			w := m.result.ToWire()
			s.Result = &w
		}
	}
	s.Actions[ActionConnect] = !m.linked
	s.Actions[ActionDisconnect] = m.linked
	return s
}
