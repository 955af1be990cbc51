package uistate

import (
	"math/rand/v2"
	"time"

	"jagapadi/internal/core/loop"
)

// ProgressMessages rotate under the progress bar while a detection runs
var ProgressMessages = []string{
	"Menganalisis gambar...",
	"Mendeteksi objek hama dan penyakit...",
	"Mengidentifikasi spesies yang terdeteksi...",
	"Menghitung tingkat kepercayaan...",
	"Menganalisis tingkat kerusakan tanaman...",
	"Menyiapkan rekomendasi penanganan...",
	"Memvalidasi hasil deteksi...",
	"Finalisasi laporan hasil deteksi...",
}

const (
	progressTick   = 200 * time.Millisecond
	messageTick    = 800 * time.Millisecond
	progressCeil   = 95.0
	progressMinInc = 5.0
	progressSpread = 15.0
)

// ProgressAnimation is the Animator used in production. The bar creeps up
// by a random step and parks at 95 until Stop snaps it to 100
type ProgressAnimation struct {
	sched loop.Scheduler
	rnd   func() float64

	value  float64
	msg    int
	frame  Progress
	emit   func(Progress)
	timers []loop.Timer
}

// NewProgressAnimation schedules on s. rnd returns values in [0,1); nil uses math/rand/v2
func NewProgressAnimation(s loop.Scheduler, rnd func() float64) *ProgressAnimation {
	if rnd == nil {
		rnd = rand.Float64
	}
	return &ProgressAnimation{sched: s, rnd: rnd}
}

// Start resets the bar and arms both timers
func (a *ProgressAnimation) Start(emit func(Progress)) {
	a.halt()
	a.emit = emit
	a.value = 0
	a.msg = 1
	a.frame = Progress{Active: true, Message: ProgressMessages[0]}
	a.timers = []loop.Timer{
		a.sched.Every(progressTick, a.step),
		a.sched.Every(messageTick, a.rotate),
	}
}

// Stop cancels the timers and completes the bar
func (a *ProgressAnimation) Stop() {
	if !a.Running() {
		return
	}
	a.halt()
	a.frame.Active = false
	a.frame.Percent = 100
}

// Running reports whether timers are armed
func (a *ProgressAnimation) Running() bool { return len(a.timers) > 0 }

// Frame returns the latest frame
func (a *ProgressAnimation) Frame() Progress { return a.frame }

func (a *ProgressAnimation) halt() {
	for _, t := range a.timers {
		t.Stop()
	}
	a.timers = nil
}

func (a *ProgressAnimation) step() {
	a.value += a.rnd()*progressSpread + progressMinInc
	if a.value > progressCeil {
		a.value = progressCeil
	}
	a.frame.Percent = int(a.value)
	a.push()
}

func (a *ProgressAnimation) rotate() {
	a.frame.Message = ProgressMessages[a.msg]
	a.msg = (a.msg + 1) % len(ProgressMessages)
	a.push()
}

func (a *ProgressAnimation) push() {
	if a.emit != nil {
		a.emit(a.frame)
	}
}
