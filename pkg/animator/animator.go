package animator

import (
	"sync"
	"time"
)

// DefaultRate is the reveal speed in runes per second.
const DefaultRate = 80.0

// Animator reveals accumulated text for one component instance.
//
// The zero value is not usable; construct with New. All methods are safe for
// concurrent use. onUpdate runs while the animator is locked and must not call
// back into the same Animator.
type Animator struct {
	mu sync.Mutex

	rate      float64
	scheduler Scheduler
	onUpdate  func(string)

	displayed []rune
	target    []rune
	last      string
	received  bool

	// Animation anchor: cursor recomputed from elapsed time since startAt.
	startLen int
	startAt  time.Time

	cancel    CancelFunc
	gen       uint64
	animating bool
}

// Option configures an Animator.
type Option func(*Animator)

// WithRate sets the reveal speed in runes per second. Non-positive values are ignored.
func WithRate(runesPerSecond float64) Option {
	return func(a *Animator) {
		if runesPerSecond > 0 {
			a.rate = runesPerSecond
		}
	}
}

// WithScheduler sets the frame scheduler (default: a FrameScheduler at DefaultFrameInterval).
func WithScheduler(s Scheduler) Option {
	return func(a *Animator) {
		if s != nil {
			a.scheduler = s
		}
	}
}

// New creates an idle animator. onUpdate may be nil.
func New(onUpdate func(string), opts ...Option) *Animator {
	a := &Animator{
		rate:     DefaultRate,
		onUpdate: onUpdate,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.scheduler == nil {
		a.scheduler = NewFrameScheduler(DefaultFrameInterval)
	}
	return a
}

// AddChunk accepts the full text received so far.
func (a *Animator) AddChunk(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.received && text == a.last {
		return
	}
	a.last = text
	a.received = true

	// Latest target wins: drop whatever frame is in flight before deciding.
	a.stopLocked()

	next := []rune(text)
	if len(next) <= len(a.displayed) {
		a.target = next
		a.setDisplayedLocked(next)
		return
	}

	a.target = next
	// Show one rune right away so an empty component never blanks for a frame.
	cursor := len(a.displayed) + 1
	a.setDisplayedLocked(next[:cursor])
	if cursor >= len(next) {
		return
	}

	a.startLen = cursor
	a.startAt = a.scheduler.Now()
	a.animating = true
	a.scheduleLocked()
}

// Displayed returns the currently visible text.
func (a *Animator) Displayed() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return string(a.displayed)
}

// Animating reports whether a reveal is in progress (the caret signal).
func (a *Animator) Animating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.animating
}

// Stop cancels any in-flight animation, leaving the displayed text where it is.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *Animator) stopLocked() {
	a.gen++
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.animating = false
}

func (a *Animator) scheduleLocked() {
	gen := a.gen
	a.cancel = a.scheduler.Schedule(func(now time.Time) {
		a.frame(gen, now)
	})
}

func (a *Animator) frame(gen uint64, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// A newer chunk or Stop superseded this frame.
	if gen != a.gen {
		return
	}
	a.cancel = nil

	elapsed := now.Sub(a.startAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	pos := a.startLen + int(elapsed*a.rate+1e-9)
	if pos > len(a.target) {
		pos = len(a.target)
	}
	if pos > len(a.displayed) {
		a.setDisplayedLocked(a.target[:pos])
	}

	if len(a.displayed) >= len(a.target) {
		a.animating = false
		return
	}
	a.scheduleLocked()
}

func (a *Animator) setDisplayedLocked(next []rune) {
	if string(next) == string(a.displayed) {
		return
	}
	a.displayed = append(a.displayed[:0:0], next...)
	if a.onUpdate != nil {
		a.onUpdate(string(a.displayed))
	}
}
