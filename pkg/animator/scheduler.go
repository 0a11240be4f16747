package animator

import (
	"sort"
	"sync"
	"time"
)

// DefaultFrameInterval approximates a 60Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// FrameFunc runs once per scheduled frame with the frame time.
type FrameFunc func(now time.Time)

// CancelFunc prevents a scheduled frame from running. Calling it after the frame ran is a no-op.
type CancelFunc func()

// Scheduler is a cooperative per-frame scheduler.
type Scheduler interface {
	// Now returns the scheduler clock.
	Now() time.Time

	// Schedule runs fn on the next frame.
	Schedule(fn FrameFunc) CancelFunc
}

// FrameScheduler schedules frames on wall-clock timers.
type FrameScheduler struct {
	interval time.Duration
}

// NewFrameScheduler creates a timer-backed scheduler. A non-positive interval uses DefaultFrameInterval.
func NewFrameScheduler(interval time.Duration) *FrameScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameScheduler{interval: interval}
}

// Now returns time.Now.
func (s *FrameScheduler) Now() time.Time {
	return time.Now()
}

// Schedule arms a one-shot timer for the next frame.
func (s *FrameScheduler) Schedule(fn FrameFunc) CancelFunc {
	t := time.AfterFunc(s.interval, func() { fn(time.Now()) })
	return func() { t.Stop() }
}

// ManualScheduler is a deterministic Scheduler driven by Advance.
// Frames fire every interval of virtual time.
type ManualScheduler struct {
	mu       sync.Mutex
	now      time.Time
	interval time.Duration
	seq      int
	pending  map[int]manualFrame
}

type manualFrame struct {
	due time.Time
	fn  FrameFunc
}

// NewManualScheduler starts a virtual clock at start.
func NewManualScheduler(start time.Time, interval time.Duration) *ManualScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &ManualScheduler{
		now:      start,
		interval: interval,
		pending:  make(map[int]manualFrame),
	}
}

// Now returns the virtual time.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule queues fn one interval from now.
func (s *ManualScheduler) Schedule(fn FrameFunc) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := s.seq
	s.pending[id] = manualFrame{due: s.now.Add(s.interval), fn: fn}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.pending, id)
	}
}

// Pending returns the number of frames waiting to run.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Advance moves the clock forward by d, firing due frames in order.
// Frames scheduled by fired frames run too if they fall within d.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	end := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		id, frame, ok := s.nextDue(end)
		if !ok {
			s.now = end
			s.mu.Unlock()
			return
		}
		delete(s.pending, id)
		s.now = frame.due
		s.mu.Unlock()

		frame.fn(frame.due)
	}
}

// nextDue returns the earliest frame due at or before end. Caller holds mu.
func (s *ManualScheduler) nextDue(end time.Time) (int, manualFrame, bool) {
	ids := make([]int, 0, len(s.pending))
	for id, f := range s.pending {
		if !f.due.After(end) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, manualFrame{}, false
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.pending[ids[i]], s.pending[ids[j]]
		if a.due.Equal(b.due) {
			return ids[i] < ids[j]
		}
		return a.due.Before(b.due)
	})
	return ids[0], s.pending[ids[0]], true
}
