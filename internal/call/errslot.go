package call

import (
	"sync"
	"time"

	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/clock"
)

// errorWindow is how long a user-visible error stays displayed.
const errorWindow = 5000 * time.Millisecond

// errorSlot holds the single transient user-visible error. A new error
// overwrites the previous one and restarts the clear timer; the slot
// self-clears after the window elapses.
type errorSlot struct {
	mu       sync.Mutex
	clk      clock.Clock
	window   time.Duration
	msg      string
	deadline time.Time
	gen      uint64
	timer    *time.Timer
	onClear  func()
}

func newErrorSlot(clk clock.Clock, window time.Duration, onClear func()) *errorSlot {
	return &errorSlot{clk: clk, window: window, onClear: onClear}
}

// set displays msg and re-arms the auto-clear timer.
func (s *errorSlot) set(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.deadline = s.clk.Now().Add(s.window)
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.window, func() { s.clearGen(gen) })
	s.mu.Unlock()
}

// clearGen clears the slot only if no newer error replaced it.
func (s *errorSlot) clearGen(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.msg == "" {
		s.mu.Unlock()
		return
	}
	s.msg = ""
	onClear := s.onClear
	s.mu.Unlock()
	if onClear != nil {
		onClear()
	}
}

// message returns the displayed error, or "" once the window has elapsed.
func (s *errorSlot) message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.msg == "" || !s.clk.Now().Before(s.deadline) {
		return ""
	}
	return s.msg
}

// stopTimer cancels the pending auto-clear on component teardown.
func (s *errorSlot) stopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
