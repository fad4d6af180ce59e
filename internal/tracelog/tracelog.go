package tracelog

import (
	"sync"
	"time"

	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/clock"
)

// Capacity is the fixed number of events the log retains.
const Capacity = 50

// Event is one diagnostic marker describing pipeline progress.
// LatencyMs and Breakdown are optional; At is stamped locally at record time.
type Event struct {
	Kind       string
	At         time.Time
	TurnID     string
	LatencyMs  *float64
	Transcript string
	Breakdown  map[string]float64
}

// Log is a bounded recent-event buffer ordered newest-first.
// Oldest entries are evicted once Capacity is exceeded.
type Log struct {
	mu     sync.Mutex
	clk    clock.Clock
	events []Event
}

// New creates an empty log stamping events with clk.
func New(clk clock.Clock) *Log {
	return &Log{clk: clk}
}

// Record stamps ev with the local wall-clock time and prepends it.
func (l *Log) Record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev.At = l.clk.Now()
	l.events = append([]Event{ev}, l.events...)
	if len(l.events) > Capacity {
		l.events = l.events[:Capacity]
	}
}

// Events returns a snapshot of the log, newest first.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}
