package latency

import (
	"sync"
	"time"

	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/metrics"
)

// Record holds the per-turn latency measurements in milliseconds.
// A nil field has not been observed for this turn.
type Record struct {
	FirstPartialMs    *float64
	FinalTranscriptMs *float64
	FirstAudioMs      *float64
}

// Tracker measures turn latencies against the turn start timestamp.
// Local marks are recorded at most once per turn; a server-authoritative
// summary may overwrite a field exactly once more when present.
type Tracker struct {
	mu      sync.Mutex
	start   time.Time
	started bool
	rec     Record
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// StartTurn resets all fields and anchors measurements at t.
func (tr *Tracker) StartTurn(t time.Time) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.start = t
	tr.started = true
	tr.rec = Record{}
}

// Reset clears the turn anchor; subsequent marks are no-ops.
func (tr *Tracker) Reset() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.started = false
	tr.rec = Record{}
}

// MarkFirstPartial records the first-partial-transcript latency once.
// Later partials are ignored. No-op if the turn never started.
func (tr *Tracker) MarkFirstPartial(now time.Time) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if !tr.started || tr.rec.FirstPartialMs != nil {
		return
	}
	ms := float64(now.Sub(tr.start).Milliseconds())
	tr.rec.FirstPartialMs = &ms
	metrics.FirstPartialLatency.Observe(ms / 1000)
}

// MarkFirstAudio records the first-audio-chunk latency once.
// Later chunks are ignored. No-op if the turn never started.
func (tr *Tracker) MarkFirstAudio(now time.Time) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if !tr.started || tr.rec.FirstAudioMs != nil {
		return
	}
	ms := float64(now.Sub(tr.start).Milliseconds())
	tr.rec.FirstAudioMs = &ms
	metrics.FirstAudioLatency.Observe(ms / 1000)
}

// SetFinalTranscript records the server-supplied final-transcript latency.
// The server value is authoritative and is not locally measured.
func (tr *Tracker) SetFinalTranscript(ms float64) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if !tr.started {
		return
	}
	tr.rec.FinalTranscriptMs = &ms
	metrics.FinalTranscriptLatency.Observe(ms / 1000)
}

// ApplySummary overwrites final-transcript and first-audio latencies with
// authoritative values from a turn-complete summary. Each field is replaced
// only if the summary supplies it; existing local values are kept otherwise.
func (tr *Tracker) ApplySummary(finalMs, firstAudioMs *float64) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if !tr.started {
		return
	}
	if finalMs != nil {
		v := *finalMs
		tr.rec.FinalTranscriptMs = &v
	}
	if firstAudioMs != nil {
		v := *firstAudioMs
		tr.rec.FirstAudioMs = &v
	}
}

// Snapshot returns a copy of the current record.
func (tr *Tracker) Snapshot() Record {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	out := Record{}
	if tr.rec.FirstPartialMs != nil {
		v := *tr.rec.FirstPartialMs
		out.FirstPartialMs = &v
	}
	if tr.rec.FinalTranscriptMs != nil {
		v := *tr.rec.FinalTranscriptMs
		out.FinalTranscriptMs = &v
	}
	if tr.rec.FirstAudioMs != nil {
		v := *tr.rec.FirstAudioMs
		out.FirstAudioMs = &v
	}
	return out
}
