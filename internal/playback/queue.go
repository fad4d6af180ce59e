package playback

import (
	"log/slog"
	"sync"

	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/metrics"
)

// Decoder turns an opaque encoded audio payload into playable PCM.
type Decoder interface {
	Decode(chunk []byte) (PCM, error)
}

// PCM is decoded audio ready for a Player.
type PCM struct {
	Data       []byte
	SampleRate int
}

// Player plays decoded audio to completion.
type Player interface {
	Play(pcm PCM) error
}

// Queue serializes decode-and-play of arriving audio chunks. Chunks play in
// strict enqueue order; a decode failure skips the chunk and continues.
// Exactly one drain operation is in flight at a time.
type Queue struct {
	mu      sync.Mutex
	pending [][]byte
	busy    bool
	gen     uint64

	dec    Decoder
	player Player

	// onSpeaking is invoked with true when a chunk starts playing and
	// false when it finishes. May be nil.
	onSpeaking func(bool)
}

// Config wires the queue's collaborators.
type Config struct {
	Decoder    Decoder
	Player     Player
	OnSpeaking func(bool)
}

func NewQueue(cfg Config) *Queue {
	return &Queue{
		dec:        cfg.Decoder,
		player:     cfg.Player,
		onSpeaking: cfg.OnSpeaking,
	}
}

// Enqueue appends chunk and starts the drain if the queue is idle.
func (q *Queue) Enqueue(chunk []byte) {
	metrics.ChunksEnqueued.Inc()

	q.mu.Lock()
	q.pending = append(q.pending, chunk)
	startDrain := !q.busy
	if startDrain {
		q.busy = true
	}
	q.mu.Unlock()

	if startDrain {
		go q.drain()
	}
}

// Clear discards all pending chunks. An in-flight decode or play from a
// prior generation completes harmlessly but no longer asserts Speaking.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.pending = nil
	q.gen++
	q.mu.Unlock()
}

// Busy reports whether a drain operation is in flight.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.busy
}

// Pending returns the number of chunks waiting to be played.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.busy = false
			q.mu.Unlock()
			return
		}
		chunk := q.pending[0]
		q.pending = q.pending[1:]
		gen := q.gen
		q.mu.Unlock()

		pcm, err := q.dec.Decode(chunk)
		if err != nil {
			metrics.DecodeFailures.Inc()
			slog.Warn("audio chunk decode failed, skipping", "error", err, "bytes", len(chunk))
			continue
		}

		// The queue may have been cleared while decoding; a stale chunk
		// is dropped without playing.
		q.mu.Lock()
		stale := gen != q.gen
		q.mu.Unlock()
		if stale {
			continue
		}

		if q.onSpeaking != nil {
			q.onSpeaking(true)
		}
		if err := q.player.Play(pcm); err != nil {
			slog.Warn("audio playback failed", "error", err)
		} else {
			metrics.ChunksPlayed.Inc()
		}
		if q.onSpeaking != nil {
			q.onSpeaking(false)
		}
	}
}
