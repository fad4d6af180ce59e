package capture

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/metrics"
)

// FrameCadence is how much captured audio each outbound frame carries.
const FrameCadence = 250 * time.Millisecond

// bytesPerSample for s16le mono.
const bytesPerSample = 2

// FrameSink receives one binary audio frame per cadence tick.
type FrameSink interface {
	SendAudio(frame []byte) error
}

// Controller owns the microphone resource and outbound audio framing.
// Acquire and Release are mutually exclusive and non-reentrant; the mic is
// released on every exit path from capture.
type Controller struct {
	mu        sync.Mutex
	newSource SourceFactory
	sink      FrameSink
	frameSize int
	onErr     func(error)

	src     Source
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewController builds a controller framing sampleRate s16le mono capture
// into FrameCadence-sized frames sent through sink. onErr, when non-nil, is
// notified after the microphone has been released because the frame loop hit
// a read or send error; it runs on a fresh goroutine and may call back into
// the controller.
func NewController(newSource SourceFactory, sink FrameSink, sampleRate int, onErr func(error)) *Controller {
	frameSize := sampleRate * bytesPerSample * int(FrameCadence/time.Millisecond) / 1000
	return &Controller{
		newSource: newSource,
		sink:      sink,
		frameSize: frameSize,
		onErr:     onErr,
	}
}

// Acquire opens the microphone. No-op error if already capturing.
// The frame loop does not start until Run is called.
func (c *Controller) Acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.src != nil {
		return errors.New("capture already active")
	}
	src, err := c.newSource()
	if err != nil {
		return err
	}
	c.src = src
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	return nil
}

// Run starts producing outbound frames. Must follow a successful Acquire.
func (c *Controller) Run() {
	c.mu.Lock()
	if c.src == nil || c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	src, stop, done := c.src, c.stop, c.done
	frameSize := c.frameSize
	c.mu.Unlock()
	go c.frameLoop(src, stop, done, frameSize)
}

// Capturing reports whether the microphone is held.
func (c *Controller) Capturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src != nil
}

// Release stops frame production and closes the microphone. Idempotent;
// a no-op when no capture is active.
func (c *Controller) Release() {
	c.mu.Lock()
	src, stop, done := c.src, c.stop, c.done
	running := c.running
	c.src, c.stop, c.done, c.running = nil, nil, nil, false
	c.mu.Unlock()
	if src == nil {
		return
	}

	close(stop)
	// Closing the source unblocks a pending Read so the loop can exit.
	src.Close()
	if running {
		<-done
	}
}

// frameLoop reads full cadence frames from the source and sends each as one
// binary payload. Short final reads are sent as-is; empty frames never are.
// An exit not driven by Release counts as a capture failure: the microphone
// is released and onErr is notified so the call can leave the listening state.
func (c *Controller) frameLoop(src Source, stop, done chan struct{}, frameSize int) {
	defer close(done)
	buf := make([]byte, frameSize)
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := io.ReadFull(src, buf)
		if n > 0 {
			frame := make([]byte, n)
			copy(frame, buf[:n])
			if sendErr := c.sink.SendAudio(frame); sendErr != nil {
				slog.Warn("audio frame send failed", "error", sendErr)
				c.abort(stop, sendErr)
				return
			}
			metrics.FramesSent.Inc()
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = errors.New("microphone stream ended")
			}
			if !isStopped(stop) {
				slog.Warn("microphone read failed", "error", err)
				c.abort(stop, err)
			}
			return
		}
	}
}

// abort releases the microphone after a frame-loop failure. Release waits on
// the loop's done channel, so it must run on its own goroutine; it is
// idempotent against a concurrent user-driven Release.
func (c *Controller) abort(stop chan struct{}, err error) {
	if isStopped(stop) {
		return
	}
	go func() {
		c.Release()
		if c.onErr != nil {
			c.onErr(err)
		}
	}()
}

func isStopped(stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
