package capture

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeSource struct {
	r *io.PipeReader
}

func (p *pipeSource) Read(b []byte) (int, error) { return p.r.Read(b) }
func (p *pipeSource) Close() error               { return p.r.Close() }

type frameRecorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *frameRecorder) SendAudio(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return nil
}

func (f *frameRecorder) snapshot() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.frames))
	copy(out, f.frames)
	return out
}

func TestFramesOneCadencePerTick(t *testing.T) {
	pr, pw := io.Pipe()
	sink := &frameRecorder{}
	c := NewController(func() (Source, error) { return &pipeSource{r: pr}, nil }, sink, 16000, nil)

	// 250 ms of 16 kHz s16le mono is 8000 bytes per frame.
	require.NoError(t, c.Acquire())
	c.Run()

	payload := bytes.Repeat([]byte{0xAB}, 8000*2+100) // two full frames + a tail
	go func() {
		pw.Write(payload)
		pw.Close()
	}()

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 3 },
		2*time.Second, time.Millisecond)

	frames := sink.snapshot()
	assert.Len(t, frames[0], 8000)
	assert.Len(t, frames[1], 8000)
	assert.Len(t, frames[2], 100)

	c.Release()
	assert.False(t, c.Capturing())
}

func TestEmptyFramesNeverSent(t *testing.T) {
	pr, pw := io.Pipe()
	sink := &frameRecorder{}
	c := NewController(func() (Source, error) { return &pipeSource{r: pr}, nil }, sink, 16000, nil)

	require.NoError(t, c.Acquire())
	c.Run()

	pw.Close() // EOF with zero bytes captured

	c.Release()
	assert.Empty(t, sink.snapshot())
}

func TestAcquireFailureLeavesControllerIdle(t *testing.T) {
	sink := &frameRecorder{}
	c := NewController(func() (Source, error) { return nil, errors.New("permission denied") }, sink, 16000, nil)

	err := c.Acquire()
	require.Error(t, err)
	assert.False(t, c.Capturing())

	// Release with nothing held is a no-op.
	c.Release()
}

func TestAcquireIsNonReentrant(t *testing.T) {
	pr, _ := io.Pipe()
	c := NewController(func() (Source, error) { return &pipeSource{r: pr}, nil }, &frameRecorder{}, 16000, nil)

	require.NoError(t, c.Acquire())
	assert.Error(t, c.Acquire())
	c.Release()
}

type failingSink struct {
	err error
}

func (f *failingSink) SendAudio([]byte) error { return f.err }

type countingSource struct {
	pipeSource
	mu     sync.Mutex
	closes int
}

func (s *countingSource) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	return s.pipeSource.Close()
}

func (s *countingSource) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

func TestSendFailureReleasesMicrophone(t *testing.T) {
	pr, pw := io.Pipe()
	src := &countingSource{pipeSource: pipeSource{r: pr}}

	var mu sync.Mutex
	var reported []error
	onErr := func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}

	c := NewController(func() (Source, error) { return src, nil },
		&failingSink{err: errors.New("send failed")}, 16000, onErr)
	require.NoError(t, c.Acquire())
	c.Run()

	go pw.Write(bytes.Repeat([]byte{0x01}, 8000))

	require.Eventually(t, func() bool { return !c.Capturing() },
		2*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return src.closeCount() > 0 },
		2*time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(reported) == 1
	}, 2*time.Second, time.Millisecond)
	mu.Lock()
	assert.ErrorContains(t, reported[0], "send failed")
	mu.Unlock()

	// A user-driven release after the failure stays a no-op.
	c.Release()
	assert.False(t, c.Capturing())
}

func TestReadFailureReleasesMicrophone(t *testing.T) {
	pr, pw := io.Pipe()
	src := &countingSource{pipeSource: pipeSource{r: pr}}

	errCh := make(chan error, 1)
	c := NewController(func() (Source, error) { return src, nil },
		&frameRecorder{}, 16000, func(err error) { errCh <- err })
	require.NoError(t, c.Acquire())
	c.Run()

	pw.CloseWithError(errors.New("device vanished"))

	select {
	case err := <-errCh:
		assert.ErrorContains(t, err, "device vanished")
	case <-time.After(2 * time.Second):
		t.Fatal("capture failure was never reported")
	}
	assert.False(t, c.Capturing())
	assert.Positive(t, src.closeCount())
}

func TestReleaseIsIdempotent(t *testing.T) {
	pr, _ := io.Pipe()
	c := NewController(func() (Source, error) { return &pipeSource{r: pr}, nil }, &frameRecorder{}, 16000, nil)

	require.NoError(t, c.Acquire())
	c.Run()
	c.Release()
	c.Release()
	assert.False(t, c.Capturing())
}
