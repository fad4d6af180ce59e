package playback

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// FFplayPlayer plays s16le PCM through an ffplay subprocess reading from
// stdin. One process is kept alive for the life of the player; each Play
// streams a chunk's PCM and then sleeps out the chunk's duration so Play
// returns only once the audio has had time to leave the buffer.
type FFplayPlayer struct {
	mu         sync.Mutex
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	sampleRate int
	closed     bool
}

var _ Player = (*FFplayPlayer)(nil)

// NewFFplayPlayer spawns ffplay expecting mono s16le at sampleRate.
func NewFFplayPlayer(sampleRate int) (*FFplayPlayer, error) {
	if _, err := exec.LookPath("ffplay"); err != nil {
		return nil, errors.New("ffplay not found in PATH (install ffmpeg)")
	}
	p := &FFplayPlayer{sampleRate: sampleRate}
	if err := p.startLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FFplayPlayer) startLocked() error {
	p.cmd = exec.Command("ffplay",
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", p.sampleRate),
		"-ac", "1",
		"-i", "pipe:0",
	)
	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open ffplay stdin: %w", err)
	}
	p.cmd.Stdout = io.Discard
	p.cmd.Stderr = io.Discard
	if err := p.cmd.Start(); err != nil {
		return fmt.Errorf("start ffplay: %w", err)
	}
	p.stdin = stdin
	return nil
}

// Play implements Player. Blocks for roughly the chunk's duration.
func (p *FFplayPlayer) Play(pcm PCM) error {
	p.mu.Lock()
	if p.closed || p.stdin == nil {
		p.mu.Unlock()
		return errors.New("player is closed")
	}
	_, err := p.stdin.Write(pcm.Data)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write pcm: %w", err)
	}

	rate := pcm.SampleRate
	if rate <= 0 {
		rate = p.sampleRate
	}
	if rate > 0 {
		time.Sleep(time.Duration(len(pcm.Data)) * time.Second / time.Duration(rate*2))
	}
	return nil
}

// Close tears down the ffplay process. Safe to call more than once.
func (p *FFplayPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.stdin != nil {
		p.stdin.Close()
		p.stdin = nil
	}
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
		p.cmd.Wait()
	}
	return nil
}
