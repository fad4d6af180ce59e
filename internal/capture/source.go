package capture

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// Source is a microphone handle producing raw s16le PCM. It is owned
// exclusively by the Controller and released on every exit path from capture.
type Source interface {
	io.Reader
	Close() error
}

// SourceFactory opens a microphone. Opening may fail (device missing,
// permission denied); the failure is reported to the user and capture
// never starts.
type SourceFactory func() (Source, error)

// FFmpegSource captures microphone audio through an ffmpeg subprocess
// writing mono s16le PCM to stdout.
type FFmpegSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

var _ Source = (*FFmpegSource)(nil)

// NewFFmpegSource spawns ffmpeg capturing from the default input device at
// sampleRate. Returns an error if ffmpeg is unavailable or fails to start.
func NewFFmpegSource(sampleRate int) (*FFmpegSource, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, errors.New("ffmpeg not found in PATH (required for microphone capture)")
	}
	args, err := micArgs(runtime.GOOS, sampleRate)
	if err != nil {
		return nil, err
	}
	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open ffmpeg stdout: %w", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg mic capture: %w", err)
	}
	return &FFmpegSource{cmd: cmd, stdout: stdout}, nil
}

func micArgs(goos string, sampleRate int) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-i", ":0",
			"-ac", "1", "-ar", fmt.Sprintf("%d", sampleRate),
			"-f", "s16le", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "pulse", "-i", "default",
			"-ac", "1", "-ar", fmt.Sprintf("%d", sampleRate),
			"-f", "s16le", "-",
		}, nil
	default:
		return nil, fmt.Errorf("microphone capture not implemented for %s", goos)
	}
}

// Read implements io.Reader.
func (s *FFmpegSource) Read(p []byte) (int, error) {
	if s == nil || s.stdout == nil {
		return 0, io.EOF
	}
	return s.stdout.Read(p)
}

// Close kills the capture process. Safe to call more than once.
func (s *FFmpegSource) Close() error {
	if s == nil {
		return nil
	}
	if s.stdout != nil {
		s.stdout.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
		s.cmd = nil
	}
	return nil
}
