package call

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/capture"
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/clock"
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/latency"
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/metrics"
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/playback"
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/protocol"
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/tracelog"
)

// Sender is the capability other components hold for the channel: they may
// send frames through it but never reopen it. Close is reached only through
// the explicit end-call path.
type Sender interface {
	SendControl(msgType string) error
	SendAudio(frame []byte) error
	Close() error
}

// Callbacks notify the UI layer. Nil fields are ignored. OnError receives ""
// when the transient error auto-clears.
type Callbacks struct {
	OnPartialTranscript func(text string)
	OnFinalTranscript   func(text string, confidence float64)
	OnAssistantText     func(text string, isFinal bool)
	OnError             func(msg string)
	OnStatus            func(status string)
}

// Config wires a Call's collaborators.
type Config struct {
	// Dial opens the channel; called once per call on Start.
	Dial func(ctx context.Context) (Sender, error)
	// NewPlayer opens the local audio output; called once per call on Start.
	NewPlayer func() (playback.Player, error)
	// Mic opens the microphone; called on every BeginTurn.
	Mic capture.SourceFactory

	Decoder    playback.Decoder
	SampleRate int
	Clock      clock.Clock
	Trace      *tracelog.Log
	Callbacks  Callbacks
}

// Call is one live call instance: the aggregate owning phase, the active
// turn, the playback queue, and the transient error slot. A Call is single
// use; after it ends a new instance starts over at Idle.
type Call struct {
	mu        sync.Mutex
	phase     Phase
	speaking  bool
	sessionID string
	turn      *Turn
	active    bool

	cfg     Config
	clk     clock.Clock
	errs    *errorSlot
	lat     *latency.Tracker
	queue   *playback.Queue
	capture *capture.Controller
	sender  Sender
	player  playback.Player
	traces  *tracelog.Log
	cb      Callbacks
}

// New creates a Call in the Idle phase.
func New(cfg Config) *Call {
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	c := &Call{
		phase: PhaseIdle,
		cfg:   cfg,
		clk:   cfg.Clock,
		lat:   latency.NewTracker(),
		cb:    cfg.Callbacks,
	}
	c.traces = cfg.Trace
	if c.traces == nil {
		c.traces = tracelog.New(cfg.Clock)
	}
	c.errs = newErrorSlot(cfg.Clock, errorWindow, func() {
		if c.cb.OnError != nil {
			c.cb.OnError("")
		}
	})
	c.capture = capture.NewController(cfg.Mic, senderSink{c}, cfg.SampleRate, c.onCaptureError)
	c.queue = playback.NewQueue(playback.Config{
		Decoder:    cfg.Decoder,
		Player:     playerProxy{c},
		OnSpeaking: c.setSpeaking,
	})
	return c
}

// Start opens the transport and the local audio output, moving the call
// Idle → Connecting → Connected. On channel failure the phase returns to
// Idle and a connectivity error is surfaced.
func (c *Call) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return errors.New("call already started")
	}
	c.phase = PhaseConnecting
	c.mu.Unlock()
	metrics.CallsTotal.Inc()
	c.notifyStatus()

	player, err := c.cfg.NewPlayer()
	if err != nil {
		c.mu.Lock()
		c.phase = PhaseIdle
		c.mu.Unlock()
		c.showError("audio output unavailable: " + err.Error())
		return err
	}

	sender, err := c.cfg.Dial(ctx)
	if err != nil {
		closePlayer(player)
		c.mu.Lock()
		c.phase = PhaseIdle
		c.mu.Unlock()
		c.showError("could not connect: " + err.Error())
		return err
	}

	c.mu.Lock()
	c.player = player
	c.sender = sender
	c.phase = PhaseConnected
	c.active = true
	c.mu.Unlock()
	metrics.CallsActive.Inc()
	c.traces.Record(tracelog.Event{Kind: "call_connected"})
	c.notifyStatus()
	return nil
}

// BeginTurn starts capturing a user utterance. No-op unless the phase is
// exactly Connected. Microphone denial surfaces an error and leaves the
// phase at Connected.
func (c *Call) BeginTurn() {
	c.mu.Lock()
	if c.phase != PhaseConnected {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := c.capture.Acquire(); err != nil {
		c.showError("microphone unavailable: " + err.Error())
		return
	}

	c.mu.Lock()
	if c.phase != PhaseConnected { // raced with hang-up
		c.mu.Unlock()
		c.capture.Release()
		return
	}
	now := c.clk.Now()
	c.queue.Clear()
	c.turn = newTurn(now)
	c.lat.StartTurn(now)
	c.phase = PhaseListening
	turnID := c.turn.ID
	c.mu.Unlock()

	c.traces.Record(tracelog.Event{Kind: "turn_started", TurnID: turnID})
	if err := c.sendControl(protocol.ControlStart); err != nil {
		slog.Warn("start control send failed", "error", err)
	}
	c.capture.Run()
	c.notifyStatus()
}

// EndTurn stops capturing. No-op if no capture is active. The microphone is
// released on every path out of capture.
func (c *Call) EndTurn() {
	if !c.capture.Capturing() {
		return
	}
	c.capture.Release()

	if err := c.sendControl(protocol.ControlStop); err != nil {
		slog.Warn("stop control send failed", "error", err)
	}

	c.mu.Lock()
	if c.phase == PhaseListening {
		c.phase = PhaseConnected
	}
	turnID := ""
	if c.turn != nil {
		turnID = c.turn.ID
	}
	c.mu.Unlock()

	c.traces.Record(tracelog.Event{Kind: "capture_stopped", TurnID: turnID})
	c.notifyStatus()
}

// HangUp ends the call from any non-terminal phase: releases the microphone
// if held, sends the end-of-call control message, closes the channel and the
// audio output, and discards queued playback. Idempotent.
func (c *Call) HangUp() {
	c.mu.Lock()
	if c.phase == PhaseEnded {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseEnded
	c.speaking = false
	sender := c.sender
	player := c.player
	wasActive := c.active
	c.active = false
	c.mu.Unlock()

	c.capture.Release()
	c.queue.Clear()

	if sender != nil {
		if err := sender.SendControl(protocol.ControlEndCall); err != nil {
			slog.Debug("end_call send failed", "error", err)
		}
		sender.Close()
	}
	closePlayer(player)
	c.errs.stopTimer()
	if wasActive {
		metrics.CallsActive.Dec()
	}

	c.traces.Record(tracelog.Event{Kind: "call_ended"})
	c.notifyStatus()
}

// OnChannelClosed handles an unexpected mid-call channel loss: the phase
// reverts toward Idle and a connectivity error is surfaced, unless the call
// was already ending.
func (c *Call) OnChannelClosed(err error) {
	c.mu.Lock()
	if c.phase == PhaseEnded || c.phase == PhaseIdle {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseIdle
	c.speaking = false
	player := c.player
	wasActive := c.active
	c.active = false
	c.sender = nil
	c.mu.Unlock()

	c.capture.Release()
	c.queue.Clear()
	closePlayer(player)
	if wasActive {
		metrics.CallsActive.Dec()
	}

	msg := "connection lost"
	if err != nil {
		msg = "connection lost: " + err.Error()
	}
	c.showError(msg)
	c.notifyStatus()
}

// --- protocol.Handler ---

var _ protocol.Handler = (*Call)(nil)

// HandleSessionID records the server-assigned session identifier, expected
// exactly once per call, and completes the Connecting → Connected
// transition if the dial result has not already done so.
func (c *Call) HandleSessionID(id string) {
	c.mu.Lock()
	if c.sessionID == "" {
		c.sessionID = id
	}
	changed := false
	if c.phase == PhaseConnecting {
		c.phase = PhaseConnected
		changed = true
	}
	c.mu.Unlock()

	c.traces.Record(tracelog.Event{Kind: "session_assigned"})
	slog.Info("session assigned", "session_id", id)
	if changed {
		c.notifyStatus()
	}
}

func (c *Call) HandlePartialTranscript(text string) {
	now := c.clk.Now()
	c.mu.Lock()
	if c.turn == nil || c.phase == PhaseEnded {
		c.mu.Unlock()
		return
	}
	c.turn.setPartial(text)
	c.mu.Unlock()

	c.lat.MarkFirstPartial(now)
	if c.cb.OnPartialTranscript != nil {
		c.cb.OnPartialTranscript(text)
	}
}

func (c *Call) HandleFinalTranscript(text string, confidence, latencyMs float64) {
	c.mu.Lock()
	if c.turn == nil || c.phase == PhaseEnded {
		c.mu.Unlock()
		return
	}
	c.turn.setFinal(text, confidence)
	turnID := c.turn.ID
	c.mu.Unlock()

	c.lat.SetFinalTranscript(latencyMs)
	c.traces.Record(tracelog.Event{
		Kind:       "stt_final",
		TurnID:     turnID,
		LatencyMs:  &latencyMs,
		Transcript: text,
	})
	if c.cb.OnFinalTranscript != nil {
		c.cb.OnFinalTranscript(text, confidence)
	}
}

func (c *Call) HandleAssistantText(text string, isFinal bool, fullText string) {
	c.mu.Lock()
	if c.turn == nil || c.phase == PhaseEnded {
		c.mu.Unlock()
		return
	}
	c.turn.appendAssistant(text, isFinal, fullText)
	display := c.turn.assistant
	c.mu.Unlock()

	if c.cb.OnAssistantText != nil {
		c.cb.OnAssistantText(display, isFinal)
	}
}

func (c *Call) HandleAudioChunk(audio []byte) {
	c.mu.Lock()
	ended := c.phase == PhaseEnded
	c.mu.Unlock()
	if ended {
		return
	}

	c.lat.MarkFirstAudio(c.clk.Now())
	c.queue.Enqueue(audio)
}

// HandleTTSDone is informational only; the playback queue drains
// independently of this signal.
func (c *Call) HandleTTSDone() {
	c.traces.Record(tracelog.Event{Kind: "tts_done"})
}

func (c *Call) HandleTraceEvent(ev protocol.TraceEvent) {
	c.traces.Record(tracelog.Event{
		Kind:       ev.Event,
		TurnID:     ev.TurnID,
		LatencyMs:  ev.LatencyMs,
		Transcript: ev.Transcript,
		Breakdown:  ev.Latency,
	})

	if ev.Event == "turn_completed" {
		var finalMs, firstAudioMs *float64
		if v, ok := ev.Latency["final_transcript_ms"]; ok {
			finalMs = &v
		}
		if v, ok := ev.Latency["first_audio_ms"]; ok {
			firstAudioMs = &v
		}
		c.lat.ApplySummary(finalMs, firstAudioMs)
	}
}

func (c *Call) HandleServerError(message string) {
	c.showError(message)
}

// --- accessors ---

func (c *Call) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Speaking reports whether synthesized audio is currently playing. Advisory
// and orthogonal to Phase.
func (c *Call) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

func (c *Call) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ErrorBanner returns the transient user-visible error, or "" once the
// display window has elapsed.
func (c *Call) ErrorBanner() string {
	return c.errs.message()
}

func (c *Call) PartialTranscript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn == nil {
		return ""
	}
	return c.turn.partial
}

func (c *Call) FinalTranscript() (string, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn == nil {
		return "", 0
	}
	return c.turn.finalText, c.turn.confidence
}

func (c *Call) AssistantText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.turn == nil {
		return ""
	}
	return c.turn.assistant
}

func (c *Call) Latency() latency.Record {
	return c.lat.Snapshot()
}

func (c *Call) Traces() *tracelog.Log {
	return c.traces
}

// StatusLine composes phase and the advisory speaking flag for display.
func (c *Call) StatusLine() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := string(c.phase)
	if c.speaking {
		s += " (speaking)"
	}
	return s
}

// --- internals ---

func (c *Call) showError(msg string) {
	metrics.ErrorsShown.Inc()
	slog.Warn("call error", "message", msg)
	c.errs.set(msg)
	if c.cb.OnError != nil {
		c.cb.OnError(msg)
	}
}

func (c *Call) setSpeaking(on bool) {
	c.mu.Lock()
	// Speaking may only be asserted on a live call; de-assertion from a
	// playback completion must always land so the flag cannot outlive the call.
	if on && (c.phase == PhaseEnded || c.phase == PhaseIdle) {
		c.mu.Unlock()
		return
	}
	changed := c.speaking != on
	c.speaking = on
	c.mu.Unlock()
	if changed {
		c.notifyStatus()
	}
}

// onCaptureError runs after the controller released the microphone because
// the frame loop failed mid-turn. The call leaves the listening state and
// the failure is surfaced like any other transient error.
func (c *Call) onCaptureError(err error) {
	c.mu.Lock()
	if c.phase != PhaseListening {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseConnected
	c.mu.Unlock()

	if sendErr := c.sendControl(protocol.ControlStop); sendErr != nil {
		slog.Warn("stop control send failed", "error", sendErr)
	}
	c.showError("capture failed: " + err.Error())
	c.notifyStatus()
}

func (c *Call) sendControl(msgType string) error {
	c.mu.Lock()
	snd := c.sender
	c.mu.Unlock()
	if snd == nil {
		return errors.New("channel not open")
	}
	return snd.SendControl(msgType)
}

func (c *Call) notifyStatus() {
	if c.cb.OnStatus != nil {
		c.cb.OnStatus(c.StatusLine())
	}
}

func closePlayer(p playback.Player) {
	if closer, ok := p.(io.Closer); ok && closer != nil {
		closer.Close()
	}
}

// senderSink adapts the Call's channel capability to the capture
// controller's frame sink.
type senderSink struct{ c *Call }

func (s senderSink) SendAudio(frame []byte) error {
	s.c.mu.Lock()
	snd := s.c.sender
	s.c.mu.Unlock()
	if snd == nil {
		return errors.New("channel not open")
	}
	return snd.SendAudio(frame)
}

// playerProxy defers player resolution to play time: the player is opened
// during Start, after the queue is constructed.
type playerProxy struct{ c *Call }

func (p playerProxy) Play(pcm playback.PCM) error {
	p.c.mu.Lock()
	player := p.c.player
	p.c.mu.Unlock()
	if player == nil {
		return errors.New("audio output not open")
	}
	return player.Play(pcm)
}
