package protocol

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"

	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/metrics"
)

// Handler receives decoded server events in channel arrival order.
// Implementations must not assume cross-message ordering beyond what the
// dispatcher itself guarantees.
type Handler interface {
	HandleSessionID(id string)
	HandlePartialTranscript(text string)
	HandleFinalTranscript(text string, confidence, latencyMs float64)
	HandleAssistantText(text string, isFinal bool, fullText string)
	HandleAudioChunk(audio []byte)
	HandleTTSDone()
	HandleTraceEvent(ev TraceEvent)
	HandleServerError(message string)
}

// Dispatcher parses inbound channel messages and routes them to a Handler.
// Malformed payloads and unrecognized discriminants are dropped, never fatal.
type Dispatcher struct {
	handler Handler
}

func NewDispatcher(h Handler) *Dispatcher {
	return &Dispatcher{handler: h}
}

// Dispatch consumes one inbound text frame. Must be called from a single
// goroutine so messages are handled in strict arrival order.
func (d *Dispatcher) Dispatch(data []byte) {
	var f ServerFrame
	if err := json.Unmarshal(data, &f); err != nil {
		metrics.FramesDropped.Inc()
		slog.Debug("dropped malformed frame", "error", err)
		return
	}

	switch f.Type {
	case TypeSessionID:
		d.handler.HandleSessionID(f.SessionID)

	case TypeSTTPartial:
		d.handler.HandlePartialTranscript(f.Text)

	case TypeSTTFinal:
		var latencyMs float64
		if f.LatencyMs != nil {
			latencyMs = *f.LatencyMs
		}
		d.handler.HandleFinalTranscript(f.Text, f.Confidence, latencyMs)

	case TypeAssistantText:
		d.handler.HandleAssistantText(f.Text, f.IsFinal, f.FullText)

	case TypeTTSAudioChunk:
		audio, err := base64.StdEncoding.DecodeString(f.Audio)
		if err != nil {
			metrics.FramesDropped.Inc()
			slog.Debug("dropped undecodable audio chunk", "error", err)
			return
		}
		d.handler.HandleAudioChunk(audio)

	case TypeTTSDone:
		d.handler.HandleTTSDone()

	case TypeTraceEvent:
		d.handler.HandleTraceEvent(TraceEvent{
			Event:      f.Event,
			TurnID:     f.TurnID,
			TS:         f.TS,
			LatencyMs:  f.LatencyMs,
			Transcript: f.Transcript,
			Latency:    f.Latency,
		})

	case TypeError:
		d.handler.HandleServerError(f.Message)

	default:
		metrics.FramesDropped.Inc()
		slog.Debug("ignored unrecognized frame", "type", f.Type)
	}
}
