package protocol

// Control message types sent from client to server as JSON text frames.
// Outbound audio is sent as raw binary frames and has no envelope.
const (
	ControlStart   = "start"
	ControlStop    = "stop"
	ControlEndCall = "end_call"
)

// Server frame discriminants.
const (
	TypeSessionID     = "session_id"
	TypeSTTPartial    = "stt_partial"
	TypeSTTFinal      = "stt_final"
	TypeAssistantText = "assistant_text"
	TypeTTSAudioChunk = "tts_audio_chunk"
	TypeTTSDone       = "tts_done"
	TypeTraceEvent    = "trace_event"
	TypeError         = "error"
)

// ControlFrame is the envelope for client control messages.
type ControlFrame struct {
	Type string `json:"type"`
}

// ServerFrame is the decoded envelope for every inbound text frame.
// Fields beyond Type are populated per discriminant; absent fields stay zero.
type ServerFrame struct {
	Type       string             `json:"type"`
	SessionID  string             `json:"session_id,omitempty"`
	Text       string             `json:"text,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
	LatencyMs  *float64           `json:"latency_ms,omitempty"`
	IsFinal    bool               `json:"is_final,omitempty"`
	FullText   string             `json:"full_text,omitempty"`
	Audio      string             `json:"audio,omitempty"`
	Event      string             `json:"event,omitempty"`
	TurnID     string             `json:"turn_id,omitempty"`
	TS         float64            `json:"ts,omitempty"`
	Transcript string             `json:"transcript,omitempty"`
	Latency    map[string]float64 `json:"latency,omitempty"`
	Message    string             `json:"message,omitempty"`
}

// TraceEvent carries the diagnostic fields of a trace_event frame.
type TraceEvent struct {
	Event      string
	TurnID     string
	TS         float64
	LatencyMs  *float64
	Transcript string
	Latency    map[string]float64
}
