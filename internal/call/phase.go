package call

// Phase is the call's position in the lifecycle state machine.
// Speaking is deliberately not a Phase: it is an orthogonal advisory flag on
// the Call, composed with the phase for display.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseConnecting Phase = "connecting"
	PhaseConnected  Phase = "connected"
	PhaseListening  Phase = "listening"
	PhaseEnded      Phase = "ended"
)
