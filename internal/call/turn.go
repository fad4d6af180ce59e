package call

import (
	"time"

	"github.com/google/uuid"
)

// Turn is one user utterance and its full round trip. At most one Turn is
// open per Call; starting a new turn resets all turn-scoped transient state.
type Turn struct {
	ID        string
	StartedAt time.Time

	partial        string
	finalText      string
	finalSet       bool
	confidence     float64
	assistant      string
	assistantFinal bool
}

func newTurn(startedAt time.Time) *Turn {
	return &Turn{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
	}
}

// setPartial replaces the latest partial transcript.
func (t *Turn) setPartial(text string) {
	t.partial = text
}

// setFinal records the final transcript once and clears the partial.
func (t *Turn) setFinal(text string, confidence float64) {
	if t.finalSet {
		return
	}
	t.finalText = text
	t.confidence = confidence
	t.finalSet = true
	t.partial = ""
}

// appendAssistant accumulates streamed assistant text until the final
// marker. The final frame's full text, when present, supersedes the
// accumulated stream.
func (t *Turn) appendAssistant(text string, isFinal bool, fullText string) {
	if t.assistantFinal {
		return
	}
	if isFinal {
		if fullText != "" {
			t.assistant = fullText
		}
		t.assistantFinal = true
		return
	}
	t.assistant += text
}
