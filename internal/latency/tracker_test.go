package latency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestLocalMarksRecordedOnce(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker()
	tr.StartTurn(start)

	tr.MarkFirstPartial(start.Add(300 * time.Millisecond))
	tr.MarkFirstPartial(start.Add(900 * time.Millisecond)) // ignored

	tr.MarkFirstAudio(start.Add(1200 * time.Millisecond))
	tr.MarkFirstAudio(start.Add(2 * time.Second)) // ignored

	rec := tr.Snapshot()
	require.NotNil(t, rec.FirstPartialMs)
	require.NotNil(t, rec.FirstAudioMs)
	assert.Equal(t, 300.0, *rec.FirstPartialMs)
	assert.Equal(t, 1200.0, *rec.FirstAudioMs)
	assert.Nil(t, rec.FinalTranscriptMs)
}

func TestFinalTranscriptIsServerAuthoritative(t *testing.T) {
	tr := NewTracker()
	tr.StartTurn(time.Now())

	tr.SetFinalTranscript(400)

	rec := tr.Snapshot()
	require.NotNil(t, rec.FinalTranscriptMs)
	assert.Equal(t, 400.0, *rec.FinalTranscriptMs)
}

func TestApplySummaryFallbackOr(t *testing.T) {
	tr := NewTracker()
	start := time.Now()
	tr.StartTurn(start)
	tr.SetFinalTranscript(400)
	tr.MarkFirstAudio(start.Add(1500 * time.Millisecond))

	// Summary supplies only the final transcript value: first audio keeps
	// the local measurement.
	tr.ApplySummary(ptr(380), nil)

	rec := tr.Snapshot()
	require.NotNil(t, rec.FinalTranscriptMs)
	require.NotNil(t, rec.FirstAudioMs)
	assert.Equal(t, 380.0, *rec.FinalTranscriptMs)
	assert.Equal(t, 1500.0, *rec.FirstAudioMs)

	// A later summary with both fields overwrites both.
	tr.ApplySummary(ptr(390), ptr(1480))
	rec = tr.Snapshot()
	assert.Equal(t, 390.0, *rec.FinalTranscriptMs)
	assert.Equal(t, 1480.0, *rec.FirstAudioMs)
}

func TestSummaryNeverRevertsToUnset(t *testing.T) {
	tr := NewTracker()
	start := time.Now()
	tr.StartTurn(start)
	tr.MarkFirstAudio(start.Add(time.Second))

	tr.ApplySummary(nil, nil)

	rec := tr.Snapshot()
	require.NotNil(t, rec.FirstAudioMs)
	assert.Equal(t, 1000.0, *rec.FirstAudioMs)
}

func TestNoMarksWithoutTurnStart(t *testing.T) {
	tr := NewTracker()

	tr.MarkFirstPartial(time.Now())
	tr.MarkFirstAudio(time.Now())
	tr.SetFinalTranscript(250)
	tr.ApplySummary(ptr(100), ptr(200))

	rec := tr.Snapshot()
	assert.Nil(t, rec.FirstPartialMs)
	assert.Nil(t, rec.FinalTranscriptMs)
	assert.Nil(t, rec.FirstAudioMs)
}

func TestStartTurnResetsPriorTurn(t *testing.T) {
	tr := NewTracker()
	start := time.Now()
	tr.StartTurn(start)
	tr.MarkFirstPartial(start.Add(200 * time.Millisecond))
	tr.SetFinalTranscript(500)

	tr.StartTurn(start.Add(10 * time.Second))

	rec := tr.Snapshot()
	assert.Nil(t, rec.FirstPartialMs)
	assert.Nil(t, rec.FinalTranscriptMs)
	assert.Nil(t, rec.FirstAudioMs)
}
