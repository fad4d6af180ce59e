package tracelog

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/clock/clocktest"
)

func TestRecordNewestFirst(t *testing.T) {
	clk := clocktest.New(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := New(clk)

	log.Record(Event{Kind: "turn_started"})
	clk.Advance(100 * time.Millisecond)
	log.Record(Event{Kind: "stt_partial"})
	clk.Advance(100 * time.Millisecond)
	log.Record(Event{Kind: "stt_final"})

	events := log.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "stt_final", events[0].Kind)
	assert.Equal(t, "stt_partial", events[1].Kind)
	assert.Equal(t, "turn_started", events[2].Kind)
	assert.True(t, events[0].At.After(events[2].At))
}

func TestCapacityEvictsOldest(t *testing.T) {
	clk := clocktest.New(time.Now())
	log := New(clk)

	for i := 0; i < Capacity+20; i++ {
		log.Record(Event{Kind: fmt.Sprintf("ev-%d", i)})
		clk.Advance(time.Millisecond)
	}

	assert.Equal(t, Capacity, log.Len())
	events := log.Events()
	assert.Equal(t, fmt.Sprintf("ev-%d", Capacity+19), events[0].Kind)
	assert.Equal(t, "ev-20", events[len(events)-1].Kind)
}

func TestEventsReturnsSnapshot(t *testing.T) {
	clk := clocktest.New(time.Now())
	log := New(clk)
	log.Record(Event{Kind: "a"})

	snap := log.Events()
	log.Record(Event{Kind: "b"})

	require.Len(t, snap, 1)
	assert.Equal(t, "a", snap[0].Kind)
}
