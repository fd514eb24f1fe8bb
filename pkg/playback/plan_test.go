package playback

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Garik-/musicgen/pkg/smf"
)

func TestNoteName(t *testing.T) {
	cases := map[uint8]string{
		0:   "C-1",
		21:  "A0",
		60:  "C4",
		61:  "C#4",
		69:  "A4",
		108: "C8",
		127: "G9",
	}
	for pitch, want := range cases {
		assert.Equal(t, want, NoteName(pitch), "pitch %d", pitch)
	}
}

func TestFrequency(t *testing.T) {
	assert.InDelta(t, 440.0, Frequency(69), 1e-9)
	assert.InDelta(t, 261.626, Frequency(60), 1e-3)
	assert.InDelta(t, 880.0, Frequency(81), 1e-9)
	// one octave doubles
	assert.InDelta(t, Frequency(50)*2, Frequency(62), 1e-9)
}

func TestPlan_FloorsShortNotes(t *testing.T) {
	events := Plan([]smf.Note{
		{Pitch: 60, Start: 1.0, End: 1.0, Velocity: 64},   // zero length
		{Pitch: 62, Start: 2.0, End: 2.001, Velocity: 64}, // below the floor
		{Pitch: 64, Start: 3.0, End: 4.0, Velocity: 64},
	})
	require.Len(t, events, 3)

	assert.InDelta(t, MinNoteDuration, events[0].Duration, 1e-9)
	assert.InDelta(t, MinNoteDuration, events[1].Duration, 1e-9)
	assert.InDelta(t, 1.0, events[2].Duration, 1e-9)
}

func TestPlan_SortedByAttack(t *testing.T) {
	events := Plan([]smf.Note{
		{Pitch: 60, Start: 3.0, End: 3.5},
		{Pitch: 62, Start: 1.0, End: 1.5},
		{Pitch: 64, Start: 2.0, End: 2.5},
	})

	assert.True(t, sort.SliceIsSorted(events, func(i, j int) bool {
		return events[i].At < events[j].At
	}))
}

func TestPlan_EventAccessors(t *testing.T) {
	events := Plan([]smf.Note{{Pitch: 69, Start: 0, End: 1, Velocity: 100}})
	require.Len(t, events, 1)

	assert.Equal(t, "A4", events[0].Name())
	assert.InDelta(t, 440.0, events[0].Frequency(), 1e-9)
}

func TestDuration(t *testing.T) {
	assert.Zero(t, Duration(nil))

	events := Plan([]smf.Note{
		{Pitch: 60, Start: 0, End: 10},
		{Pitch: 62, Start: 9, End: 9.5},
	})
	assert.InDelta(t, 10.0, Duration(events), 1e-9)
}
