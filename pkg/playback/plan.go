package playback

import (
	"sort"

	"github.com/Garik-/musicgen/pkg/smf"
)

// MinNoteDuration is the floor applied to every scheduled note. Decoded
// notes can be arbitrarily short (down to zero length); anything below this
// would not be audible.
const MinNoteDuration = 0.05

// Event is one scheduled note: attack at At, release at At+Duration.
type Event struct {
	At       float64
	Duration float64
	Pitch    uint8
	Velocity uint8
}

// Name returns the pitch name of the scheduled note.
func (e Event) Name() string {
	return NoteName(e.Pitch)
}

// Frequency returns the frequency of the scheduled note in Hz.
func (e Event) Frequency() float64 {
	return Frequency(e.Pitch)
}

// Plan converts decoded notes into a schedule sorted by attack time, with
// every duration floored to MinNoteDuration.
func Plan(notes []smf.Note) []Event {
	events := make([]Event, 0, len(notes))
	for _, n := range notes {
		d := n.End - n.Start
		if d < MinNoteDuration {
			d = MinNoteDuration
		}
		events = append(events, Event{
			At:       n.Start,
			Duration: d,
			Pitch:    n.Pitch,
			Velocity: n.Velocity,
		})
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].At < events[j].At
	})
	return events
}

// Duration returns the release time of the last event in the plan.
func Duration(events []Event) float64 {
	end := 0.0
	for _, e := range events {
		if t := e.At + e.Duration; t > end {
			end = t
		}
	}
	return end
}
