package smf

import (
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDecodeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("arbitrary bytes never panic and yield sorted notes", prop.ForAll(
		func(data []byte) bool {
			notes, err := NewDecoder().Decode(data)
			if err != nil && err != ErrNotMidi {
				return false
			}
			if notes == nil {
				return false
			}
			return sort.SliceIsSorted(notes, func(i, j int) bool {
				return notes[i].Start < notes[j].Start
			})
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("decoding is idempotent", prop.ForAll(
		func(data []byte) bool {
			d := NewDecoder()
			first, _ := d.Decode(data)
			again, _ := d.Decode(data)
			if len(first) != len(again) {
				return false
			}
			for i := range first {
				if first[i] != again[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}

func TestEncodeDecodeRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("encoded notes decode back within a tick", prop.ForAll(
		func(starts []float64, durations []float64, velocities []uint8) bool {
			n := len(starts)
			if len(durations) < n {
				n = len(durations)
			}
			if len(velocities) < n {
				n = len(velocities)
			}

			notes := make([]Note, 0, n)
			for i := 0; i < n; i++ {
				notes = append(notes, Note{
					Pitch:    uint8(36 + i), // distinct pitches, no overlap rules to worry about
					Start:    starts[i],
					End:      starts[i] + durations[i],
					Velocity: velocities[i]%127 + 1,
				})
			}

			enc := NewEncoder()
			decoded, err := NewDecoder().Decode(enc.Encode(notes))
			if err != nil || len(decoded) != len(notes) {
				return false
			}

			// one tick at 480 ticks per beat and 500000 us per beat
			const quantum = 0.5 / 480

			sort.Slice(notes, func(i, j int) bool { return notes[i].Pitch < notes[j].Pitch })
			sort.Slice(decoded, func(i, j int) bool { return decoded[i].Pitch < decoded[j].Pitch })

			for i := range notes {
				want, got := notes[i], decoded[i]
				if want.Pitch != got.Pitch || want.Velocity != got.Velocity {
					return false
				}
				if got.Start < want.Start-quantum || got.Start > want.Start+quantum {
					return false
				}
				// the encoder keeps at least one tick between on and off
				if got.End < want.End-quantum || got.End > want.End+2*quantum {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(12, gen.Float64Range(0, 30)),
		gen.SliceOfN(12, gen.Float64Range(0, 4)),
		gen.SliceOfN(12, gen.UInt8()),
	))

	properties.TestingRun(t)
}
