package smf

import (
	"encoding/binary"
	"math"
	"sort"
)

const (
	metaEndOfTrack = 0x2F

	// minimum gap between a note's on and off events after quantization,
	// so zero-length notes survive a decode round trip
	minNoteTicks = 1
)

// Encoder writes a format-0 Standard MIDI File from a list of notes. The
// zero value is not useful; NewEncoder fills in the conventional defaults.
type Encoder struct {
	TicksPerBeat uint16
	Tempo        uint32 // microseconds per quarter note
	Program      uint8  // General MIDI program of the single track
	Channel      uint8
}

func NewEncoder() *Encoder {
	return &Encoder{
		TicksPerBeat: 480,
		Tempo:        defaultTempo,
	}
}

type channelEvent struct {
	tick uint64
	off  bool // note offs sort before note ons at the same tick
	data [3]byte
}

// Encode serializes the notes into a single-track SMF buffer: a set-tempo
// meta and a program change at tick 0, the note events with their delta
// times, then an end-of-track meta.
func (e *Encoder) Encode(notes []Note) []byte {
	events := make([]channelEvent, 0, len(notes)*2)
	for _, n := range notes {
		on := e.ticks(n.Start)
		off := e.ticks(n.End)
		if off < on+minNoteTicks {
			off = on + minNoteTicks
		}
		events = append(events,
			channelEvent{
				tick: on,
				data: [3]byte{0x90 | e.Channel&0x0F, n.Pitch & 0x7F, n.Velocity & 0x7F},
			},
			channelEvent{
				tick: off,
				off:  true,
				data: [3]byte{0x80 | e.Channel&0x0F, n.Pitch & 0x7F, 0x40},
			},
		)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	var tr []byte

	// set tempo: FF 51 03, 24-bit big-endian microseconds per quarter note
	tr = appendVarLen(tr, 0)
	tr = append(tr, metaStatus, metaSetTempo, 0x03,
		byte(e.Tempo>>16), byte(e.Tempo>>8), byte(e.Tempo))

	// program change
	tr = appendVarLen(tr, 0)
	tr = append(tr, 0xC0|e.Channel&0x0F, e.Program&0x7F)

	var last uint64
	for _, ev := range events {
		tr = appendVarLen(tr, uint32(ev.tick-last))
		tr = append(tr, ev.data[0], ev.data[1], ev.data[2])
		last = ev.tick
	}

	tr = appendVarLen(tr, 0)
	tr = append(tr, metaStatus, metaEndOfTrack, 0x00)

	buf := make([]byte, 0, 14+8+len(tr))
	buf = append(buf, headerChunkID[:]...)
	buf = binary.BigEndian.AppendUint32(buf, 6)
	buf = binary.BigEndian.AppendUint16(buf, 0) // format 0
	buf = binary.BigEndian.AppendUint16(buf, 1) // single track
	buf = binary.BigEndian.AppendUint16(buf, e.TicksPerBeat)
	buf = append(buf, trackChunkID[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(tr)))
	buf = append(buf, tr...)

	return buf
}

func (e *Encoder) ticks(seconds float64) uint64 {
	if seconds < 0 {
		return 0
	}
	return uint64(math.Round(seconds * 1e6 / float64(e.Tempo) * float64(e.TicksPerBeat)))
}

// appendVarLen appends v as a MIDI variable-length quantity, most
// significant 7-bit group first.
func appendVarLen(buf []byte, v uint32) []byte {
	var tmp [5]byte
	n := len(tmp)
	n--
	tmp[n] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		n--
		tmp[n] = byte(v&0x7F) | 0x80
	}
	return append(buf, tmp[n:]...)
}
