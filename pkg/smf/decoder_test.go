package smf

import (
	"encoding/binary"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vlq(v uint32) []byte {
	return appendVarLen(nil, v)
}

func events(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func midiFile(ticksPerBeat uint16, tracks ...[]byte) []byte {
	buf := append([]byte{}, headerChunkID[:]...)
	buf = binary.BigEndian.AppendUint32(buf, 6)
	buf = binary.BigEndian.AppendUint16(buf, 1) // format
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(tracks)))
	buf = binary.BigEndian.AppendUint16(buf, ticksPerBeat)
	for _, tr := range tracks {
		buf = append(buf, trackChunkID[:]...)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(tr)))
		buf = append(buf, tr...)
	}
	return buf
}

func tempoMeta(usPerBeat uint32) []byte {
	return []byte{0xFF, 0x51, 0x03, byte(usPerBeat >> 16), byte(usPerBeat >> 8), byte(usPerBeat)}
}

func TestDecode_DefaultTempoTiming(t *testing.T) {
	// one note spanning ticks [480, 960] at 480 ticks per beat and the
	// default 500000 us per beat: 0.5s per beat
	track := events(
		vlq(480), []byte{0x90, 60, 64},
		vlq(480), []byte{0x80, 60, 0},
	)

	notes, err := NewDecoder().Decode(midiFile(480, track))
	require.NoError(t, err)
	require.Len(t, notes, 1)

	assert.Equal(t, uint8(60), notes[0].Pitch)
	assert.Equal(t, uint8(64), notes[0].Velocity)
	assert.InDelta(t, 0.5, notes[0].Start, 1e-9)
	assert.InDelta(t, 1.0, notes[0].End, 1e-9)
}

func TestDecode_TempoAppliesAtConversionTime(t *testing.T) {
	// the note on converts its tick count at 500000 us per beat, the note
	// off at 250000: each event uses the tempo current when it is decoded
	track := events(
		vlq(0), tempoMeta(500000),
		vlq(480), []byte{0x90, 60, 100},
		vlq(0), tempoMeta(250000),
		vlq(480), []byte{0x80, 60, 0},
	)

	notes, err := NewDecoder().Decode(midiFile(480, track))
	require.NoError(t, err)
	require.Len(t, notes, 1)

	assert.InDelta(t, 480.0/480*0.5, notes[0].Start, 1e-9)
	assert.InDelta(t, 960.0/480*0.25, notes[0].End, 1e-9)
}

func TestDecode_ZeroVelocityNoteOnIsNoteOff(t *testing.T) {
	withNoteOff := events(
		vlq(0), []byte{0x90, 60, 64},
		vlq(120), []byte{0x80, 60, 40},
	)
	withZeroVelocity := events(
		vlq(0), []byte{0x90, 60, 64},
		vlq(120), []byte{0x90, 60, 0},
	)

	a, err := NewDecoder().Decode(midiFile(480, withNoteOff))
	require.NoError(t, err)
	b, err := NewDecoder().Decode(midiFile(480, withZeroVelocity))
	require.NoError(t, err)

	require.Len(t, a, 1)
	assert.Equal(t, a, b)
}

func TestDecode_NotMidi(t *testing.T) {
	notes, err := NewDecoder().Decode([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	assert.ErrorIs(t, err, ErrNotMidi)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}

func TestDecode_EmptyBuffer(t *testing.T) {
	notes, err := NewDecoder().Decode(nil)
	assert.ErrorIs(t, err, ErrNotMidi)
	assert.Empty(t, notes)
}

func TestDecode_UnterminatedNoteDropped(t *testing.T) {
	track := events(
		vlq(0), []byte{0x90, 60, 64},
		vlq(120), []byte{0x90, 64, 64},
		vlq(120), []byte{0x80, 64, 0},
	)

	notes, err := NewDecoder().Decode(midiFile(480, track))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, uint8(64), notes[0].Pitch)
}

func TestDecode_SamePitchNoteOnOverwrites(t *testing.T) {
	track := events(
		vlq(0), []byte{0x90, 60, 64},
		vlq(240), []byte{0x90, 60, 90},
		vlq(240), []byte{0x80, 60, 0},
	)

	notes, err := NewDecoder().Decode(midiFile(480, track))
	require.NoError(t, err)
	require.Len(t, notes, 1)

	// the later start wins, the earlier pending start is gone
	assert.InDelta(t, 0.25, notes[0].Start, 1e-9)
	assert.InDelta(t, 0.5, notes[0].End, 1e-9)
	assert.Equal(t, uint8(90), notes[0].Velocity)
}

func TestDecode_OrphanNoteOffDropped(t *testing.T) {
	track := events(
		vlq(0), []byte{0x80, 60, 0},
		vlq(120), []byte{0x90, 62, 64},
		vlq(120), []byte{0x80, 62, 0},
	)

	notes, err := NewDecoder().Decode(midiFile(480, track))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, uint8(62), notes[0].Pitch)
}

func TestDecode_NotesSortedAcrossTracks(t *testing.T) {
	late := events(
		vlq(960), []byte{0x90, 72, 64},
		vlq(480), []byte{0x80, 72, 0},
	)
	early := events(
		vlq(0), []byte{0x90, 48, 64},
		vlq(480), []byte{0x80, 48, 0},
	)

	// the later note sits in the first track on purpose
	notes, err := NewDecoder().Decode(midiFile(480, late, early))
	require.NoError(t, err)
	require.Len(t, notes, 2)

	assert.Equal(t, uint8(48), notes[0].Pitch)
	assert.Equal(t, uint8(72), notes[1].Pitch)
	assert.True(t, sort.SliceIsSorted(notes, func(i, j int) bool {
		return notes[i].Start < notes[j].Start
	}))
}

func TestDecode_RunningStatus(t *testing.T) {
	// the second and third note events omit the status byte
	track := events(
		vlq(0), []byte{0x90, 60, 64},
		vlq(120), []byte{64, 64},
		vlq(120), []byte{60, 0},
		vlq(120), []byte{64, 0},
	)

	notes, err := NewDecoder().Decode(midiFile(480, track))
	require.NoError(t, err)
	require.Len(t, notes, 2)
}

func TestDecode_UnknownEventStopsTrackOnly(t *testing.T) {
	// a SysEx start byte is not interpreted; the rest of the first track is
	// abandoned but the second track still decodes
	first := events(
		vlq(0), []byte{0x90, 60, 64},
		vlq(120), []byte{0x80, 60, 0},
		vlq(0), []byte{0xF0, 0x01, 0xF7},
		vlq(120), []byte{0x90, 62, 64},
		vlq(120), []byte{0x80, 62, 0},
	)
	second := events(
		vlq(0), []byte{0x90, 48, 64},
		vlq(480), []byte{0x80, 48, 0},
	)

	notes, err := NewDecoder().Decode(midiFile(480, first, second))
	require.NoError(t, err)
	require.Len(t, notes, 2)

	pitches := []uint8{notes[0].Pitch, notes[1].Pitch}
	assert.ElementsMatch(t, []uint8{60, 48}, pitches)
}

func TestDecode_MalformedTempoMetaKeepsTempo(t *testing.T) {
	track := events(
		vlq(0), []byte{0xFF, 0x51, 0x02, 0x03, 0xD0}, // length 2, skipped
		vlq(480), []byte{0x90, 60, 64},
		vlq(480), []byte{0x80, 60, 0},
	)

	notes, err := NewDecoder().Decode(midiFile(480, track))
	require.NoError(t, err)
	require.Len(t, notes, 1)

	// still the 500000 us per beat default
	assert.InDelta(t, 0.5, notes[0].Start, 1e-9)
	assert.InDelta(t, 1.0, notes[0].End, 1e-9)
}

func TestDecode_UnknownMetaSkipped(t *testing.T) {
	track := events(
		vlq(0), []byte{0xFF, 0x03, 0x04, 't', 'e', 's', 't'}, // track name
		vlq(0), []byte{0x90, 60, 64},
		vlq(0), []byte{0xFF, 0x58, 0x04, 4, 2, 24, 8}, // time signature
		vlq(480), []byte{0x80, 60, 0},
		vlq(0), []byte{0xFF, 0x2F, 0x00}, // end of track
	)

	notes, err := NewDecoder().Decode(midiFile(480, track))
	require.NoError(t, err)
	require.Len(t, notes, 1)
}

func TestDecode_SingleDataByteMessagesSkipped(t *testing.T) {
	track := events(
		vlq(0), []byte{0xC0, 12}, // program change
		vlq(0), []byte{0x90, 60, 64},
		vlq(0), []byte{0xB0, 7, 100}, // control change
		vlq(0), []byte{0xE0, 0, 64},  // pitch bend
		vlq(0), []byte{0xD0, 50},     // channel aftertouch
		vlq(480), []byte{0x80, 60, 0},
	)

	notes, err := NewDecoder().Decode(midiFile(480, track))
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.InDelta(t, 0.0, notes[0].Start, 1e-9)
	assert.InDelta(t, 0.5, notes[0].End, 1e-9)
}

func TestDecode_TruncatedTrackKeepsCompletedNotes(t *testing.T) {
	track := events(
		vlq(0), []byte{0x90, 60, 64},
		vlq(480), []byte{0x80, 60, 0},
		vlq(0), []byte{0x90, 62}, // velocity byte missing
	)

	data := midiFile(480, track)
	// chop the declared track length down so the last event runs over the
	// end of the buffer
	notes, err := NewDecoder().Decode(data[:len(data)-1])
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, uint8(60), notes[0].Pitch)
}

func TestDecode_Header(t *testing.T) {
	d := NewDecoder()
	_, err := d.Decode(midiFile(960, nil, nil))
	require.NoError(t, err)

	assert.Equal(t, uint16(1), d.Header.Format)
	assert.Equal(t, uint16(2), d.Header.NumTracks)
	assert.Equal(t, uint16(960), d.Header.TicksPerBeat)
}

func TestDecode_Idempotent(t *testing.T) {
	track := events(
		vlq(0), tempoMeta(400000),
		vlq(0), []byte{0x90, 60, 64},
		vlq(240), []byte{0x80, 60, 0},
		vlq(0), []byte{0x90, 67, 80},
		vlq(480), []byte{0x80, 67, 0},
	)
	data := midiFile(480, track)

	d := NewDecoder()
	first, err := d.Decode(data)
	require.NoError(t, err)
	again, err := d.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, first, again)
}

func TestDecode_NoNoteEvents(t *testing.T) {
	track := events(
		vlq(0), tempoMeta(500000),
		vlq(0), []byte{0xFF, 0x2F, 0x00},
	)

	notes, err := NewDecoder().Decode(midiFile(480, track))
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}
