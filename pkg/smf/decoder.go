// Package smf decodes and encodes Standard MIDI Files. The decoder turns a
// complete in-memory SMF buffer into a chronological list of notes with
// start and end times in seconds; the encoder is its format-0 counterpart
// used by the sequence generator.
package smf

import (
	"bytes"
	"errors"
	"sort"

	"go.uber.org/zap"
)

var (
	headerChunkID = [4]byte{0x4D, 0x54, 0x68, 0x64} // "MThd"
	trackChunkID  = [4]byte{0x4D, 0x54, 0x72, 0x6B} // "MTrk"

	// ErrNotMidi is reported when the buffer does not start with an MThd
	// chunk. The note list returned alongside it is empty, not nil.
	ErrNotMidi = errors.New("not a midi file")

	errUnknownEvent = errors.New("unknown event")
)

const (
	// defaultTempo is 500000 microseconds per quarter note, 120 BPM.
	defaultTempo = 500000

	metaStatus   = 0xFF
	metaSetTempo = 0x51
)

// Header holds the fields of the MThd chunk.
type Header struct {
	Format       uint16
	NumTracks    uint16
	TicksPerBeat uint16
}

// Note is a completed note event. Start and End are absolute positions in
// seconds from the beginning of the file, End >= Start.
type Note struct {
	Pitch    uint8   `json:"pitch"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Velocity uint8   `json:"velocity"`
}

type pendingNote struct {
	start    float64
	velocity uint8
}

// track holds the per-track decode state. A fresh one is created for every
// MTrk chunk: tracks do not share running status, tick counters or pending
// notes.
type track struct {
	pending map[uint8]pendingNote
	ticks   uint64
	status  byte
}

// Decoder decodes Standard MIDI Files (format 0 and 1). A Decoder may be
// reused for several buffers but must not be shared between goroutines;
// decoding the same buffer twice yields identical output.
type Decoder struct {
	log *zap.Logger

	// Header is populated by Decode and left untouched afterwards.
	Header Header
	// Notes holds the result of the last Decode, sorted by start time.
	Notes []Note

	tempo uint32 // microseconds per quarter note, shared across tracks
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for debug output. The default is a nop
// logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Decoder) {
		d.log = log
	}
}

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode walks the whole buffer and returns the completed notes sorted by
// start time. A buffer that is not a MIDI file yields an empty list and
// ErrNotMidi; any other malformation degrades to a partial (possibly empty)
// result with a nil error.
func (d *Decoder) Decode(data []byte) ([]Note, error) {
	d.Header = Header{}
	d.Notes = []Note{}
	d.tempo = defaultTempo

	c := &cursor{data: data}

	code, err := c.read(4)
	if err != nil || !bytes.Equal(code, headerChunkID[:]) {
		return d.Notes, ErrNotMidi
	}

	// The header length is consumed but not used to skip extra bytes: the
	// six-byte layout is assumed, matching the files this decoder targets.
	if _, err = c.readUint32(); err != nil {
		return d.Notes, nil
	}
	if d.Header.Format, err = c.readUint16(); err != nil {
		return d.Notes, nil
	}
	if d.Header.NumTracks, err = c.readUint16(); err != nil {
		return d.Notes, nil
	}
	if d.Header.TicksPerBeat, err = c.readUint16(); err != nil {
		return d.Notes, nil
	}

	for i := 0; i < int(d.Header.NumTracks); i++ {
		if err = d.decodeTrack(c); err != nil {
			d.log.Debug("track chunk unreadable, stopping",
				zap.Int("track", i), zap.Error(err))
			break
		}
	}

	sort.Slice(d.Notes, func(i, j int) bool {
		return d.Notes[i].Start < d.Notes[j].Start
	})

	return d.Notes, nil
}

// decodeTrack walks one MTrk chunk. The chunk ID is read but trusted, the
// declared length is authoritative: whatever happens inside the event
// stream, the cursor is placed on the declared end before returning so the
// next track starts aligned.
func (d *Decoder) decodeTrack(c *cursor) error {
	if _, err := c.read(4); err != nil { // chunk ID, trusted to be MTrk
		return err
	}
	length, err := c.readUint32()
	if err != nil {
		return err
	}
	trackEnd := c.off + int(length)

	t := &track{pending: make(map[uint8]pendingNote)}

	for c.off < trackEnd {
		delta, err := c.readVarLen()
		if err != nil {
			break
		}
		t.ticks += uint64(delta)

		if err = d.decodeEvent(c, t); err != nil {
			d.log.Debug("track interpretation stopped",
				zap.Uint64("ticks", t.ticks), zap.Error(err))
			break
		}
	}

	// Notes still pending here were never terminated; they are dropped, not
	// closed at the track boundary.
	c.off = trackEnd
	return nil
}

// decodeEvent interprets exactly one event at the current tick position.
func (d *Decoder) decodeEvent(c *cursor, t *track) error {
	b, err := c.peekByte()
	if err != nil {
		return err
	}
	status := t.status
	if b&0x80 != 0 {
		// Fresh status byte. Otherwise the unconsumed byte is the first
		// data byte of an event reusing the running status.
		c.off++
		status = b
		t.status = b
	}

	if status == metaStatus {
		return d.decodeMeta(c)
	}

	switch status >> 4 {
	case 0x9: // note on; velocity 0 is a note off by convention
		pitch, err := c.readUint7()
		if err != nil {
			return err
		}
		velocity, err := c.readUint7()
		if err != nil {
			return err
		}
		at := d.seconds(t.ticks)
		if velocity == 0 {
			d.closeNote(t, pitch, at)
		} else {
			// A second note on for a pending pitch overwrites the earlier
			// start: the latest start wins.
			t.pending[pitch] = pendingNote{start: at, velocity: velocity}
		}

	case 0x8: // note off, release velocity discarded
		pitch, err := c.readUint7()
		if err != nil {
			return err
		}
		if _, err = c.readByte(); err != nil {
			return err
		}
		d.closeNote(t, pitch, d.seconds(t.ticks))

	case 0xA, 0xB, 0xE: // aftertouch, control change, pitch bend
		return c.skip(2)

	case 0xC, 0xD: // program change, channel aftertouch
		return c.skip(1)

	default:
		return errUnknownEvent
	}

	return nil
}

// decodeMeta consumes one meta event. Only set-tempo with the expected
// three-byte payload updates state; every other payload is skipped without
// being interpreted.
func (d *Decoder) decodeMeta(c *cursor) error {
	typ, err := c.readByte()
	if err != nil {
		return err
	}
	length, err := c.readVarLen()
	if err != nil {
		return err
	}
	payload, err := c.read(int(length))
	if err != nil {
		return err
	}
	if typ == metaSetTempo && length == 3 {
		d.tempo = uint32(payload[0])<<16 | uint32(payload[1])<<8 | uint32(payload[2])
		d.log.Debug("tempo change", zap.Uint32("usPerBeat", d.tempo))
	}
	return nil
}

// closeNote emits the note pending for pitch, if any. A note off with no
// matching note on is dropped silently.
func (d *Decoder) closeNote(t *track, pitch uint8, at float64) {
	p, ok := t.pending[pitch]
	if !ok {
		return
	}
	delete(t.pending, pitch)
	d.Notes = append(d.Notes, Note{
		Pitch:    pitch,
		Start:    p.start,
		End:      at,
		Velocity: p.velocity,
	})
}

// seconds converts an absolute tick count using the tempo current at the
// moment of conversion. Tempo changes apply to subsequent conversions only,
// never retroactively.
func (d *Decoder) seconds(ticks uint64) float64 {
	return float64(ticks) * float64(d.tempo) / 1e6 / float64(d.Header.TicksPerBeat)
}
