package playback

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"go.uber.org/zap"

	"github.com/Garik-/musicgen/pkg/smf"
)

// SampleRate is the audio sample rate used for synthesis.
const SampleRate = 44100

// renderTail is how long the synthesizer keeps ringing after the last
// release, so decaying voices are not cut off.
const renderTail = 1.0

// ErrBadSoundFont is wrapped when the SoundFont cannot be parsed.
var ErrBadSoundFont = errors.New("unusable soundfont")

// Renderer synthesizes note schedules into PCM using a SoundFont. Not safe
// for concurrent use; create one per goroutine.
type Renderer struct {
	synth *meltysynth.Synthesizer
	log   *zap.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithLogger sets the logger used for debug output.
func WithLogger(log *zap.Logger) RendererOption {
	return func(r *Renderer) { r.log = log }
}

// NewRenderer parses the SoundFont and prepares a synthesizer at SampleRate.
func NewRenderer(sf2 io.Reader, opts ...RendererOption) (*Renderer, error) {
	soundFont, err := meltysynth.NewSoundFont(sf2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSoundFont, err)
	}

	settings := meltysynth.NewSynthesizerSettings(SampleRate)
	synth, err := meltysynth.NewSynthesizer(soundFont, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSoundFont, err)
	}

	r := &Renderer{synth: synth, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type edge struct {
	sample int
	on     bool
	pitch  uint8
	vel    uint8
}

// Render walks the attack/release schedule sample-accurately and returns
// the left and right channels.
func (r *Renderer) Render(notes []smf.Note) (left, right []float32) {
	plan := Plan(notes)

	edges := make([]edge, 0, len(plan)*2)
	for _, e := range plan {
		edges = append(edges,
			edge{sample: int(e.At * SampleRate), on: true, pitch: e.Pitch, vel: e.Velocity},
			edge{sample: int((e.At + e.Duration) * SampleRate), pitch: e.Pitch},
		)
	}
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].sample != edges[j].sample {
			return edges[i].sample < edges[j].sample
		}
		// releases first, so back-to-back same-pitch notes retrigger
		return !edges[i].on && edges[j].on
	})

	total := int((Duration(plan) + renderTail) * SampleRate)
	left = make([]float32, total)
	right = make([]float32, total)

	r.synth.Reset()

	cursor := 0
	for _, e := range edges {
		if e.sample > cursor {
			r.synth.Render(left[cursor:e.sample], right[cursor:e.sample])
			cursor = e.sample
		}
		if e.on {
			r.synth.NoteOn(0, int32(e.pitch), int32(e.vel))
		} else {
			r.synth.NoteOff(0, int32(e.pitch))
		}
	}
	if cursor < total {
		r.synth.Render(left[cursor:], right[cursor:])
	}

	r.log.Debug("rendered",
		zap.Int("notes", len(plan)),
		zap.Int("samples", total))

	return left, right
}
