// Package sequence generates short random musical sequences as Standard
// MIDI Files, driven by a key, scale, tempo and rhythm configuration.
package sequence

import (
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Garik-/musicgen/pkg/smf"
)

// Stats summarizes a generated sequence the way the rating dashboard
// consumes it.
type Stats struct {
	NoteCount       int     `json:"note_count"`
	DurationSeconds float64 `json:"duration_seconds"`
	PitchHistogram  [12]int `json:"pitch_histogram"`
}

// Sequence is one generated piece: its notes in seconds, the encoded SMF
// bytes, and the stats derived while generating.
type Sequence struct {
	ID     string
	Config Config
	Notes  []smf.Note
	Data   []byte
	Stats  Stats
}

// Filename returns the name the sequence file is stored under.
func (s *Sequence) Filename() string {
	return s.ID + ".mid"
}

// Generator produces sequences from a fixed config. Not safe for concurrent
// use; create one per goroutine (the batch CLI does exactly that).
type Generator struct {
	cfg Config
	rng *rand.Rand
	log *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the random source, making generation deterministic for a
// fixed seed.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// WithLogger sets the logger used for debug output.
func WithLogger(log *zap.Logger) Option {
	return func(g *Generator) { g.log = log }
}

func NewGenerator(cfg Config, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return g, nil
}

// Generate walks the configured number of bars, filling each with notes and
// rests drawn from the scale and rhythm tables, then encodes the result as
// a format-0 SMF.
func (g *Generator) Generate() *Sequence {
	cfg := g.cfg
	notes := scaleNotes(cfg.Key, cfg.Scale, cfg.OctaveLow, cfg.OctaveHigh)

	quarter := 60.0 / float64(cfg.Tempo) // seconds per quarter note
	barDuration := float64(cfg.TimeSignatureNum) * quarter

	var (
		out       []smf.Note
		histogram [12]int
	)

	for bar := 0; bar < cfg.NumBars; bar++ {
		barStart := float64(bar) * barDuration
		barEnd := barStart + barDuration

		for t := barStart; t < barEnd-0.01; {
			remaining := barEnd - t

			if g.rng.Float64() < cfg.RestProbability {
				t += min(g.pickDuration()*quarter, remaining)
				continue
			}

			pitch := notes[g.rng.Intn(len(notes))]
			durSec := min(g.pickDuration()*quarter, remaining)

			// slight humanization of attack and release
			start := t + (g.rng.Float64()*0.02 - 0.01)
			end := start + durSec*(0.85+g.rng.Float64()*0.13)

			out = append(out, smf.Note{
				Pitch:    pitch,
				Start:    max(0, start),
				End:      max(start+0.05, end),
				Velocity: g.velocity(),
			})
			histogram[pitch%12]++
			t += durSec
		}
	}

	g.log.Debug("sequence generated",
		zap.String("key", cfg.Key),
		zap.String("scale", cfg.Scale),
		zap.Int("tempo", cfg.Tempo),
		zap.Int("notes", len(out)))

	enc := smf.NewEncoder()
	enc.Tempo = uint32(60_000_000 / cfg.Tempo)
	enc.Program = uint8(cfg.Instrument)

	return &Sequence{
		ID:     uuid.NewString(),
		Config: cfg,
		Notes:  out,
		Data:   enc.Encode(out),
		Stats: Stats{
			NoteCount:       len(out),
			DurationSeconds: float64(cfg.NumBars) * barDuration,
			PitchHistogram:  histogram,
		},
	}
}

// pickDuration draws a note length in quarter notes from the configured
// variety profile. Profile keys are walked in sorted order so a fixed rng
// seed always produces the same sequence.
func (g *Generator) pickDuration() float64 {
	profile := durationProfiles[g.cfg.DurationVariety]

	names := make([]string, 0, len(profile))
	total := 0.0
	for name, w := range profile {
		names = append(names, name)
		total += w
	}
	sort.Strings(names)

	x := g.rng.Float64() * total
	for _, name := range names {
		x -= profile[name]
		if x <= 0 {
			return noteDurations[name]
		}
	}
	return noteDurations["quarter"]
}

func (g *Generator) velocity() uint8 {
	if g.cfg.VelocityVariation {
		return uint8(55 + g.rng.Intn(56))
	}
	return 80
}
