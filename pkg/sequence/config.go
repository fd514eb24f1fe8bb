package sequence

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid sequence config")

// Config holds the musical parameters of a generated sequence. The JSON
// field names match the stored config_json documents.
type Config struct {
	Key               string  `json:"key"`
	Scale             string  `json:"scale"`
	Tempo             int     `json:"tempo"` // BPM
	TimeSignatureNum  int     `json:"time_signature_num"`
	TimeSignatureDen  int     `json:"time_signature_den"`
	NumBars           int     `json:"num_bars"`
	OctaveLow         int     `json:"octave_low"`
	OctaveHigh        int     `json:"octave_high"`
	RhythmPattern     string  `json:"rhythm_pattern"`
	DurationVariety   string  `json:"note_duration_variety"` // low / medium / high
	RestProbability   float64 `json:"rest_probability"`
	VelocityVariation bool    `json:"velocity_variation"`
	Instrument        int     `json:"instrument"` // General MIDI program number
}

// DefaultConfig mirrors the defaults of the original generator: eight bars
// of straight C major quarter notes at 120 BPM on a piano.
func DefaultConfig() Config {
	return Config{
		Key:               "C",
		Scale:             "major",
		Tempo:             120,
		TimeSignatureNum:  4,
		TimeSignatureDen:  4,
		NumBars:           8,
		OctaveLow:         4,
		OctaveHigh:        6,
		RhythmPattern:     "straight",
		DurationVariety:   "medium",
		RestProbability:   0.1,
		VelocityVariation: true,
	}
}

// RandomConfig draws a configuration from the same distributions the
// original batch generator used. Table keys are sorted first so the result
// depends only on the rng state.
func RandomConfig(rng *rand.Rand) Config {
	keys := make([]string, 0, len(keyOffsets))
	for k := range keyOffsets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	scales := make([]string, 0, len(scaleIntervals))
	for s := range scaleIntervals {
		scales = append(scales, s)
	}
	sort.Strings(scales)

	patterns := make([]string, 0, len(rhythmPatterns)+1)
	for p := range rhythmPatterns {
		patterns = append(patterns, p)
	}
	patterns = append(patterns, RhythmPatternMixed)
	sort.Strings(patterns)

	pick := func(vals []string) string { return vals[rng.Intn(len(vals))] }
	pickInt := func(vals []int) int { return vals[rng.Intn(len(vals))] }

	return Config{
		Key:               pick(keys),
		Scale:             pick(scales),
		Tempo:             60 + rng.Intn(121),
		TimeSignatureNum:  pickInt([]int{3, 4, 4, 4, 6}),
		TimeSignatureDen:  4,
		NumBars:           pickInt([]int{4, 4, 8, 8, 8, 12, 16}),
		OctaveLow:         pickInt([]int{3, 4}),
		OctaveHigh:        pickInt([]int{5, 6}),
		RhythmPattern:     pick(patterns),
		DurationVariety:   pick([]string{"low", "medium", "high"}),
		RestProbability:   0.05 + rng.Float64()*0.2,
		VelocityVariation: rng.Intn(2) == 0,
		Instrument:        pickInt([]int{0, 4, 12, 19, 24, 25, 40, 48, 73}),
	}
}

// Validate reports the first configuration field that cannot drive the
// generator.
func (c Config) Validate() error {
	if _, ok := keyOffsets[c.Key]; !ok {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, c.Key)
	}
	if _, ok := scaleIntervals[c.Scale]; !ok {
		return fmt.Errorf("%w: unknown scale %q", ErrInvalidConfig, c.Scale)
	}
	if c.Tempo <= 0 {
		return fmt.Errorf("%w: tempo must be positive, got %d", ErrInvalidConfig, c.Tempo)
	}
	if c.TimeSignatureNum <= 0 || c.TimeSignatureDen <= 0 {
		return fmt.Errorf("%w: bad time signature %d/%d",
			ErrInvalidConfig, c.TimeSignatureNum, c.TimeSignatureDen)
	}
	if c.NumBars <= 0 {
		return fmt.Errorf("%w: num_bars must be positive, got %d", ErrInvalidConfig, c.NumBars)
	}
	if c.OctaveLow > c.OctaveHigh {
		return fmt.Errorf("%w: octave range %d..%d is empty",
			ErrInvalidConfig, c.OctaveLow, c.OctaveHigh)
	}
	if c.RhythmPattern != RhythmPatternMixed {
		if _, ok := rhythmPatterns[c.RhythmPattern]; !ok {
			return fmt.Errorf("%w: unknown rhythm pattern %q", ErrInvalidConfig, c.RhythmPattern)
		}
	}
	if _, ok := durationProfiles[c.DurationVariety]; !ok {
		return fmt.Errorf("%w: unknown duration variety %q", ErrInvalidConfig, c.DurationVariety)
	}
	if c.RestProbability < 0 || c.RestProbability >= 1 {
		return fmt.Errorf("%w: rest probability %f out of [0,1)", ErrInvalidConfig, c.RestProbability)
	}
	if c.Instrument < 0 || c.Instrument > 127 {
		return fmt.Errorf("%w: instrument %d out of range", ErrInvalidConfig, c.Instrument)
	}
	if len(scaleNotes(c.Key, c.Scale, c.OctaveLow, c.OctaveHigh)) == 0 {
		return fmt.Errorf("%w: octave range %d..%d leaves no playable notes",
			ErrInvalidConfig, c.OctaveLow, c.OctaveHigh)
	}
	return nil
}
