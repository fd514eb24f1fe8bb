package sequence

// scaleIntervals maps a scale name to its semitone offsets from the root.
var scaleIntervals = map[string][]int{
	"major":            {0, 2, 4, 5, 7, 9, 11},
	"minor":            {0, 2, 3, 5, 7, 8, 10},
	"pentatonic_major": {0, 2, 4, 7, 9},
	"pentatonic_minor": {0, 3, 5, 7, 10},
	"blues":            {0, 3, 5, 6, 7, 10},
	"dorian":           {0, 2, 3, 5, 7, 9, 10},
	"mixolydian":       {0, 2, 4, 5, 7, 9, 10},
}

// keyOffsets maps a key name to its semitone offset from C.
var keyOffsets = map[string]int{
	"C": 0, "C#": 1, "Db": 1,
	"D": 2, "D#": 3, "Eb": 3,
	"E": 4, "F": 5, "F#": 6,
	"Gb": 6, "G": 7, "G#": 8,
	"Ab": 8, "A": 9, "A#": 10,
	"Bb": 10, "B": 11,
}

// rhythmPatterns are beat lengths cycled through within a bar. The "mixed"
// pattern has no fixed entry: the generator picks one of the others per bar.
var rhythmPatterns = map[string][]float64{
	"straight":   {1.0, 1.0, 1.0, 1.0},
	"dotted":     {1.5, 0.5, 1.5, 0.5},
	"syncopated": {0.5, 1.0, 1.5, 0.5, 0.5},
	"triplet":    {0.667, 0.667, 0.667},
	"waltz":      {1.5, 0.75, 0.75},
	"swing":      {0.75, 0.25, 0.75, 0.25},
}

// RhythmPatternMixed selects a random fixed pattern for every bar.
const RhythmPatternMixed = "mixed"

// noteDurations maps a duration name to its length in quarter notes.
var noteDurations = map[string]float64{
	"whole":          4.0,
	"half":           2.0,
	"quarter":        1.0,
	"eighth":         0.5,
	"sixteenth":      0.25,
	"dotted_quarter": 1.5,
	"dotted_eighth":  0.75,
}

// durationProfiles weight the duration choices per variety level.
var durationProfiles = map[string]map[string]float64{
	"low": {
		"quarter": 0.7, "half": 0.2, "eighth": 0.1,
	},
	"medium": {
		"quarter": 0.4, "half": 0.15, "eighth": 0.25,
		"dotted_quarter": 0.1, "sixteenth": 0.1,
	},
	"high": {
		"quarter": 0.2, "half": 0.1, "eighth": 0.2,
		"sixteenth": 0.2, "dotted_quarter": 0.15,
		"dotted_eighth": 0.1, "whole": 0.05,
	},
}

// scaleNotes returns the sorted MIDI pitches of the configured scale across
// the configured octave range, clipped to the piano range 21..108.
func scaleNotes(key, scale string, octaveLow, octaveHigh int) []uint8 {
	root := keyOffsets[key]
	intervals := scaleIntervals[scale]

	var notes []uint8
	for octave := octaveLow; octave <= octaveHigh; octave++ {
		for _, interval := range intervals {
			n := (octave+1)*12 + root + interval
			if n >= 21 && n <= 108 {
				notes = append(notes, uint8(n))
			}
		}
	}
	return notes
}
