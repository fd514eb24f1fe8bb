// Package playback turns decoded notes into scheduled audio: pitch naming
// and frequency mapping, an attack/release plan, and an offline renderer
// backed by a SoundFont synthesizer.
package playback

import (
	"fmt"
	"math"
)

var pitchNames = [12]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// NoteName returns the scientific pitch name of a MIDI note number,
// e.g. 60 -> "C4", 69 -> "A4".
func NoteName(pitch uint8) string {
	return fmt.Sprintf("%s%d", pitchNames[pitch%12], int(pitch)/12-1)
}

// Frequency returns the equal-temperament frequency of a MIDI note number
// with A4 (pitch 69) at 440 Hz.
func Frequency(pitch uint8) float64 {
	return 440 * math.Pow(2, (float64(pitch)-69)/12)
}
